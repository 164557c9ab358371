package dispatch

/*

# Route table data plane

This package loads route table artifacts and answers per-request lookups
against them.

Load performs the single validating pass over an untrusted byte buffer:
magic and version, every region declared by the header, and every node,
child list and index record. It is the one place where raw bytes are
accepted as typed records; a Table handle only exists for buffers that
passed the full walk.

Resolve is the per-request operation. It never allocates graph structure,
never locks, and reads only through the artifact package's audited
accessor, so structural corruption encountered after a successful load
surfaces as ErrTraversalFault instead of an out of range panic. A miss is
ErrNoRoute and is an ordinary outcome, not a fault.

Traversal is O(path segments): every descent consumes at least one segment,
so cost is independent of the number of registered routes. The optional
method/first-segment index and prefilter region only reduce the constant.

Swapper publishes whole-artifact replacements atomically: in-flight lookups
finish against the table they started with, new lookups observe only the
new table.

*/
