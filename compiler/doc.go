package compiler

/*

# Route table compiler

The compiler is the control plane of the dispatch engine: a pure function
from an ordered route manifest to a route table artifact. It holds no state
across invocations and identical manifests produce byte-identical output, so
builds can be cached and compared.

The build proceeds in fixed phases:

 1. parse and validate every pattern (InvalidPattern, UnknownMethod)
 2. insert routes into an in-memory segment trie, rejecting duplicates and
    same-position parameter conflicts (DuplicateRoute, AmbiguousRoute)
 3. merge single-child literal chains into compressed prefixes
 4. assign every node, child list, string and metadata blob its final
    offset in one deterministic layout pass
 5. emit the buffer; nothing is patched after emission

The method is encoded as a pseudo-segment at the root: the root's children
are method token nodes ("GET", "POST", ...). Method nodes are never merged
with their children so the method/first-segment index can seed traversal at
a node whose prefix begins with the first real path segment.

*/
