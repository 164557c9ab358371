package artifact

/*

# Route table binary format

This package defines the position-independent binary layout for a compiled
route table and the primitive accessors for reading and writing its records.

It follows a "functional primitives" style:

- small, composable functions
- explicit byte layouts
- integer offsets instead of pointers
- a burden of knowledge on the caller for hot paths

## Core properties

1. every cross-reference inside the artifact is an absolute uint64 byte
   offset from the start of the buffer
2. all records are fixed width, so a record is located by a single offset
   with no length prefix walk
3. the buffer is usable in place after mapping; nothing is patched after
   load

All multi-byte integers are big-endian.

## Layout (high level)

	header || index entries || node records || child lists || string pool ||
	handler-metadata pool || [prefilter region]

The header records the offset and length (or count) of every region, and the
offset of the root node. Node records reference a compressed path prefix in
the string pool, a child list, and an optional handler-metadata blob. A
metadata offset of zero means "no handler bound here"; offset zero is the
header itself and can never address real metadata.

Child entries carry the label used to select the edge: for a literal edge
this is the first segment of the child's prefix, for a parameter edge it is
the parameter name. Storing the name on the edge is what lets the lookup
engine bind parameter values under their compile-time names without any
side table.

## The audited accessor

Slice is the single point where an offset+length pair read from inside the
buffer is converted to a byte range. Every traversal-time read goes through
it, so a corrupted offset surfaces as ErrCorruptOffset rather than an out of
range panic.

*/
