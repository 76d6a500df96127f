// Package marc decodes and encodes MARC 21 bibliographic records in
// the ISO 2709 binary interchange format.
//
// # Record Format
//
// Records are serialized with the following structure:
//
//	[Leader(24)][Directory][0x1E][Field data][0x1D]
//
// The leader opens with the total record length as 5 ASCII digits and
// carries the base address where field data begins. The directory is a
// table of fixed-width entries, one per field:
//
//	[Tag(3)][Length(4 digits)][Offset(5 digits)]
//
// closed by a field terminator (0x1E). Each field's bytes sit at
// base address + offset and end with their own field terminator.
// Control fields (tags 001-009) are raw values; data fields start with
// a 2-character indicator pair followed by subfields, each introduced
// by a subfield delimiter (0x1F) and a 1-character code. A record
// terminator (0x1D) closes the record.
//
// # Ordering
//
// Field order is semantically meaningful in MARC and tags may repeat,
// so Record keeps fields in a single ordered slice. Decode followed by
// Encode reproduces the original field order byte for byte; collapsing
// duplicate tags would be a correctness bug, not a normalization.
//
// # Error Handling
//
// Malformed input is expected. Decode validates every byte offset it
// touches and returns a *ParseError value carrying the offending
// offset; it never panics. Callers classify failures with errors.Is
// against the sentinel errors (ErrTruncatedRecord, ErrInvalidLeader,
// and so on).
//
// # Concurrency
//
// Decode and Encode are pure functions with no shared state and may be
// called from any number of goroutines concurrently.
package marc
