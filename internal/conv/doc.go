// Package conv provides checked integer conversions for arena offset math.
//
// Offsets handed to callers are uint64 while buffer slicing uses int; the
// helpers here convert between the two and wrap ErrOverflow on failure.
// Snapshot decoding relies on them to validate untrusted header fields.
//
// For conversions that are provably safe by construction (loop indices,
// values already bounded by capacity), use direct casts instead.
package conv
