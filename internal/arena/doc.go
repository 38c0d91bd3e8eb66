// Package arena implements the offset-based memory arena that backs tensor
// storage.
//
// An Arena owns one contiguous buffer obtained from a backend.Backend and
// hands out aligned byte ranges inside it, identified by offset. Released
// ranges go into a free-region index ordered by offset; adjacent regions are
// merged lazily at the start of the next allocation and placement is
// first-fit. When no region is large enough the buffer doubles and live bytes
// are copied into the new one, so offsets survive growth while slices do not.
//
// # Lifecycle
//
// New creates an empty arena. The buffer is materialized by the first Alloc
// (exactly the rounded request) or by Base (the minimum capacity). Close
// releases it exactly once.
//
// # Misuse
//
// Free trusts its arguments. WithDebugChecks tracks live allocation units in
// a bitmap and rejects double frees and unknown ranges with ErrInvalidFree.
//
// # Concurrency
//
// An Arena is not safe for concurrent use.
package arena
