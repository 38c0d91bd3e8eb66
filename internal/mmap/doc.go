// Package mmap provides memory mappings for arena backing buffers and snapshot files.
//
// # Anonymous Mappings
//
// MapAnon creates read-write anonymous mappings outside the Go heap. The
// mmap backend hands these to the arena as backing buffers, so large tensor
// arenas add no garbage collector pressure:
//
//	m, err := mmap.MapAnon(1 << 20)
//	if err != nil { ... }
//	defer m.Close()
//
//	buf := m.Bytes() // zero-filled, 1 MiB
//
// # File Mappings
//
// Open maps a file read-only. The local blob store uses it to read
// snapshot files without copying them through kernel buffers.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile and VirtualAlloc (Advise is a no-op)
//
// # Ownership
//
// A Mapping owns its memory. Close is idempotent; the slice returned by
// Bytes must not be used after Close returns.
package mmap
