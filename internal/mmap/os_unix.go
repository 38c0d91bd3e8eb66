//go:build unix

package mmap

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

var madvice = map[Advice]int{
	AdviceNormal:     unix.MADV_NORMAL,
	AdviceSequential: unix.MADV_SEQUENTIAL,
	AdviceRandom:     unix.MADV_RANDOM,
	AdviceWillNeed:   unix.MADV_WILLNEED,
	AdviceDontNeed:   unix.MADV_DONTNEED,
}

func mapFile(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
}

func mapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unmap(b []byte, _ bool) error {
	return unix.Munmap(b)
}

func advise(b []byte, a Advice) error {
	flag, ok := madvice[a]
	if !ok {
		flag = unix.MADV_NORMAL
	}
	// Hints are best effort; some kernels reject flags on some mappings.
	if err := unix.Madvise(b, flag); err != nil && !errors.Is(err, unix.EINVAL) {
		return err
	}
	return nil
}
