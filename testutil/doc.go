// Package testutil holds helpers for tensorarena tests and benchmarks:
// seeded request-size workloads and a backend that counts what it hands out.
//
//	rng := testutil.NewRNG(42)
//	for _, size := range rng.TensorSizes(1000, 4096, 4, 1.2) {
//	    off, err := a.Alloc(size)
//	    ...
//	}
package testutil
