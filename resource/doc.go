// Package resource caps the memory arenas may reserve and the bandwidth
// snapshots may use.
//
// An arena given a Controller (tensorarena.WithMemoryLimit or
// tensorarena.WithResourceController) reserves every backing buffer before
// asking its backend for it and returns the reservation when the buffer is
// released. Reservations never block; a rejected one surfaces from the arena
// as an out-of-memory error. While an arena grows it holds the old and the
// new buffer at once, so a limit of three times the steady-state capacity
// leaves room for one doubling.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   1 << 30,
//	    IOLimitBytesPerSec: 100 << 20,
//	})
//	a, err := tensorarena.New(tensorarena.WithResourceController(rc))
//	...
//	err = snapshot.Save(ctx, store, "plan.tarn", a, snapshot.WithResourceController(rc))
//
// A nil *Controller is valid and imposes no limits.
package resource
