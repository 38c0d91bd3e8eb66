package tensorarena_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/tensorarena"
	"github.com/hupe1980/tensorarena/backend"
	"github.com/hupe1980/tensorarena/blobstore"
	"github.com/hupe1980/tensorarena/snapshot"
)

// Example walks through placement with the default 8-byte alignment.
func Example() {
	a, err := tensorarena.New(tensorarena.WithBackend(backend.NewHeap()))
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	fmt.Println(a.AlignedSize(5))

	x, _ := a.Alloc(16) // first allocation sizes the buffer
	y, _ := a.Alloc(8)  // no room: the buffer doubles to 32
	fmt.Println(x, y, a.Capacity())

	_ = a.Free(x, 16)
	fmt.Println(a.Regions())

	z, _ := a.Alloc(8) // lowest fitting offset
	fmt.Println(z)
	fmt.Println(a)

	// Output:
	// 8
	// 0 16 32
	// [{0 16} {24 8}]
	// 0
	// arena{used=16 capacity=32 free=16 regions=2 alignment=8}
}

// Example_snapshot checkpoints an arena and restores it.
func Example_snapshot() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	a, err := tensorarena.New(tensorarena.WithBackend(backend.NewHeap()))
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	off, _ := a.Alloc(64)
	data, _ := a.Bytes(off, 64)
	copy(data, "weights")
	_, _ = a.Alloc(64)
	_ = a.Free(off+32, 32)

	if err := snapshot.Save(ctx, store, "plan.tarn", a, snapshot.WithCompression(snapshot.CompressionZSTD)); err != nil {
		log.Fatal(err)
	}

	restored, err := snapshot.Load(ctx, store, "plan.tarn", snapshot.WithArenaOptions(tensorarena.WithBackend(backend.NewHeap())))
	if err != nil {
		log.Fatal(err)
	}
	defer restored.Close()

	got, _ := restored.Bytes(off, 7)
	fmt.Println(string(got))
	fmt.Println(restored.Regions())
	fmt.Println(restored)

	// Output:
	// weights
	// [{32 32}]
	// arena{used=96 capacity=128 free=32 regions=1 alignment=8}
}
