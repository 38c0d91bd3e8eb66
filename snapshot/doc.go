// Package snapshot persists arenas to a blobstore.BlobStore and restores
// them.
//
// A snapshot captures the alignment, capacity, used bytes, free regions and
// buffer contents of an arena, so a compiled graph's memory plan can be
// checkpointed and resumed with identical placement:
//
//	if err := snapshot.Save(ctx, store, "resnet50.tarn", a,
//	    snapshot.WithCompression(snapshot.CompressionZSTD)); err != nil {
//	    return err
//	}
//
//	restored, err := snapshot.Load(ctx, store, "resnet50.tarn")
//
// The payload is LZ4 or ZSTD compressed and the whole snapshot is covered by
// a CRC32C checksum. Save and Load each emit an OpenTelemetry span and can be
// throttled through a resource.Controller.
//
// Publish and LoadLatest add versioning on top: each Publish writes a new
// immutable blob and commits a pointer to it in a blobstore.Catalog, so
// concurrent writers cannot overwrite each other's snapshots.
//
//	p, err := snapshot.Publish(ctx, store, catalog, "resnet50", a)
//	restored, p, err := snapshot.LoadLatest(ctx, store, catalog, "resnet50")
package snapshot
