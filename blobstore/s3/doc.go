// Package s3 stores arena snapshots in Amazon S3 and tracks snapshot
// versions in DynamoDB.
//
//	store, err := s3.New(ctx, "models", "plans/", s3.WithPartSize(16<<20))
//	if err != nil {
//	    return err
//	}
//	if err := snapshot.Save(ctx, store, "graph.tarn", a); err != nil {
//	    return err
//	}
//
// NewStore takes any Client, so a preconfigured *s3.Client (custom
// endpoint, retries, credentials) or a test double can be plugged in.
// Reads are ranged GETs. Create streams through the multipart uploader and
// publishes on Close; uploads carry CRC32C checksums unless WithoutChecksum
// is given.
//
// DDBCatalog implements blobstore.Catalog with DynamoDB conditional writes,
// so several processes can snapshot.Publish the same arena safely:
//
//	catalog := s3.NewDDBCatalog(dynamodb.NewFromConfig(cfg), "tensorarena-snapshots")
//	p, err := snapshot.Publish(ctx, store, catalog, "resnet50", a)
package s3
