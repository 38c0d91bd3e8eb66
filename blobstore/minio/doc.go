// Package minio stores arena snapshots on MinIO and other S3-compatible
// services (Ceph, Garage, SeaweedFS) through the minio-go client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4(accessKey, secretKey, ""),
//	})
//	if err != nil {
//	    return err
//	}
//	store := miniostore.NewStore(client, "models", "plans/", miniostore.WithContentMD5())
//	err = snapshot.Save(ctx, store, "resnet50.tarn", a)
//
// Reads are ranged GETs, so snapshot.Load fetches large snapshots in
// parallel. Create streams into a multipart upload that becomes visible on
// Close; Abort discards it.
package minio
