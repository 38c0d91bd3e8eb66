// Package blobstore is where arena snapshots live once they leave the
// process.
//
// A BlobStore holds immutable, named blobs. Readers get random access
// through Blob.ReadAt; writers either Put a finished buffer or stream into
// Create and publish on Close. A writer given up halfway goes through
// Discard, which drops the partial blob wherever the store supports it.
//
// Stores in this module:
//
//   - NewMemoryStore keeps blobs in an ordered in-process map.
//   - NewLocalStore writes files atomically and reads them through mmap.
//   - blobstore/minio talks to MinIO and other S3-compatible services.
//   - blobstore/s3 talks to Amazon S3 with multipart uploads.
//
// ReadAll pulls a whole blob, copying straight from the mapping when the
// blob is Mappable and fanning out range reads otherwise.
package blobstore
