package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/tensorarena/blobstore"
	"github.com/hupe1980/tensorarena/internal/hash"
)

const defaultPartSize = 8 << 20

// Client is the subset of the S3 API the store uses. *s3.Client satisfies it.
type Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ Client = (*s3.Client)(nil)

// Store implements blobstore.BlobStore on Amazon S3.
type Store struct {
	client   Client
	bucket   string
	prefix   string
	checksum bool
	uploader *manager.Uploader
}

var _ blobstore.BlobStore = (*Store)(nil)

type settings struct {
	partSize          int64
	concurrency       int
	checksum          bool
	leavePartsOnError bool
}

// Option configures a Store.
type Option func(*settings)

// WithPartSize sets the multipart part size. The default is 8 MiB.
func WithPartSize(n int64) Option {
	return func(s *settings) { s.partSize = n }
}

// WithConcurrency sets how many parts upload in parallel.
func WithConcurrency(n int) Option {
	return func(s *settings) { s.concurrency = n }
}

// WithoutChecksum disables CRC32C validation on uploads.
func WithoutChecksum() Option {
	return func(s *settings) { s.checksum = false }
}

// WithLeavePartsOnError keeps uploaded parts of a failed multipart upload.
func WithLeavePartsOnError() Option {
	return func(s *settings) { s.leavePartsOnError = true }
}

// NewStore creates a store for bucket. rootPrefix is prepended to every
// key (e.g. "snapshots/").
func NewStore(client Client, bucket, rootPrefix string, opts ...Option) *Store {
	cfg := settings{partSize: defaultPartSize, checksum: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store{
		client:   client,
		bucket:   bucket,
		prefix:   rootPrefix,
		checksum: cfg.checksum,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			if cfg.partSize > 0 {
				u.PartSize = cfg.partSize
			}
			if cfg.concurrency > 0 {
				u.Concurrency = cfg.concurrency
			}
			u.LeavePartsOnError = cfg.leavePartsOnError
		}),
	}
}

// New loads the default AWS configuration (environment, shared config,
// instance role) and creates a store for bucket.
func New(ctx context.Context, bucket, rootPrefix string, opts ...Option) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, rootPrefix, opts...), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open issues a HEAD for the blob size and returns a ranged reader.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &s3Blob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Create starts a streaming upload. The object appears when the blob is
// closed; a failed upload leaves nothing behind.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	}
	if s.checksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}
	return startUpload(ctx, s.uploader, input), nil
}

// Put writes a blob with a single request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if s.checksum {
		input.ChecksumCRC32C = aws.String(checksum(data))
	}
	_, err := s.client.PutObject(ctx, input)
	return err
}

// Delete removes a blob. A missing blob is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns the sorted blob names starting with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	root := strings.TrimSuffix(s.prefix, "/")
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})

	var names []string
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(strings.TrimPrefix(aws.ToString(obj.Key), root), "/")
			if rel != "" {
				names = append(names, rel)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// checksum encodes the CRC32C of data the way S3 expects it: big-endian
// bytes in base64.
func checksum(data []byte) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], hash.CRC32C(data))
	return base64.StdEncoding.EncodeToString(b[:])
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}
