package checkpoint

import (
	"context"
	"io"
	"path"

	"cloud.google.com/go/storage"
)

type gcsBucket struct {
	bucket *storage.BucketHandle
	prefix string
}

func (b *gcsBucket) read(ctx context.Context, name string) ([]byte, error) {
	r, err := b.bucket.Object(path.Join(b.prefix, name)).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return nil, errBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *gcsBucket) write(ctx context.Context, name string, data []byte) error {
	w := b.bucket.Object(path.Join(b.prefix, name)).NewWriter(ctx)
	w.ContentType = "text/plain"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// GCSStore keeps checkpoints in a google cloud storage bucket, one object per feed
type GCSStore struct {
	blobStore
	client *storage.Client
}

// NewGCSStore creates a checkpoint store backed by a given bucket.
// Uses application default credentials
func NewGCSStore(ctx context.Context, bucket string, prefix string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Initializing GCS checkpoint store: gs://%v/%v", bucket, prefix)
	return &GCSStore{
		blobStore: blobStore{bucket: &gcsBucket{bucket: client.Bucket(bucket), prefix: prefix}},
		client:    client,
	}, nil
}

// Close releases the underlying client
func (s *GCSStore) Close() error {
	return s.client.Close()
}
