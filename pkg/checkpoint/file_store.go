package checkpoint

import (
	"context"
	"os"
	"path/filepath"
)

type fsBucket struct {
	dir string
}

func (b *fsBucket) read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if os.IsNotExist(err) {
		return nil, errBlobNotFound
	}
	return data, err
}

func (b *fsBucket) write(ctx context.Context, name string, data []byte) error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return err
	}
	tmpPath := filepath.Join(b.dir, "."+name+".tmp")
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(b.dir, name))
}

// FileStore keeps checkpoints in a local dir, one file per feed
type FileStore struct {
	blobStore
}

// NewFileStore creates a checkpoint store in a given dir.
// The dir is created on first commit
func NewFileStore(dir string) *FileStore {
	logger.Info(nil, "Initializing file checkpoint store: %v", dir)
	return &FileStore{blobStore{bucket: &fsBucket{dir: dir}}}
}
