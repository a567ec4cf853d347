package datastore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

type (
	DiskDataStore struct {
		rootPath string
	}
)

// NewDiskDataStore writes fixture files under rootPath, creating it if needed.
func NewDiskDataStore(rootPath string) (*DiskDataStore, error) {
	if rootPath == "" {
		rootPath = "."
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("error in os.MkdirAll: %w", err)
	}
	dds := &DiskDataStore{
		rootPath: rootPath,
	}

	return dds, nil
}

func (dds *DiskDataStore) Path(name string) string {
	return filepath.Join(dds.rootPath, name)
}

func (dds *DiskDataStore) CreateFile(ctx context.Context, name string) (io.WriteCloser, error) {
	f, err := os.Create(dds.Path(name))
	if err != nil {
		return nil, fmt.Errorf("error in os.Create: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("path", f.Name()).Msg("created fixture file")
	return f, nil
}

func (dds *DiskDataStore) OpenFile(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(dds.Path(name))
	if err != nil {
		return nil, fmt.Errorf("error in os.Open: %w", err)
	}
	return f, nil
}

func (dds *DiskDataStore) FileSize(_ context.Context, name string) (int64, error) {
	info, err := os.Stat(dds.Path(name))
	if err != nil {
		return 0, fmt.Errorf("error in os.Stat: %w", err)
	}
	return info.Size(), nil
}

func (dds *DiskDataStore) Shutdown(_ context.Context) error {
	logger.Debug().Str("root", dds.rootPath).Msg("disk datastore shut down")
	return nil
}
