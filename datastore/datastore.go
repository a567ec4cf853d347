package datastore

import (
	"context"
	"io"

	"github.com/danthegoodman1/fixturegen/gologger"
)

var (
	logger = gologger.NewLogger()
)

type (
	DataStore interface {
		// CreateFile creates or truncates a fixture file for writing
		CreateFile(ctx context.Context, name string) (io.WriteCloser, error)
		// OpenFile opens a written fixture file for reading
		OpenFile(ctx context.Context, name string) (io.ReadCloser, error)
		// FileSize returns the size in bytes of a written fixture file
		FileSize(ctx context.Context, name string) (int64, error)
		// Path returns where a fixture file lives
		Path(name string) string

		Shutdown(ctx context.Context) error
	}
)
