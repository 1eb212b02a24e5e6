package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aq2208/bookstore-api/internal/usecase"
)

// FileCartWriter writes cart exports into a single directory, creating it on demand.
type FileCartWriter struct {
	dir string
}

func NewFileCartWriter(dir string) *FileCartWriter {
	return &FileCartWriter{dir: dir}
}

func (w *FileCartWriter) Write(_ context.Context, name string, doc []byte) (string, error) {
	if w.dir == "" {
		return "", usecase.ErrExportNotConfigured
	}
	// name comes from ExportFileName, but never let it climb out of dir
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid export file name %q", name)
	}

	dir, err := filepath.Abs(w.dir)
	if err != nil {
		return "", fmt.Errorf("resolve export dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replace export file: %w", err)
	}
	return path, nil
}

var _ usecase.CartWriter = (*FileCartWriter)(nil)
