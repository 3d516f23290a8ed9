package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrNotFound is returned when the requested path does not exist.
var ErrNotFound = errors.New("resource not found")

// Fetcher reads the raw bytes behind a relative path. Snapshot tables,
// application resources and manifests all come through one.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, path string) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}

// FileFetcher reads from the local filesystem. When path is missing but
// path+".gz" exists, the compressed copy is inflated transparently.
type FileFetcher struct {
	root string
}

// NewFileFetcher creates a fetcher rooted at root. An empty root resolves
// paths against the working directory.
func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{root: root}
}

// Root returns the directory paths are resolved against.
func (f *FileFetcher) Root() string {
	return f.root
}

// Fetch implements Fetcher.
func (f *FileFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := f.resolve(path)
	data, err := os.ReadFile(full)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if strings.HasSuffix(full, ".gz") {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	compressed, err := os.ReadFile(full + ".gz")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s.gz: %w", path, err)
	}
	return Gunzip(compressed)
}

func (f *FileFetcher) resolve(path string) string {
	if f.root == "" || filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(f.root, filepath.FromSlash(path))
}

// Gunzip inflates a gzip stream.
func Gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip body: %w", err)
	}
	return out, nil
}
