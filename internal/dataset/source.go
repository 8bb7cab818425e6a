package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

const maxFetchBytes = 32 << 20

// Source delivers the raw bytes of a quiz data file. Name is used for
// format detection and in error messages.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// NewSource picks an HTTP source for http(s) locations and a file source
// otherwise.
func NewSource(location string, timeout time.Duration) Source {
	loc := strings.TrimSpace(location)
	lower := strings.ToLower(loc)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		return &HTTPSource{URL: loc, Client: &http.Client{Timeout: timeout}}
	}
	return &FileSource{Path: loc}
}

type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return s.Path }

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return b, nil
}

type HTTPSource struct {
	URL    string
	Client *http.Client
	// MaxBytes caps the response size. Zero means maxFetchBytes.
	MaxBytes int64
}

func (s *HTTPSource) Name() string {
	// strip the query so format detection sees the path suffix
	if i := strings.IndexAny(s.URL, "?#"); i >= 0 {
		return s.URL[:i]
	}
	return s.URL
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d (%s)", res.StatusCode, http.StatusText(res.StatusCode))
	}
	limit := s.MaxBytes
	if limit <= 0 {
		limit = maxFetchBytes
	}
	// one byte past the limit tells a full file from a truncated one
	b, err := io.ReadAll(io.LimitReader(res.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return b, nil
}

// MemorySource serves bytes that were uploaded at runtime.
type MemorySource struct {
	Filename string
	Data     []byte
}

func (s *MemorySource) Name() string { return s.Filename }

func (s *MemorySource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]byte, len(s.Data))
	copy(out, s.Data)
	return out, nil
}

func isWorkbook(name string) bool {
	return strings.EqualFold(path.Ext(name), ".xlsx")
}
