package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes artifacts to a directory and serves them over HTTP.
// PublicURL is formed as BaseURL + "/files/" + name, matching the route the
// server mounts via Handler.
type LocalStore struct {
	Dir     string
	BaseURL string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes data under the basename of name. Path components are discarded
// so a caller-supplied filename can never escape the storage directory.
func (s *LocalStore) Put(_ context.Context, name string, data []byte) (*Upload, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return nil, fmt.Errorf("storage: invalid filename %q", name)
	}
	dest := filepath.Join(s.Dir, base)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, fmt.Errorf("storage: write %s: %w", dest, err)
	}
	return &Upload{
		PublicURL:  s.BaseURL + "/files/" + base,
		RemotePath: dest,
	}, nil
}

// Handler serves the storage directory read-only.
func (s *LocalStore) Handler() http.Handler {
	return http.StripPrefix("/files/", http.FileServer(http.Dir(s.Dir)))
}
