package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// HTTPStore uploads artifacts to a remote file host with a plain PUT and
// derives the public URL from a separate download base. Single attempt per
// Put; the caller owns any retry policy.
type HTTPStore struct {
	UploadBase string // e.g. "https://files.internal:8001/upload"
	PublicBase string // e.g. "https://files.example.com"
	Client     *http.Client
}

// NewHTTPStore builds an HTTPStore with a default 30 s client.
func NewHTTPStore(uploadBase, publicBase string) *HTTPStore {
	return &HTTPStore{
		UploadBase: strings.TrimRight(uploadBase, "/"),
		PublicBase: strings.TrimRight(publicBase, "/"),
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Put uploads data as the body of a PUT request.
func (s *HTTPStore) Put(ctx context.Context, name string, data []byte) (*Upload, error) {
	base := path.Base(name)
	target := s.UploadBase + "/" + url.PathEscape(base)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("storage: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: upload %s: %w", base, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("storage: upload %s: status %d", base, resp.StatusCode)
	}

	return &Upload{
		PublicURL:  s.PublicBase + "/" + url.PathEscape(base),
		RemotePath: target,
	}, nil
}
