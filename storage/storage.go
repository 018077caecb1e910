// Package storage is the persistence collaborator for generated artifacts.
//
// Document generation hands finished bytes to a Store exactly once per run;
// the Store is responsible for durability and for issuing a public download
// URL. Two implementations ship: a local directory served over HTTP, and a
// remote HTTP endpoint.
package storage

import "context"

// Upload describes where a stored artifact ended up.
type Upload struct {
	PublicURL  string `json:"public_url"`
	RemotePath string `json:"remote_path"`
}

// Store persists artifact bytes under a filename.
//
// Put is a single attempt: no automatic retry. Callers surface failures
// explicitly and may retry with the same bytes.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (*Upload, error)
}
