package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown token store backend")

// Store persists the single authentication token handed over by the content
// surface. Save replaces any prior value, Clear is a no-op when nothing is
// stored, and Read reports ok=false when the token is absent.
type Store interface {
	Save(ctx context.Context, token string) error
	Read(ctx context.Context) (token string, ok bool, err error)
	Clear(ctx context.Context) error
}

// Memory is a process-local Store.
type Memory struct {
	mu    sync.Mutex
	token string
	set   bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Save stores token, replacing any prior value.
func (m *Memory) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.set = token, true
	return nil
}

// Read returns the stored token.
func (m *Memory) Read(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.set, nil
}

// Clear removes the stored token.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.set = "", false
	return nil
}

// Options selects and configures a backend for Open.
type Options struct {
	Backend string // "file", "redis", "memory"

	// file
	Path   string
	Secret string

	// redis
	Redis RedisOptions
}

// Open builds the Store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "file":
		return NewFile(opts.Path, opts.Secret), nil
	case "redis":
		return NewRedis(ctx, opts.Redis)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
