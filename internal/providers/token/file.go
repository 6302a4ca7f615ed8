package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealVersion = 1
	saltSize    = 16
	filePrefix  = "PMSTOK1\n"
)

var (
	// ErrSealed is returned when the token file cannot be opened with the
	// configured secret.
	ErrSealed = errors.New("token file authentication failed")
	// ErrCorrupt is returned when the token file is not a sealed envelope.
	ErrCorrupt = errors.New("token file is corrupt")
)

type envelope struct {
	Version    uint32 `json:"version"`
	KDF        string `json:"kdf"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// File keeps the token in a sealed file. The file content is an argon2id /
// XChaCha20-Poly1305 envelope so the token is not readable at rest.
type File struct {
	path   string
	secret string
	mu     sync.Mutex
}

// NewFile creates a file-backed store at path. An empty secret still seals
// the file, with a key derived from the empty passphrase.
func NewFile(path, secret string) *File {
	return &File{path: path, secret: strings.TrimSpace(secret)}
}

// Save seals token and replaces the file atomically.
func (f *File) Save(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sealed, err := seal(f.secret, []byte(token))
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace token: %w", err)
	}
	return nil
}

// Read opens the sealed file. A missing file means no token.
func (f *File) Read(_ context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read token: %w", err)
	}

	plain, err := open(f.secret, data)
	if err != nil {
		return "", false, err
	}
	return string(plain), true, nil
}

// Clear deletes the file; a missing file is not an error.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

func seal(secret string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(secret, salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	raw, err := sonic.ConfigStd.Marshal(envelope{
		Version:    sealVersion,
		KDF:        "argon2id",
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

func open(secret string, data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), filePrefix) {
		return nil, ErrCorrupt
	}
	var env envelope
	if err := sonic.ConfigStd.Unmarshal(data[len(filePrefix):], &env); err != nil {
		return nil, ErrCorrupt
	}
	if env.Version != sealVersion || env.KDF != "argon2id" {
		return nil, ErrCorrupt
	}

	key := deriveKey(secret, env.Salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrSealed
	}
	return plain, nil
}

func deriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, 2, 64*1024, 1, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
