package securestore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// Versioned prefix to allow future key/algorithm rotations
	cipherPrefixV1 = "v1:"

	fileVersion = 1
	keySize     = chacha20poly1305.KeySize
	hkdfInfo    = "bumbeez-securestore-v1"
)

var (
	// ErrCorrupt is returned when a stored value cannot be decrypted
	ErrCorrupt = errors.New("securestore: stored value is corrupt or was sealed with another key")

	// ErrEmptySecret is returned when no master secret is available
	ErrEmptySecret = errors.New("securestore: master secret is empty")
)

type fileContents struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries"`
}

// FileStore is a Store backed by one JSON file whose values are sealed with
// XChaCha20-Poly1305. Each operation opens the file, works on it and
// releases it before returning; nothing is held between calls.
type FileStore struct {
	mu   sync.Mutex
	path string
	aead cipher.AEAD
}

// NewFileStore creates a FileStore at path. The encryption key is derived
// from secret with HKDF-SHA256.
func NewFileStore(path string, secret []byte) (*FileStore, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("securestore: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("securestore: init cipher: %w", err)
	}
	return &FileStore{path: path, aead: aead}, nil
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.with(ctx, func(c *fileContents) (bool, error) {
		sealed, ok := c.Entries[key]
		if !ok {
			return false, nil
		}
		plain, err := s.open(key, sealed)
		if err != nil {
			return false, err
		}
		value, found = plain, true
		return false, nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	return s.with(ctx, func(c *fileContents) (bool, error) {
		sealed, err := s.seal(key, value)
		if err != nil {
			return false, err
		}
		c.Entries[key] = sealed
		return true, nil
	})
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.with(ctx, func(c *fileContents) (bool, error) {
		if _, ok := c.Entries[key]; !ok {
			return false, nil
		}
		delete(c.Entries, key)
		return true, nil
	})
}

// with acquires the store, loads the file, runs fn and writes the file back
// when fn reports a change. The lock is released on every path.
func (s *FileStore) with(ctx context.Context, fn func(*fileContents) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.load()
	if err != nil {
		return err
	}

	changed, err := fn(contents)
	if err != nil || !changed {
		return err
	}
	return s.save(contents)
}

func (s *FileStore) load() (*fileContents, error) {
	contents := &fileContents{Version: fileVersion, Entries: map[string]string{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return contents, nil
		}
		return nil, fmt.Errorf("securestore: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return contents, nil
	}

	if err := json.Unmarshal(data, contents); err != nil {
		return nil, fmt.Errorf("securestore: parse %s: %w", s.path, err)
	}
	if contents.Entries == nil {
		contents.Entries = map[string]string{}
	}
	return contents, nil
}

// save writes through a temp file and rename so a crash never leaves a
// half-written credentials file behind.
func (s *FileStore) save(contents *fileContents) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("securestore: create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("securestore: encode: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("securestore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("securestore: write: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("securestore: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("securestore: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("securestore: replace %s: %w", s.path, err)
	}
	return nil
}

// seal binds the entry key as associated data so values cannot be swapped
// between keys.
func (s *FileStore) seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("securestore: nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return cipherPrefixV1 + base64.StdEncoding.EncodeToString(out), nil
}

func (s *FileStore) open(key, sealed string) (string, error) {
	if !strings.HasPrefix(sealed, cipherPrefixV1) {
		return "", ErrCorrupt
	}
	raw, err := base64.StdEncoding.DecodeString(sealed[len(cipherPrefixV1):])
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", ErrCorrupt
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return "", ErrCorrupt
	}
	return string(plain), nil
}

// LoadOrCreateKey returns the key stored at path, generating a random
// 32-byte key (mode 0600) on first use.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil || len(key) == 0 {
			return nil, fmt.Errorf("securestore: invalid key file %s", path)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("securestore: read key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("securestore: create key dir: %w", err)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("securestore: generate key: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			// another process won the race
			return LoadOrCreateKey(path)
		}
		return nil, fmt.Errorf("securestore: create key: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(base64.StdEncoding.EncodeToString(key) + "\n"); err != nil {
		return nil, fmt.Errorf("securestore: write key: %w", err)
	}
	return key, nil
}

// MasterSecret returns the configured secret, or the generated key at keyPath
// when none is configured.
func MasterSecret(configured, keyPath string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	return LoadOrCreateKey(keyPath)
}
