package attach

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// LocalStore keeps attachments on disk under dir/<threadID>/<sealed name>.
// Stored object names are sealed with an AEAD so a directory listing does
// not reveal the original filenames.
type LocalStore struct {
	dir string
	key [32]byte
}

func NewLocalStore(dir, nameKey string) (*LocalStore, error) {
	if nameKey == "" {
		return nil, fmt.Errorf("empty attachment name key")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &LocalStore{dir: dir, key: sha256.Sum256([]byte(nameKey))}, nil
}

func (s *LocalStore) Put(ctx context.Context, threadID, name string, r io.Reader) (string, error) {
	if threadID == "" || name == "" {
		return "", fmt.Errorf("thread id and file name required")
	}

	sealed, err := s.sealName(threadID, filepath.Base(name))
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.dir, threadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create thread dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, sealed))
	if err != nil {
		return "", fmt.Errorf("create attachment file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return threadID + "/" + sealed, nil
}

func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	threadID, sealed, ok := strings.Cut(ref, "/")
	if !ok {
		return nil, fmt.Errorf("malformed attachment ref")
	}
	// refuse refs that escape the store directory
	if strings.ContainsAny(threadID, `/\`) || strings.ContainsAny(sealed, `/\`) ||
		threadID == "." || threadID == ".." || sealed == "." || sealed == ".." {
		return nil, fmt.Errorf("malformed attachment ref")
	}
	return os.Open(filepath.Join(s.dir, threadID, sealed))
}

func (s *LocalStore) URL(ref string) string {
	return "/attachments/" + ref
}

// Name recovers the original filename from a ref, for download headers.
func (s *LocalStore) Name(ref string) (string, error) {
	threadID, sealed, ok := strings.Cut(ref, "/")
	if !ok {
		return "", fmt.Errorf("malformed attachment ref")
	}
	return s.openName(threadID, sealed)
}

// sealName encrypts the filename with XChaCha20-Poly1305, binding it to
// the thread so a sealed name cannot be replayed across threads.
func (s *LocalStore) sealName(threadID, name string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand.Read nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(name), []byte(threadID))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *LocalStore) openName(threadID, sealedName string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return "", err
	}

	sealed, err := base64.RawURLEncoding.DecodeString(sealedName)
	if err != nil {
		return "", fmt.Errorf("malformed sealed name")
	}

	ns := aead.NonceSize()
	if len(sealed) < ns {
		return "", fmt.Errorf("sealed name too short")
	}

	name, err := aead.Open(nil, sealed[:ns], sealed[ns:], []byte(threadID))
	if err != nil {
		return "", fmt.Errorf("open sealed name: %w", err)
	}
	return string(name), nil
}
