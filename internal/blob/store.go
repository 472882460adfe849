package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store persists alert artifacts under a filesystem root laid out as
// <root>/<prefix>/<date>/<name> and maps stored objects to public
// HTTPS URLs for notification payloads.
type Store struct {
	Root          string
	PublicURLBase string
}

func NewStore(root, publicURLBase string) *Store {
	return &Store{Root: root, PublicURLBase: strings.TrimRight(publicURLBase, "/")}
}

// Copy uploads the local file under the given prefix and today's date
// (in the file timestamp's local day), returning the object name.
func (s *Store) Copy(localPath, prefix string, ts int64) (string, error) {
	day := time.Unix(ts, 0).Format("2006-01-02")
	name := filepath.Join(prefix, day, filepath.Base(localPath))
	dest := filepath.Join(s.Root, name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("blob mkdir: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("blob open source: %w", err)
	}
	defer src.Close()

	tmp := dest + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("blob create: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("blob write: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("blob finalize: %w", err)
	}
	return filepath.ToSlash(name), nil
}

// Download copies a stored object to a local path.
func (s *Store) Download(name, localPath string) error {
	src, err := os.Open(filepath.Join(s.Root, filepath.FromSlash(name)))
	if err != nil {
		return fmt.Errorf("blob download: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("blob download: %w", err)
	}
	return nil
}

// Open returns a reader over a stored object.
func (s *Store) Open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.Root, filepath.FromSlash(name)))
}

// PublicURL rewrites an object name to its externally reachable form.
func (s *Store) PublicURL(name string) string {
	return s.PublicURLBase + "/" + strings.TrimLeft(filepath.ToSlash(name), "/")
}
