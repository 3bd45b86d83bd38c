package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mikepea/photocards/pkg/photocards/backend"
)

// Ensure Disk implements backend.ObjectStore
var _ backend.ObjectStore = (*Disk)(nil)

// ErrInvalidKey is returned for keys that would escape the bucket directory
var ErrInvalidKey = errors.New("invalid object key")

// Disk stores objects as files under Root/Bucket and serves them from
// BaseURL + "/storage/" + Bucket.
type Disk struct {
	Root    string
	Bucket  string
	BaseURL string
}

// NewDisk creates the bucket directory and returns a disk store
func NewDisk(root, bucket, baseURL string) (*Disk, error) {
	d := &Disk{Root: root, Bucket: bucket, BaseURL: baseURL}
	if err := os.MkdirAll(d.Dir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return d, nil
}

// Dir is the directory holding the bucket's files
func (d *Disk) Dir() string {
	return filepath.Join(d.Root, d.Bucket)
}

func (d *Disk) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", ErrInvalidKey
	}
	return filepath.Join(d.Dir(), key), nil
}

// Upload writes body to the bucket directory, refusing to overwrite
func (d *Disk) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create object %s: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	return f.Close()
}

// PublicURL returns the URL the web server serves key from
func (d *Disk) PublicURL(key string) string {
	return publicURL(strings.TrimRight(d.BaseURL, "/")+"/storage", d.Bucket, key)
}

// KeyFromURL parses a URL produced by PublicURL
func (d *Disk) KeyFromURL(rawURL string) (string, bool) {
	return keyAfterMarker(rawURL, d.Bucket)
}

// Remove deletes the named files; every key is attempted
func (d *Disk) Remove(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		p, err := d.path(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if err := os.Remove(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
