// Package objectstore is a filesystem bucket for customer reference photos.
// Objects are served through URLs carrying a signed, expiring token.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/auth"
)

type Bucket struct {
	root    string
	signer  *auth.Signer
	urlBase string
}

// NewSigner returns the signer for upload URLs. Its tokens carry the
// upload audience, which the API refuses as bearer tokens.
func NewSigner(secret string) *auth.Signer {
	return auth.NewSigner(secret, "objectstore").WithAudience(auth.AudienceUploads)
}

// New creates the bucket rooted at dir. Signed URLs are urlBase + "/" + key.
func New(dir string, signer *auth.Signer, urlBase string) (*Bucket, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("objectstore: create %s: %w", dir, err)
	}
	return &Bucket{root: dir, signer: signer, urlBase: strings.TrimRight(urlBase, "/")}, nil
}

var _ ports.ObjectStore = (*Bucket)(nil)

// Put writes r under key. The object only becomes visible once complete.
func (b *Bucket) Put(_ context.Context, key string, r io.Reader) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("objectstore: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("objectstore: write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("objectstore: commit %s: %w", key, err)
	}
	return nil
}

func (b *Bucket) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("objectstore: %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("objectstore: open %s: %w", key, err)
	}
	return f, nil
}

func (b *Bucket) Remove(_ context.Context, key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("objectstore: %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("objectstore: remove %s: %w", key, err)
	}
	return nil
}

// SignURL returns a URL to key that stays valid for ttl.
func (b *Bucket) SignURL(key string, ttl time.Duration) (string, error) {
	if _, err := b.path(key); err != nil {
		return "", err
	}
	tok, err := b.signer.GenerateToken(key, "", ttl)
	if err != nil {
		return "", fmt.Errorf("objectstore: sign %s: %w", key, err)
	}
	return b.urlBase + "/" + key + "?token=" + url.QueryEscape(tok), nil
}

// VerifyURL checks that token was issued for key and has not expired.
func (b *Bucket) VerifyURL(key, token string) error {
	claims, err := b.signer.ValidateToken(token)
	if err != nil {
		return fmt.Errorf("objectstore: %w", domain.ErrForbidden)
	}
	if claims.Subject != key {
		return fmt.Errorf("objectstore: token is for another object: %w", domain.ErrForbidden)
	}
	return nil
}

// path maps key to a file under root, rejecting keys that escape it.
func (b *Bucket) path(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if key == "" || clean != key || strings.HasPrefix(clean, ".") {
		return "", domain.Invalid("key", "invalid object key %q", key)
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}
