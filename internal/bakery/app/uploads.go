package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
	"github.com/jcmexdev/bakery-storefront/internal/bakery/ports"
)

const (
	MaxUploadSize = 5 << 20
	UploadPrefix  = "temp-uploads/"
	SignedURLTTL  = time.Hour
	ownerSuffix   = ".owner"
	sniffLen      = 512
)

// uploadTypes maps accepted content types to their key extension.
var uploadTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

type UploadService struct {
	store ports.ObjectStore
}

func NewUploadService(store ports.ObjectStore) *UploadService {
	return &UploadService{store: store}
}

type Upload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Upload stores a reference photo under temp-uploads/<uuid>.<ext>. The type
// is sniffed from the content; the client's file name is ignored.
func (s *UploadService) Upload(ctx context.Context, p domain.Principal, r io.Reader) (*Upload, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return nil, domain.Invalid("file", "the file is empty")
	}
	if n > MaxUploadSize {
		return nil, domain.Invalid("file", "the file is larger than %d MiB", MaxUploadSize>>20)
	}

	head := buf.Bytes()
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	ctype := http.DetectContentType(head)
	ext, ok := uploadTypes[ctype]
	if !ok {
		return nil, domain.Invalid("file", "unsupported file type %s", ctype)
	}

	key := UploadPrefix + uuid.NewString() + "." + ext
	if err := s.store.Put(ctx, key, &buf); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.store.Put(ctx, key+ownerSuffix, strings.NewReader(p.UserID)); err != nil {
		return nil, fmt.Errorf("store upload owner: %w", err)
	}
	url, err := s.store.SignURL(key, SignedURLTTL)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "upload stored", "key", key, "size", n, "content_type", ctype)
	return &Upload{Key: key, URL: url, ContentType: ctype, Size: n}, nil
}

// SignedURL issues a fresh URL for staff or the uploader.
func (s *UploadService) SignedURL(ctx context.Context, p domain.Principal, key string) (string, error) {
	if err := s.authorize(ctx, p, key); err != nil {
		return "", err
	}
	return s.store.SignURL(key, SignedURLTTL)
}

// Open serves an object to anyone holding a valid URL token.
func (s *UploadService) Open(ctx context.Context, key, token string) (io.ReadCloser, string, error) {
	if !isUploadKey(key) {
		return nil, "", fmt.Errorf("upload %s: %w", key, domain.ErrNotFound)
	}
	if err := s.store.VerifyURL(key, token); err != nil {
		return nil, "", err
	}
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return rc, contentTypeOf(key), nil
}

// Remove deletes an upload. Staff may remove any, customers their own.
func (s *UploadService) Remove(ctx context.Context, p domain.Principal, key string) error {
	if err := s.authorize(ctx, p, key); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, key); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, key+ownerSuffix); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "failed to remove upload owner record", "key", key, "error", err)
	}
	slog.InfoContext(ctx, "upload removed", "key", key, "by", p.UserID)
	return nil
}

func (s *UploadService) authorize(ctx context.Context, p domain.Principal, key string) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if !isUploadKey(key) {
		return fmt.Errorf("upload %s: %w", key, domain.ErrNotFound)
	}
	if p.IsStaff() {
		return nil
	}
	owner, err := s.owner(ctx, key)
	if err != nil {
		return err
	}
	if owner != p.UserID {
		return fmt.Errorf("upload %s: %w", key, domain.ErrForbidden)
	}
	return nil
}

func (s *UploadService) owner(ctx context.Context, key string) (string, error) {
	rc, err := s.store.Open(ctx, key+ownerSuffix)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, 256))
	if err != nil {
		return "", fmt.Errorf("read upload owner: %w", err)
	}
	return string(b), nil
}

func isUploadKey(key string) bool {
	return strings.HasPrefix(key, UploadPrefix) && contentTypeOf(key) != ""
}

// contentTypeOf maps a key's extension back to its accepted type, or "".
func contentTypeOf(key string) string {
	ext := strings.TrimPrefix(path.Ext(key), ".")
	for t, e := range uploadTypes {
		if e == ext {
			return t
		}
	}
	return ""
}
