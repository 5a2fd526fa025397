package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	"github.com/zentra/emojigen/pkg/storage"
)

var ErrUploadFailed = errors.New("upload failed")

const (
	MaxImageSize = 10 * 1024 * 1024 // 10MB

	defaultContentType = "image/png"
	cacheControl       = "max-age=3600"
)

type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Uploader copies provider-hosted images into our bucket.
type Uploader struct {
	store        storage.ObjectStore
	httpClient   *http.Client
	maxDimension int
}

// NewUploader returns an uploader writing to store. maxDimension > 0 downscales
// larger images before upload; 0 stores the fetched bytes unchanged.
func NewUploader(store storage.ObjectStore, httpClient *http.Client, maxDimension int) *Uploader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Uploader{
		store:        store,
		httpClient:   httpClient,
		maxDimension: maxDimension,
	}
}

// ObjectKey is where an upload for userID lands: <userID>/<uuid>.png. The user
// id is path-escaped so it always stays a single key segment.
func ObjectKey(userID string) (string, error) {
	switch userID {
	case "":
		return "", errors.New("user id is required")
	case ".", "..":
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return fmt.Sprintf("%s/%s.png", url.PathEscape(userID), uuid.New().String()), nil
}

// Upload fetches sourceURL and stores it under the user's prefix. Every
// failure wraps ErrUploadFailed.
func (u *Uploader) Upload(ctx context.Context, sourceURL, userID string) (*UploadResult, error) {
	key, err := ObjectKey(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	data, contentType, err := u.fetch(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	if u.maxDimension > 0 {
		data, contentType = u.downscale(ctx, data, contentType)
	}

	publicURL, err := u.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	zerolog.Ctx(ctx).Debug().Str("key", key).Int("size", len(data)).Msg("Stored emoji image")

	return &UploadResult{
		Key:         key,
		URL:         publicURL,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Discard removes a previously uploaded object. Used when the record that
// would point at it could not be saved.
func (u *Uploader) Discard(ctx context.Context, key string) error {
	return u.store.Remove(ctx, key)
}

func (u *Uploader) fetch(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid source URL: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, "", fmt.Errorf("image exceeds %d bytes", MaxImageSize)
	}
	if len(data) == 0 {
		return nil, "", errors.New("image is empty")
	}

	return data, imageContentType(resp.Header.Get("Content-Type")), nil
}

// imageContentType keeps the source's type when it is an image and falls back
// to PNG, which is what the provider serves.
func imageContentType(header string) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return defaultContentType
	}
	return mediaType
}

// downscale shrinks images larger than maxDimension and re-encodes them as PNG
// to keep transparency. Undecodable input is stored as-is.
func (u *Uploader) downscale(ctx context.Context, data []byte, contentType string) ([]byte, string) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("Skipping resize of undecodable image")
		return data, contentType
	}

	bounds := img.Bounds()
	if bounds.Dx() <= u.maxDimension && bounds.Dy() <= u.maxDimension {
		return data, contentType
	}

	img = resize.Thumbnail(uint(u.maxDimension), uint(u.maxDimension), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return data, contentType
	}
	return buf.Bytes(), "image/png"
}
