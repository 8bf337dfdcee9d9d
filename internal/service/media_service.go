package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"dreamio/internal/config"
	"dreamio/internal/middleware"
	"dreamio/internal/models"
	"dreamio/internal/observability"

	"github.com/chai2010/webp"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultUploadDir            = "./uploads"
	DefaultEventMaxUploadSizeMB = 10
	ProfileImageMaxBytes        = 5 << 20
	StreamVideoMaxBytes         = 500 << 20

	// PublicUploadPrefix is the URL prefix under which UploadDir is served.
	PublicUploadPrefix = "/uploads"

	ThumbnailMaxWidth  = 640
	ThumbnailMaxHeight = 360
	WebPQuality        = 70

	sniffLen = 3072
)

// Upload subdirectories below UploadDir.
const (
	DirProfiles = "profiles"
	DirImages   = "images"
	DirVideos   = "videos"
)

// MediaKind selects the storage rule applied to an upload.
type MediaKind string

const (
	KindProfileImage MediaKind = "profile"
	KindCoverImage   MediaKind = "cover"
	KindEventVideo   MediaKind = "event_video"
	KindStreamVideo  MediaKind = "stream_video"
)

type mediaRule struct {
	dir      string
	prefix   string
	class    string
	maxBytes int64
}

// MediaService stores uploaded files on local disk under UploadDir.
type MediaService struct {
	root  string
	rules map[MediaKind]mediaRule
}

// NewMediaService builds the store from cfg; a nil cfg uses defaults.
func NewMediaService(cfg *config.Config) *MediaService {
	root := DefaultUploadDir
	eventMaxMB := DefaultEventMaxUploadSizeMB
	if cfg != nil {
		if cfg.UploadDir != "" {
			root = cfg.UploadDir
		}
		if cfg.EventMaxUploadSizeMB > 0 {
			eventMaxMB = cfg.EventMaxUploadSizeMB
		}
	}
	eventMax := int64(eventMaxMB) << 20

	return &MediaService{
		root: root,
		rules: map[MediaKind]mediaRule{
			KindProfileImage: {dir: DirProfiles, prefix: "profile-", class: "image", maxBytes: ProfileImageMaxBytes},
			KindCoverImage:   {dir: DirImages, class: "image", maxBytes: eventMax},
			KindEventVideo:   {dir: DirVideos, class: "video", maxBytes: eventMax},
			KindStreamVideo:  {dir: DirVideos, class: "video", maxBytes: StreamVideoMaxBytes},
		},
	}
}

// Root is the directory holding all uploads.
func (s *MediaService) Root() string {
	return s.root
}

// EnsureDirs creates the upload directory tree.
func (s *MediaService) EnsureDirs() error {
	for _, dir := range []string{DirProfiles, DirImages, DirVideos} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("create upload dir %s: %w", dir, err)
		}
	}
	return nil
}

// Save stores a multipart upload and returns its public path.
func (s *MediaService) Save(ctx context.Context, kind MediaKind, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", models.NewValidationError("No file uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return "", models.NewValidationError("Unreadable upload")
	}
	defer f.Close()
	return s.SaveReader(ctx, kind, fh.Filename, fh.Size, f)
}

// SaveReader stores r under a fresh UUID name after checking its size and
// sniffed content type. size may be -1 when unknown.
func (s *MediaService) SaveReader(ctx context.Context, kind MediaKind, filename string, size int64, r io.Reader) (publicPath string, err error) {
	rule, ok := s.rules[kind]
	if !ok {
		return "", models.NewInternalError(fmt.Errorf("unknown media kind %q", kind))
	}

	_, span := observability.StartSpan(ctx, "media.save",
		attribute.String("media.kind", string(kind)),
		attribute.String("media.filename", filename))
	defer func() { observability.EndSpan(span, err) }()

	if size > rule.maxBytes {
		return "", tooLarge(rule.maxBytes)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", models.NewValidationError("Unreadable upload")
	}
	head = head[:n]
	if n == 0 {
		return "", models.NewValidationError("Uploaded file is empty")
	}

	detected := mimetype.Detect(head)
	if !strings.HasPrefix(detected.String(), rule.class+"/") {
		return "", models.NewValidationError(fmt.Sprintf("Only %s files are allowed", rule.class))
	}

	// The stored extension decides how /uploads serves the file, so it comes
	// from the content and never from the client's filename.
	ext := detected.Extension()
	if ext == "" {
		return "", models.NewValidationError(fmt.Sprintf("Unsupported %s format", rule.class))
	}
	name := rule.prefix + uuid.NewString() + ext
	dst := filepath.Join(s.root, rule.dir, name)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", models.NewInternalError(err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	limited := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), rule.maxBytes+1)
	written, copyErr := io.Copy(out, limited)
	closeErr := out.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(dst)
		return "", models.NewInternalError(copyErr)
	case closeErr != nil:
		_ = os.Remove(dst)
		return "", models.NewInternalError(closeErr)
	case written > rule.maxBytes:
		_ = os.Remove(dst)
		return "", tooLarge(rule.maxBytes)
	}

	middleware.UploadsTotal.WithLabelValues(string(kind)).Inc()
	middleware.UploadBytes.WithLabelValues(string(kind)).Observe(float64(written))
	return path.Join(PublicUploadPrefix, rule.dir, name), nil
}

func tooLarge(limit int64) error {
	return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", limit>>20))
}

// diskPath maps a public upload path to a file below root. ok is false for
// paths outside the upload tree.
func (s *MediaService) diskPath(publicPath string) (string, bool) {
	rel, found := strings.CutPrefix(path.Clean("/"+publicPath), PublicUploadPrefix+"/")
	if !found || rel == "" {
		return "", false
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), true
}

// Remove deletes stored files. Failures are logged and otherwise ignored.
func (s *MediaService) Remove(ctx context.Context, publicPaths ...string) {
	for _, p := range publicPaths {
		if p == "" {
			continue
		}
		disk, ok := s.diskPath(p)
		if !ok {
			continue
		}
		if err := os.Remove(disk); err != nil && !errors.Is(err, os.ErrNotExist) {
			middleware.Logger.WarnContext(ctx, "failed to remove upload",
				slog.String("path", p), slog.String("error", err.Error()))
		}
	}
}

// CoverThumbnail writes a WebP thumbnail next to a stored cover image and
// returns its public path.
func (s *MediaService) CoverThumbnail(ctx context.Context, coverPath string) (thumbPath string, err error) {
	_, span := observability.StartSpan(ctx, "media.thumbnail")
	defer func() { observability.EndSpan(span, err) }()

	src, ok := s.diskPath(coverPath)
	if !ok {
		return "", fmt.Errorf("cover %q is not an upload", coverPath)
	}
	f, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode cover: %w", err)
	}

	var buf bytes.Buffer
	thumb := resizeToFit(img, ThumbnailMaxWidth, ThumbnailMaxHeight)
	if err := webp.Encode(&buf, thumb, &webp.Options{Quality: WebPQuality}); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	name := base + "-thumb.webp"
	if err := os.WriteFile(filepath.Join(filepath.Dir(src), name), buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path.Join(path.Dir(coverPath), name), nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
