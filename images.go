package penpost

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/eringen/penpost/imagehost"
)

const (
	imageFolder    = "blog_images"
	maxImageWidth  = 1000
	maxImageHeight = 600
	jpegQuality    = 82
)

// UploadResult is the outcome of one image upload. On failure URL holds the
// default image, Fallback is set and Err says why.
type UploadResult struct {
	URL      string
	Fallback bool
	Err      error
}

// ImagePipeline validates post images, normalizes them and uploads them to
// an image host. Host failures never fail the caller: they degrade to the
// default image.
type ImagePipeline struct {
	host       imagehost.Host
	timeout    time.Duration
	maxSize    int64
	defaultURL string
	log        zerolog.Logger
	now        func() time.Time
}

// NewImagePipeline returns a pipeline uploading to host.
func NewImagePipeline(host imagehost.Host, cfg Config, log zerolog.Logger) *ImagePipeline {
	return &ImagePipeline{
		host:       host,
		timeout:    cfg.UploadTimeout,
		maxSize:    cfg.MaxImageSize,
		defaultURL: cfg.DefaultImageURL,
		log:        log,
		now:        time.Now,
	}
}

// Validate rejects files that do not declare an image MIME type or exceed
// the size limit.
func (p *ImagePipeline) Validate(fh *multipart.FileHeader) error {
	ct := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: only image files are allowed", ErrValidation)
	}
	if fh.Size > p.maxSize {
		return fmt.Errorf("%w: image is larger than %d KiB", ErrValidation, p.maxSize>>10)
	}
	return nil
}

// Start uploads data in the background. The returned channel yields exactly
// one result and is then closed.
func (p *ImagePipeline) Start(ctx context.Context, data []byte, contentType string) <-chan UploadResult {
	ch := make(chan UploadResult, 1)
	go func() {
		defer close(ch)
		ch <- p.Upload(ctx, data, contentType)
	}()
	return ch
}

type hostReply struct {
	url string
	err error
}

// Upload normalizes data and stores it on the image host, waiting at most
// the configured timeout.
func (p *ImagePipeline) Upload(ctx context.Context, data []byte, contentType string) UploadResult {
	obj, err := p.prepare(data)
	if err != nil {
		p.log.Warn().Err(err).Str("content_type", contentType).Msg("image rejected, using default image")
		return UploadResult{URL: p.defaultURL, Fallback: true, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan hostReply, 1)
	go func() {
		url, err := p.host.Upload(ctx, obj)
		done <- hostReply{url: url, err: err}
	}()

	var reply hostReply
	select {
	case reply = <-done:
	case <-ctx.Done():
		reply.err = ctx.Err()
	}
	if reply.err == nil && reply.url == "" {
		reply.err = fmt.Errorf("image host returned no url")
	}
	if reply.err != nil {
		p.log.Warn().Err(reply.err).Str("public_id", obj.PublicID).Msg("image upload failed, using default image")
		return UploadResult{
			URL:      p.defaultURL,
			Fallback: true,
			Err:      fmt.Errorf("%w: %w", ErrUpstreamUnavailable, reply.err),
		}
	}
	return UploadResult{URL: reply.url}
}

// prepare re-encodes data for the host. Only bytes that decode as an image
// are stored, so the host never serves what the uploader declared.
func (p *ImagePipeline) prepare(data []byte) (imagehost.Object, error) {
	out, ct, err := normalizeImage(data)
	if err != nil {
		return imagehost.Object{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return imagehost.Object{
		Folder:      imageFolder,
		PublicID:    fmt.Sprintf("%d-%s", p.now().UnixMilli(), uuid.NewString()[:8]),
		Ext:         extForType(ct),
		ContentType: ct,
		Data:        out,
	}, nil
}

// normalizeImage decodes src, shrinks it to fit within maxImageWidth x
// maxImageHeight keeping its aspect ratio, and re-encodes it. PNGs stay PNG
// to keep transparency; everything else becomes JPEG.
func normalizeImage(src []byte) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := fitWithin(bounds.Dx(), bounds.Dy(), maxImageWidth, maxImageHeight)
	if w != bounds.Dx() || h != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if format == "png" {
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// fitWithin scales w x h down to fit maxW x maxH. Smaller images are kept.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	// Compare w/maxW against h/maxH without floating point.
	if w*maxH >= h*maxW {
		nh := h * maxW / w
		if nh < 1 {
			nh = 1
		}
		return maxW, nh
	}
	nw := w * maxH / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxH
}

func extForType(contentType string) string {
	if contentType == "image/png" {
		return ".png"
	}
	return ".jpg"
}
