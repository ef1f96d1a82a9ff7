package media

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 << 20

var (
	// ErrTooLarge is returned for uploads over MaxImageSize.
	ErrTooLarge = errors.New("media: image exceeds 5MB")
	// ErrNotImage is returned when the payload is not an image.
	ErrNotImage = errors.New("media: only image files are accepted")
	// ErrEmpty is returned for zero-byte uploads.
	ErrEmpty = errors.New("media: empty file")
)

// Image is a validated upload.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

var extByType = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/bmp":     "bmp",
	"image/x-icon":  "ico",
	"image/svg+xml": "svg",
	"image/avif":    "avif",
}

// ValidateImage checks size and content type. The type is sniffed from the bytes;
// declared is only trusted for SVG, which has no magic number.
func ValidateImage(data []byte, filename, declared string) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}
	if len(data) > MaxImageSize {
		return Image{}, fmt.Errorf("%w (%d bytes)", ErrTooLarge, len(data))
	}

	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if !strings.HasPrefix(ct, "image/") {
		if isSVG(data, declared) {
			ct = "image/svg+xml"
		} else {
			return Image{}, fmt.Errorf("%w (got %s)", ErrNotImage, ct)
		}
	}

	ext, ok := extByType[ct]
	if !ok {
		ext = strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	}
	if ext == "" {
		ext = "img"
	}
	return Image{Data: data, ContentType: ct, Ext: ext}, nil
}

func isSVG(data []byte, declared string) bool {
	if !strings.HasPrefix(declared, "image/svg") {
		return false
	}
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}
