package chainpost

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth   = 800
	jpegQuality     = 80
	defaultImageExt = ".png"
	uploadsSubdir   = "uploads"
)

// UploadStore persists post images under <staticDir>/uploads. The stored name
// is <slug><ext> with the extension taken from the upload, so the public
// reference "/uploads/<slug><ext>" is derivable from post metadata alone.
type UploadStore struct {
	dir string
}

// NewUploadStore returns an UploadStore writing into the uploads subdirectory
// of staticDir.
func NewUploadStore(staticDir string) *UploadStore {
	return &UploadStore{dir: filepath.Join(staticDir, uploadsSubdir)}
}

// Save writes the uploaded bytes for slug and returns the public reference
// path. JPEG uploads are decoded, downscaled to maxImageWidth when wider, and
// re-encoded; other formats are stored verbatim so the recorded extension
// keeps matching the actual bytes.
func (u *UploadStore) Save(slug, originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = defaultImageExt
	}
	if ext == ".jpg" || ext == ".jpeg" {
		if resized, err := reencodeJPEG(data); err == nil {
			data = resized
		}
	}
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	filename := slug + ext
	if err := os.WriteFile(filepath.Join(u.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return "/" + uploadsSubdir + "/" + filename, nil
}

// Dir returns the filesystem directory uploads are written to, for serving.
func (u *UploadStore) Dir() string { return u.dir }

// reencodeJPEG decodes an image, scales it down to maxImageWidth when wider,
// and encodes it as JPEG.
func reencodeJPEG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
