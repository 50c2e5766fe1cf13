// Package uploads stores order attachments on local disk.
package uploads

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type: only PNG, JPG, JPEG and PDF are allowed")
	ErrImageTooLarge   = errors.New("image dimensions too large")
)

// MaxImagePixels bounds width*height of an image before it is decoded.
const MaxImagePixels = 50_000_000

// MaxImageWidth is the width images are scaled down to.
const MaxImageWidth = 1200

type Storage struct {
	Dir string
}

func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{Dir: dir}, nil
}

// Save writes the uploaded file and returns the stored file name. Names are
// "<unix-millis>-<random><ext>" so they sort by upload time.
func (s *Storage) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg":
		return s.saveImage(file, ext)
	case ".pdf":
		return s.saveRaw(file, ext)
	default:
		return "", ErrUnsupportedType
	}
}

func newName(ext string) string {
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.New().String()[:8], ext)
}

func (s *Storage) saveImage(file io.ReadSeeker, ext string) (string, error) {
	decodeConfig := jpeg.DecodeConfig
	if ext == ".png" {
		decodeConfig = png.DecodeConfig
	}
	cfg, err := decodeConfig(file)
	if err != nil {
		return "", fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	var img image.Image
	if ext == ".png" {
		img, err = png.Decode(file)
	} else {
		img, err = jpeg.Decode(file)
	}
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	// Only shrink; width 0 keeps the aspect ratio.
	if img.Bounds().Dx() > MaxImageWidth {
		img = resize.Resize(MaxImageWidth, 0, img, resize.Lanczos3)
	}

	name := newName(".jpg")
	out, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 80}); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("encode image: %w", err)
	}
	return name, nil
}

func (s *Storage) saveRaw(file io.Reader, ext string) (string, error) {
	name := newName(ext)
	out, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	return name, nil
}

// Remove deletes a stored file. Names that would leave the upload directory
// are refused; a missing file is not an error.
func (s *Storage) Remove(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("refusing to delete path outside upload dir: %s", name)
	}
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the on-disk location of a stored file.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.Dir, filepath.Base(name))
}
