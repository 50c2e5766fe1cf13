package uploads

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"
)

// formFile builds a multipart request carrying one file and returns the
// parsed file and header the way a handler would see them.
func formFile(t *testing.T, filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("attachment", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	w.Close()

	req := httptest.NewRequest("POST", "/create-order", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	file, header, err := req.FormFile("attachment")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	t.Cleanup(func() { file.Close() })
	return file, header
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

var namePattern = regexp.MustCompile(`^\d{13}-[0-9a-f]{8}\.(jpg|pdf)$`)

func TestSaveImageIsResizedAndReencoded(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	file, header := formFile(t, "shirt.PNG", pngBytes(t, 2400, 600))

	name, err := s.Save(file, header)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !namePattern.MatchString(name) {
		t.Fatalf("unexpected name %q", name)
	}

	f, err := os.Open(s.Path(name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("stored file is not a jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != MaxImageWidth || b.Dy() != 300 {
		t.Fatalf("expected %dx300, got %dx%d", MaxImageWidth, b.Dx(), b.Dy())
	}
}

func TestSaveSmallImageKeepsSize(t *testing.T) {
	s, _ := New(t.TempDir())
	file, header := formFile(t, "sock.png", pngBytes(t, 40, 20))

	name, err := s.Save(file, header)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	f, _ := os.Open(s.Path(name))
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 40 || cfg.Height != 20 {
		t.Fatalf("expected 40x20, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSavePDFStoredAsIs(t *testing.T) {
	s, _ := New(t.TempDir())
	content := []byte("%PDF-1.4 receipt")
	file, header := formFile(t, "receipt.pdf", content)

	name, err := s.Save(file, header)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := os.ReadFile(s.Path(name))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("pdf content changed: %q", got)
	}
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	s, _ := New(t.TempDir())
	file, header := formFile(t, "run.exe", []byte("MZ"))

	if _, err := s.Save(file, header); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestSaveRejectsCorruptImage(t *testing.T) {
	s, _ := New(t.TempDir())
	file, header := formFile(t, "broken.jpg", []byte("not an image"))

	if _, err := s.Save(file, header); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRemoveRefusesTraversal(t *testing.T) {
	s, _ := New(t.TempDir())
	if err := s.Remove("../secret"); err == nil {
		t.Fatal("expected traversal to be refused")
	}
	if err := s.Remove("missing.jpg"); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
}

// pngHeaderOnly returns a PNG signature and IHDR chunk declaring the given
// size with no pixel data behind it.
func pngHeaderOnly(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA
	chunk := append([]byte("IHDR"), ihdr...)
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestSaveRejectsHugeDimensionsBeforeDecoding(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	file, header := formFile(t, "bomb.png", pngHeaderOnly(40000, 40000))

	if _, err := s.Save(file, header); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("files written for rejected image: %d", len(entries))
	}
}
