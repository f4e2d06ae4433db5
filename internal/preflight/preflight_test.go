package preflight

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func createTestImage(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 230, G: 230, B: 220, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		t.Fatalf("encode png: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func TestNormalizeWritesPNGIntoStaging(t *testing.T) {
	tmp := t.TempDir()
	staging := filepath.Join(tmp, "staging")
	srcPath := filepath.Join(tmp, "scan.png")
	createTestImage(t, srcPath, 300, 200)

	n := New(staging, 0, nil)
	out, err := n.Normalize(context.Background(), srcPath)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if filepath.Dir(out) != staging || filepath.Base(out) != "scan.png" {
		t.Fatalf("unexpected output path: %s", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("normalized file not created: %v", err)
	}
}

func TestNormalizeBoundsOversizedInputs(t *testing.T) {
	tmp := t.TempDir()
	srcPath := filepath.Join(tmp, "big.png")
	createTestImage(t, srcPath, 400, 200)

	n := New(filepath.Join(tmp, "staging"), 100, nil)
	out, err := n.Normalize(context.Background(), srcPath)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("unexpected size after bound: %dx%d, want 100x50", b.Dx(), b.Dy())
	}
}

func TestNormalizeKeepsSmallInputs(t *testing.T) {
	tmp := t.TempDir()
	srcPath := filepath.Join(tmp, "small.png")
	createTestImage(t, srcPath, 80, 60)

	n := New(filepath.Join(tmp, "staging"), 100, nil)
	out, err := n.Normalize(context.Background(), srcPath)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 60 {
		t.Fatalf("small input was resized: %dx%d", b.Dx(), b.Dy())
	}
}

func TestNormalizeRejectsNonImage(t *testing.T) {
	tmp := t.TempDir()
	srcPath := filepath.Join(tmp, "notes.png")
	if err := os.WriteFile(srcPath, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	n := New(filepath.Join(tmp, "staging"), 0, nil)
	if _, err := n.Normalize(context.Background(), srcPath); err == nil {
		t.Fatal("expected decode error")
	} else if !strings.Contains(err.Error(), "open") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeMissingSource(t *testing.T) {
	tmp := t.TempDir()
	n := New(filepath.Join(tmp, "staging"), 0, nil)
	if _, err := n.Normalize(context.Background(), filepath.Join(tmp, "missing.png")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
