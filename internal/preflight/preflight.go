// Package preflight validates and normalizes input images before they are
// fed to the scanning application: anything it cannot decode would only
// fail later inside the automation, where the error is expensive to
// observe. Inputs are re-encoded as PNG into a staging directory so every
// open dialog interaction works from one directory and one format.
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

type Normalizer struct {
	stagingDir string
	maxEdge    int
	logger     *slog.Logger
}

// New returns a Normalizer writing into stagingDir. maxEdge bounds the
// longer image edge (oversized scans slow recognition down noticeably);
// zero keeps the original size.
func New(stagingDir string, maxEdge int, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{stagingDir: stagingDir, maxEdge: maxEdge, logger: logger}
}

// Normalize decodes srcPath, applies orientation and the size bound, and
// writes a PNG into the staging directory, returning its path.
func (n *Normalizer) Normalize(ctx context.Context, srcPath string) (string, error) {
	src, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}

	b := src.Bounds()
	if n.maxEdge > 0 && (b.Dx() > n.maxEdge || b.Dy() > n.maxEdge) {
		n.logger.Info("downscaling oversized input", "input", filepath.Base(srcPath), "width", b.Dx(), "height", b.Dy(), "max_edge", n.maxEdge)
		src = imaging.Fit(src, n.maxEdge, n.maxEdge, imaging.Lanczos)
	}

	if err := os.MkdirAll(n.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir staging: %w", err)
	}

	base := filepath.Base(srcPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dstPath := filepath.Join(n.stagingDir, stem+".png")
	if err := imaging.Save(src, dstPath); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	return dstPath, nil
}
