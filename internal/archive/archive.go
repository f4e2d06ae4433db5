// Package archive pushes exported scores into the simple-content domain
// service, attached as derived content under a batch collection that is
// provisioned out of band. Archiving is optional; the batch never depends
// on it.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	simplecontent "github.com/tendant/simple-content/pkg/simplecontent"
)

// contentService is the slice of simplecontent.Service the uploader needs.
type contentService interface {
	GetContent(ctx context.Context, id uuid.UUID) (*simplecontent.Content, error)
	UploadDerivedContent(ctx context.Context, req simplecontent.UploadDerivedContentRequest) (*simplecontent.Content, error)
}

// Uploader stores exported scores under one parent content.
type Uploader struct {
	svc      contentService
	backend  string
	parentID uuid.UUID
	logger   *slog.Logger

	parent *simplecontent.Content
}

func NewUploader(svc contentService, backend string, parentID uuid.UUID, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{svc: svc, backend: backend, parentID: parentID, logger: logger}
}

func (u *Uploader) resolveParent(ctx context.Context) (*simplecontent.Content, error) {
	if u.parent != nil {
		return u.parent, nil
	}
	parent, err := u.svc.GetContent(ctx, u.parentID)
	if err != nil {
		return nil, fmt.Errorf("get parent content %s: %w", u.parentID, err)
	}
	u.parent = parent
	return parent, nil
}

// ArchiveScore uploads the exported score at scorePath as derived content
// of the configured parent, recording which input image produced it.
func (u *Uploader) ArchiveScore(ctx context.Context, inputPath, scorePath string) (*simplecontent.Content, error) {
	parent, err := u.resolveParent(ctx)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(scorePath)
	if err != nil {
		return nil, fmt.Errorf("stat score: %w", err)
	}
	file, err := os.Open(scorePath)
	if err != nil {
		return nil, fmt.Errorf("open score: %w", err)
	}
	defer file.Close()

	derived, err := u.svc.UploadDerivedContent(ctx, simplecontent.UploadDerivedContentRequest{
		ParentID:           parent.ID,
		OwnerID:            parent.OwnerID,
		TenantID:           parent.TenantID,
		DerivationType:     "recognition",
		Variant:            "csc",
		StorageBackendName: u.backend,
		Reader:             file,
		FileName:           filepath.Base(scorePath),
		FileSize:           info.Size(),
		Tags:               []string{"recognition", "score"},
		Metadata: map[string]interface{}{
			"source": filepath.Base(inputPath),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload derived content: %w", err)
	}

	u.logger.Info("score archived", "score", filepath.Base(scorePath), "content_id", derived.ID.String())
	return derived, nil
}
