package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	simplecontent "github.com/tendant/simple-content/pkg/simplecontent"
)

type fakeContentService struct {
	parent   *simplecontent.Content
	getErr   error
	gets     int
	requests []simplecontent.UploadDerivedContentRequest
	bodies   [][]byte
}

func (f *fakeContentService) GetContent(ctx context.Context, id uuid.UUID) (*simplecontent.Content, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.parent, nil
}

func (f *fakeContentService) UploadDerivedContent(ctx context.Context, req simplecontent.UploadDerivedContentRequest) (*simplecontent.Content, error) {
	body, err := io.ReadAll(req.Reader)
	if err != nil {
		return nil, err
	}
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, body)
	return &simplecontent.Content{ID: uuid.New(), OwnerID: req.OwnerID, TenantID: req.TenantID}, nil
}

func writeScore(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("capella score data"), 0o644); err != nil {
		t.Fatalf("write score: %v", err)
	}
	return path
}

func TestArchiveScoreUploadsDerivedContent(t *testing.T) {
	parent := &simplecontent.Content{ID: uuid.New(), OwnerID: uuid.New(), TenantID: uuid.New()}
	svc := &fakeContentService{parent: parent}
	u := NewUploader(svc, "s3", parent.ID, nil)

	score := writeScore(t, t.TempDir(), "a.csc")
	derived, err := u.ArchiveScore(context.Background(), "/in/a.png", score)
	if err != nil {
		t.Fatalf("ArchiveScore: %v", err)
	}
	if derived == nil {
		t.Fatal("no derived content returned")
	}

	if len(svc.requests) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(svc.requests))
	}
	req := svc.requests[0]
	if req.ParentID != parent.ID || req.OwnerID != parent.OwnerID || req.TenantID != parent.TenantID {
		t.Fatalf("parent identity not propagated: %+v", req)
	}
	if req.DerivationType != "recognition" || req.Variant != "csc" {
		t.Fatalf("unexpected derivation: %s/%s", req.DerivationType, req.Variant)
	}
	if req.StorageBackendName != "s3" || req.FileName != "a.csc" {
		t.Fatalf("unexpected storage fields: %+v", req)
	}
	if req.FileSize != int64(len("capella score data")) {
		t.Fatalf("file size = %d", req.FileSize)
	}
	if string(svc.bodies[0]) != "capella score data" {
		t.Fatalf("unexpected body: %q", svc.bodies[0])
	}
	if req.Metadata["source"] != "a.png" {
		t.Fatalf("source metadata = %v", req.Metadata["source"])
	}
}

func TestArchiveScoreResolvesParentOnce(t *testing.T) {
	parent := &simplecontent.Content{ID: uuid.New(), OwnerID: uuid.New(), TenantID: uuid.New()}
	svc := &fakeContentService{parent: parent}
	u := NewUploader(svc, "s3", parent.ID, nil)

	dir := t.TempDir()
	for _, name := range []string{"a.csc", "b.csc"} {
		score := writeScore(t, dir, name)
		if _, err := u.ArchiveScore(context.Background(), "/in/x.png", score); err != nil {
			t.Fatalf("ArchiveScore %s: %v", name, err)
		}
	}
	if svc.gets != 1 {
		t.Fatalf("parent resolved %d times, want 1", svc.gets)
	}
}

func TestArchiveScoreParentLookupFails(t *testing.T) {
	svc := &fakeContentService{getErr: errors.New("content not found")}
	u := NewUploader(svc, "s3", uuid.New(), nil)

	score := writeScore(t, t.TempDir(), "a.csc")
	if _, err := u.ArchiveScore(context.Background(), "/in/a.png", score); err == nil {
		t.Fatal("expected parent lookup error")
	}
	if len(svc.requests) != 0 {
		t.Fatal("upload attempted without a parent")
	}
}

func TestArchiveScoreMissingFile(t *testing.T) {
	parent := &simplecontent.Content{ID: uuid.New()}
	svc := &fakeContentService{parent: parent}
	u := NewUploader(svc, "s3", parent.ID, nil)

	if _, err := u.ArchiveScore(context.Background(), "/in/a.png", filepath.Join(t.TempDir(), "missing.csc")); err == nil {
		t.Fatal("expected error for missing score file")
	}
}
