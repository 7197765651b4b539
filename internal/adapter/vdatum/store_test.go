package vdatum

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.ngs.io/ofs-skill/internal/domain"
)

type noFetch struct{}

func (noFetch) Fetch(context.Context, string, io.Writer) error {
	return fmt.Errorf("unexpected remote fetch")
}

func TestDatasetRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lmhofs_vdatums.nc"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(noFetch{}, dir, discardLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := s.Dataset(context.Background(), "lmhofs"); err == nil {
		t.Error("corrupt staged file handed out as a dataset")
	}
}

func TestResolveCorruptDatasetIsOpenFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lmhofs_vdatums.nc"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(noFetch{}, dir, discardLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	r := NewResolver(s, nil, dir, discardLogger())

	off := r.Resolve(context.Background(), Request{
		Profile:     profile(t, "lmhofs"),
		TargetDatum: "navd88",
		Kind:        domain.FileFields,
	})
	if off.OK() || off.Reason != domain.FailureDatumOpen {
		t.Errorf("offset = %v, want the dataset-open sentinel", off)
	}
}
