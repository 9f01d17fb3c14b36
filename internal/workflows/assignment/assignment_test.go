package assignment

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Deploy's database/object-store/git dependencies make it an integration
// test, not a unit test (same boundary internal/gitlabhost and
// internal/storage/postgres draw); this file covers the pure data shape
// the rest of AD's activity depends on.
func TestManifestRoundTripsThroughJSON(t *testing.T) {
	m := Manifest{
		ExampleID:      7,
		ExampleVersion: "v1.2",
		Implicit:       true,
		DeployedAt:     "2026-07-30T00:00:00Z",
		Files:          []string{"meta.yaml", "task.md"},
	}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Manifest
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("manifest round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestResultFailedMapStartsEmptyNotNil(t *testing.T) {
	r := &Result{Failed: map[int64]string{}}
	if r.Failed == nil {
		t.Fatal("Failed map must be initialized so callers can range over it safely")
	}
	if len(r.Failed) != 0 {
		t.Errorf("got %d entries, want 0", len(r.Failed))
	}
}

func TestActivityOptionsSetsHeartbeatTimeout(t *testing.T) {
	if activityOptions.HeartbeatTimeout <= 0 {
		t.Error("AD's long-running clone/push activity must set a heartbeat timeout")
	}
}

func TestReadManifestReturnsNilWhenAbsent(t *testing.T) {
	m, err := readManifest(t.TempDir())
	if err != nil {
		t.Fatalf("readManifest: %v", err)
	}
	if m != nil {
		t.Errorf("got %+v, want nil for a directory with no prior deployment", m)
	}
}

func TestReadManifestLoadsPriorFileList(t *testing.T) {
	dir := t.TempDir()
	want := Manifest{ExampleID: 3, ExampleVersion: "v1", Files: []string{"a.txt", "sub/b.txt"}}
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), raw, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	got, err := readManifest(dir)
	if err != nil {
		t.Fatalf("readManifest: %v", err)
	}
	if got == nil {
		t.Fatal("got nil, want the written manifest")
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}
