package catalogsync

import "testing"

func TestHasMetaYAML(t *testing.T) {
	yes := []UploadFile{{RelPath: "meta.yaml"}, {RelPath: "content/index.md"}}
	if !hasMetaYAML(yes) {
		t.Error("expected meta.yaml to be detected")
	}
	no := []UploadFile{{RelPath: "content/index.md"}, {RelPath: "README.md"}}
	if hasMetaYAML(no) {
		t.Error("did not expect meta.yaml to be detected")
	}
}

func TestIngestGroupsFilesByDirectoryInOrder(t *testing.T) {
	files := []UploadFile{
		{Directory: "loops.for", RelPath: "meta.yaml"},
		{Directory: "arrays.basics", RelPath: "meta.yaml"},
		{Directory: "loops.for", RelPath: "content/index.md"},
	}
	byDir, order := groupByDirectory(files)
	if len(order) != 2 || order[0] != "loops.for" || order[1] != "arrays.basics" {
		t.Errorf("got order %v, want first-seen directory order", order)
	}
	if len(byDir["loops.for"]) != 2 {
		t.Errorf("got %d files for loops.for, want 2", len(byDir["loops.for"]))
	}
}

func TestActivityOptionsSetsHeartbeatForLongIngestion(t *testing.T) {
	if activityOptions.HeartbeatTimeout <= 0 {
		t.Error("CS's ingest activity iterates many directories and must heartbeat")
	}
}

func TestContentHashStableUnderFileOrder(t *testing.T) {
	a := []UploadFile{{RelPath: "meta.yaml", Size: 10}, {RelPath: "content/index.md", Size: 42}}
	b := []UploadFile{{RelPath: "content/index.md", Size: 42}, {RelPath: "meta.yaml", Size: 10}}
	if contentHash(a) != contentHash(b) {
		t.Error("contentHash must not depend on upload order")
	}
}

func TestContentHashChangesWithFileSize(t *testing.T) {
	a := []UploadFile{{RelPath: "meta.yaml", Size: 10}}
	b := []UploadFile{{RelPath: "meta.yaml", Size: 11}}
	if contentHash(a) == contentHash(b) {
		t.Error("contentHash must change when a file's size changes")
	}
}

func TestContentHashChangesWithFileSet(t *testing.T) {
	a := []UploadFile{{RelPath: "meta.yaml", Size: 10}}
	b := []UploadFile{{RelPath: "meta.yaml", Size: 10}, {RelPath: "extra.txt", Size: 1}}
	if contentHash(a) == contentHash(b) {
		t.Error("contentHash must change when the file set changes")
	}
}
