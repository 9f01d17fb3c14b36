package objectstore

import "testing"

func TestValidateUploadRejectsOversized(t *testing.T) {
	if err := ValidateUpload("main.py", MaxUploadSize+1, 0); err == nil {
		t.Error("expected error for oversized upload")
	}
}

func TestValidateUploadRejectsDisallowedExtension(t *testing.T) {
	if err := ValidateUpload("malware.exe", 10, 0); err == nil {
		t.Error("expected error for .exe upload")
	}
}

func TestValidateUploadRejectsTraversal(t *testing.T) {
	cases := []string{"../../etc/passwd", "/etc/passwd", "a/../../b.py"}
	for _, c := range cases {
		if err := ValidateUpload(c, 10, 0); err == nil {
			t.Errorf("expected error for traversal filename %q", c)
		}
	}
}

func TestValidateUploadAcceptsWhitelisted(t *testing.T) {
	cases := []string{"main.py", "README.md", "diagram.png", "archive.tar.gz", "notebook.ipynb"}
	for _, c := range cases {
		if err := ValidateUpload(c, 10, 0); err != nil {
			t.Errorf("ValidateUpload(%q) unexpected error: %v", c, err)
		}
	}
}

func TestObjectKeyAddressing(t *testing.T) {
	got := ObjectKey(1, 2, "v1.0", "main.py")
	want := "repositories/1/2/v1.0/main.py"
	if got != want {
		t.Errorf("ObjectKey() = %q, want %q", got, want)
	}
}
