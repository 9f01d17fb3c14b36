package postgres

import (
	"testing"

	"github.com/computor-org/cpsto/internal/gitlabhost"
)

func TestMarshalUnmarshalPropsRoundTrip(t *testing.T) {
	props := &gitlabhost.Properties{GroupID: 42, WebURL: "https://gitlab.example.com/org", FullPath: "org"}
	raw, err := marshalProps(props)
	if err != nil {
		t.Fatalf("marshalProps returned error: %v", err)
	}
	got, err := unmarshalProps(raw)
	if err != nil {
		t.Fatalf("unmarshalProps returned error: %v", err)
	}
	if got.GroupID != props.GroupID || got.WebURL != props.WebURL {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, props)
	}
}

func TestMarshalNilPropsIsNil(t *testing.T) {
	raw, err := marshalProps(nil)
	if err != nil {
		t.Fatalf("marshalProps(nil) returned error: %v", err)
	}
	if raw != nil {
		t.Errorf("marshalProps(nil) = %v, want nil", raw)
	}
	got, err := unmarshalProps(nil)
	if err != nil {
		t.Fatalf("unmarshalProps(nil) returned error: %v", err)
	}
	if got != nil {
		t.Errorf("unmarshalProps(nil) = %v, want nil", got)
	}
}

func TestSplitTags(t *testing.T) {
	if got := splitTags(""); got != nil {
		t.Errorf("splitTags(\"\") = %v, want nil", got)
	}
	got := splitTags("python,intro,loops")
	want := []string{"python", "intro", "loops"}
	if len(got) != len(want) {
		t.Fatalf("splitTags length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitTags()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLabelValidatorTag(t *testing.T) {
	v := newValidator()
	type s struct {
		Path string `validate:"required,label"`
	}
	if err := v.Struct(s{Path: "week1.vectors"}); err != nil {
		t.Errorf("valid path rejected: %v", err)
	}
	if err := v.Struct(s{Path: "bad path!"}); err == nil {
		t.Error("expected invalid path to fail the label tag")
	}
}
