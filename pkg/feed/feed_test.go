package feed

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/virtual"
)

const sampleJSON = `{
  "name": "photos",
  "items": [
    {"key": "a", "title": "Harbor at dusk", "estimate": 200, "size": 236},
    {"key": "b", "title": "Panorama", "estimate": 120, "colSpan": 2},
    {"key": "c"}
  ]
}`

const sampleTOML = `
name = "photos"

[[items]]
key = "a"
title = "Harbor at dusk"
estimate = 200.0
size = 236.0

[[items]]
key = "b"
title = "Panorama"
estimate = 120.0
col_span = 2

[[items]]
key = "c"
`

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"json", sampleJSON, FormatJSON},
		{"toml", sampleTOML, FormatTOML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if f.Name != "photos" || f.Len() != 3 {
				t.Fatalf("feed = %+v", f)
			}
			if f.Items[0].Size != 236 || f.Items[1].ColSpan != 2 {
				t.Errorf("items = %+v", f.Items)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		code   errors.Code
	}{
		{"malformed json", `{"items": [`, FormatJSON, errors.ErrCodeInvalidFeed},
		{"unknown json field", `{"items": [{"key": "a", "height": 3}]}`, FormatJSON, errors.ErrCodeInvalidFeed},
		{"unknown toml key", "[[items]]\nkey = \"a\"\nheight = 3\n", FormatTOML, errors.ErrCodeInvalidFeed},
		{"empty key", `{"items": [{"key": ""}]}`, FormatJSON, errors.ErrCodeInvalidFeed},
		{"duplicate key", `{"items": [{"key": "a"}, {"key": "a"}]}`, FormatJSON, errors.ErrCodeInvalidFeed},
		{"negative size", `{"items": [{"key": "a", "size": -1}]}`, FormatJSON, errors.ErrCodeInvalidFeed},
		{"negative span", `{"items": [{"key": "a", "colSpan": -2}]}`, FormatJSON, errors.ErrCodeInvalidFeed},
		{"bad name", `{"name": "no spaces allowed", "items": []}`, FormatJSON, errors.ErrCodeInvalidFeed},
		{"unknown format", `{}`, Format("yaml"), errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("code = %q, want %q (%v)", errors.GetCode(err), tt.code, err)
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	f, err := Parse([]byte(sampleJSON), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	if got := f.Key(1); got != "b" {
		t.Errorf("Key(1) = %q", got)
	}
	if got := f.Key(7); got != "7" {
		t.Errorf("Key(7) = %q, want index fallback", got)
	}
	if got := f.EstimateSize(2, 3); got != DefaultEstimate {
		t.Errorf("EstimateSize(2) = %v, want default", got)
	}
	if got := f.ColSpan(1, 3); got != 2 {
		t.Errorf("ColSpan(1) = %d", got)
	}
	if got := f.ColSpan(0, 3); got != 1 {
		t.Errorf("ColSpan(0) = %d", got)
	}

	if got := f.Rendered(0, 90, false); got != (virtual.Rect{Width: 90, Height: 236}) {
		t.Errorf("Rendered vertical = %+v", got)
	}
	if got := f.Rendered(1, 90, true); got != (virtual.Rect{Width: 120, Height: 90}) {
		t.Errorf("Rendered horizontal = %+v", got)
	}

	if i, ok := f.IndexOf("c"); !ok || i != 2 {
		t.Errorf("IndexOf(c) = %d, %v", i, ok)
	}
	if _, ok := f.IndexOf("zzz"); ok {
		t.Error("IndexOf should miss")
	}

	opts := virtual.DefaultOptions()
	f.Apply(&opts)
	if opts.Count != 3 || opts.GetItemKey(0) != "a" || opts.EstimateSize(0, 1) != 200 || opts.GetItemColSpan(1, 3) != 2 {
		t.Error("Apply did not wire the feed")
	}
}

func TestFilter(t *testing.T) {
	f, _ := Parse([]byte(sampleJSON), FormatJSON)
	got := f.Filter("HARBOR")
	if got.Len() != 1 || got.Items[0].Key != "a" {
		t.Errorf("Filter = %+v", got.Items)
	}
	if f.Filter("") != f {
		t.Error("empty filter should return the feed itself")
	}
}

func TestImportExport(t *testing.T) {
	dir := t.TempDir()
	f := Generate(GenerateOptions{Name: "gen", Count: 5, Seed: 7, SpanEvery: 2})

	for _, name := range []string{"feed.json", "feed.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Export(path, f); err != nil {
				t.Fatalf("Export: %v", err)
			}
			got, err := Import(path)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			if got.Hash() != f.Hash() {
				t.Error("imported feed differs from exported feed")
			}
		})
	}

	if _, err := Import(filepath.Join(dir, "missing.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: %v", err)
	}
	if _, err := Import(filepath.Join(dir, "feed.yaml")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad extension: %v", err)
	}
}

func TestWrite(t *testing.T) {
	f := &Feed{Items: []Item{{Key: "a", Estimate: 10}}}
	var buf bytes.Buffer
	if err := Write(&buf, f, FormatJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"key": "a"`) {
		t.Errorf("json output = %s", buf.String())
	}
	if err := Write(&buf, f, Format("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestHash(t *testing.T) {
	a := &Feed{Items: []Item{{Key: "a", Title: "one", Estimate: 10}}}
	b := &Feed{Items: []Item{{Key: "a", Title: "two", Estimate: 10}}}
	c := &Feed{Items: []Item{{Key: "a", Estimate: 11}}}

	if a.Hash() != b.Hash() {
		t.Error("titles should not affect the hash")
	}
	if a.Hash() == c.Hash() {
		t.Error("estimates should affect the hash")
	}
}

func TestGenerate(t *testing.T) {
	opts := GenerateOptions{Count: 20, Seed: 42, MinSize: 50, MaxSize: 150, SpanEvery: 5}
	a, b := Generate(opts), Generate(opts)
	if a.Hash() != b.Hash() {
		t.Fatal("Generate should be deterministic")
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("generated feed is invalid: %v", err)
	}

	spans := 0
	for _, it := range a.Items {
		if it.Size < 50 || it.Size > 150 {
			t.Errorf("size %v out of bounds", it.Size)
		}
		if it.Estimate != 100 {
			t.Errorf("estimate = %v, want midpoint", it.Estimate)
		}
		if it.ColSpan == 2 {
			spans++
		}
	}
	if spans != 4 {
		t.Errorf("spans = %d, want 4", spans)
	}

	other := Generate(GenerateOptions{Count: 20, Seed: 43})
	if other.Items[0].Key == a.Items[0].Key {
		t.Error("different seeds should produce different keys")
	}

	exact := Generate(GenerateOptions{Count: 3, Exact: true})
	for _, it := range exact.Items {
		if it.Estimate != it.Size {
			t.Errorf("exact estimate %v != size %v", it.Estimate, it.Size)
		}
	}
	if Generate(GenerateOptions{Count: -1}).Len() != 0 {
		t.Error("negative count should produce an empty feed")
	}
}
