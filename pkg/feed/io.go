package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/masonry/pkg/errors"
)

// Format is a feed document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported feed extension %q (use .json or .toml)", filepath.Ext(path))
	}
}

// Parse decodes and validates a feed.
func Parse(data []byte, format Format) (*Feed, error) {
	var f Feed
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFeed, err, "decode json feed")
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFeed, err, "decode toml feed")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidFeed, "unknown feed key %q", undecoded[0].String())
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown feed format %q", format)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Read decodes a feed from r.
func Read(r io.Reader, format Format) (*Feed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return Parse(data, format)
}

// Import reads the feed file at path, choosing the format by extension.
func Import(path string) (*Feed, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "feed not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Write encodes f to w.
func Write(w io.Writer, f *Feed, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	case FormatTOML:
		return toml.NewEncoder(w).Encode(f)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown feed format %q", format)
	}
}

// Export writes f to path, choosing the format by extension.
func Export(path string, f *Feed) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Write(&buf, f, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Hash returns a content hash of the feed's layout-relevant fields.
// Titles are excluded so renaming an item keeps its cached sizes.
func (f *Feed) Hash() string {
	type keyed struct {
		Key      string  `json:"k"`
		Estimate float64 `json:"e"`
		Size     float64 `json:"s"`
		Width    float64 `json:"w"`
		ColSpan  int     `json:"c"`
	}
	items := make([]keyed, len(f.Items))
	for i, it := range f.Items {
		items[i] = keyed{it.Key, it.Estimate, it.Size, it.Width, it.ColSpan}
	}
	data, _ := json.Marshal(items)
	return hashBytes(data)
}
