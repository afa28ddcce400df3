package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"

	"github.com/matzehuels/masonry/pkg/feed"
	"github.com/matzehuels/masonry/pkg/virtual"
)

const itemCSS = `
    .item { fill: #f4f1ea; stroke: #8a8170; stroke-width: 1; }
    .item.rendered { fill: #e3ecf7; stroke: #3b6ea5; stroke-width: 1.5; }
    .item-text { font: 12px sans-serif; fill: #333; }
    .viewport { fill: none; stroke: #d9534f; stroke-width: 2; stroke-dasharray: 6 4; }`

// Render generates output artifacts in the requested formats.
func Render(l Layout, f *feed.Feed, formats []string) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = json.MarshalIndent(l, "", "  ")
		case FormatSVG:
			data = RenderSVG(l, f)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderSVG draws every item at its laid-out position. Items in the
// rendered window are highlighted and the viewport is outlined.
func RenderSVG(l Layout, f *feed.Feed) []byte {
	view := l.View
	horizontal := view.Horizontal

	cross := view.Viewport.Width
	if horizontal {
		cross = view.Viewport.Height
	}
	lanes := max(view.Lanes, 1)
	laneSize := (cross - view.Gap*float64(lanes-1)) / float64(lanes)

	width, height := cross, max(view.TotalSize, view.Viewport.Height)
	if horizontal {
		width, height = max(view.TotalSize, view.Viewport.Width), cross
	}

	rendered := make(map[int]bool, len(view.Items))
	for _, it := range view.Items {
		rendered[it.Index] = true
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", itemCSS)

	for _, it := range l.Items {
		x, y, w, h := itemRect(it, laneSize, view.Gap, horizontal)
		class := "item"
		if rendered[it.Index] {
			class += " rendered"
		}
		fmt.Fprintf(&buf, `  <rect id="item-%d" class="%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="4"/>`+"\n",
			it.Index, class, x, y, w, h)

		label := it.Key
		if f != nil && it.Index < f.Len() && f.Items[it.Index].Title != "" {
			label = f.Items[it.Index].Title
		}
		fmt.Fprintf(&buf, `  <text class="item-text" x="%.1f" y="%.1f">%s</text>`+"\n",
			x+6, y+16, html.EscapeString(label))
	}

	vx, vy := 0.0, view.Offset
	if horizontal {
		vx, vy = view.Offset, 0
	}
	fmt.Fprintf(&buf, `  <rect class="viewport" x="%.1f" y="%.1f" width="%.1f" height="%.1f"/>`+"\n",
		vx, vy, view.Viewport.Width, view.Viewport.Height)

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// itemRect maps lane geometry to SVG coordinates.
func itemRect(it virtual.Item, laneSize, gap float64, horizontal bool) (x, y, w, h float64) {
	crossStart := float64(it.Lane) * (laneSize + gap)
	crossSize := laneSize*float64(it.ColSpan) + gap*float64(it.ColSpan-1)
	if horizontal {
		return it.Start, crossStart, it.Size, crossSize
	}
	return crossStart, it.Start, crossSize, it.Size
}
