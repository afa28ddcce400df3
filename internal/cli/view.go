package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/breakpoint"
	"github.com/matzehuels/masonry/pkg/config"
	"github.com/matzehuels/masonry/pkg/feed"
	"github.com/matzehuels/masonry/pkg/session"
	"github.com/matzehuels/masonry/pkg/virtual"
)

const (
	// tickInterval is how often the viewer advances the session clock.
	tickInterval = 100 * time.Millisecond

	// chromeRows are the header and footer lines around the viewport.
	chromeRows = 2

	// minCardRows fits a border and one line of text.
	minCardRows = 3

	defaultRowPixels = 24
)

var (
	cardStyle     = lipgloss.NewStyle().Foreground(colorGray)
	scrollingDown = lipgloss.NewStyle().Foreground(colorCyan).Render("▼ scrolling")
	scrollingUp   = lipgloss.NewStyle().Foreground(colorCyan).Render("▲ scrolling")
)

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		rowPixels float64
		filter    string
	)

	cmd := &cobra.Command{
		Use:   "view [feed.json|feed.toml]",
		Short: "Scroll a feed in the terminal",
		Long: `Scroll a feed in the terminal.

Each item is drawn as a card whose height is its size divided by --row-px.
The lane count follows the terminal width. Only the items in the rendered
window exist at any time, exactly as in a browser.

Keys: j/k or arrows scroll, space/b page, g/G jump to the ends,
r remeasures, q quits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := feed.Import(args[0])
			if err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			m, err := newViewModel(f.Filter(filter), 80, 24, rowPixels, cfg.Layout, loggerFromContext(cmd.Context()))
			if err != nil {
				return err
			}
			defer m.sess.Close()

			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().Float64Var(&rowPixels, "row-px", defaultRowPixels, "item size units per terminal row")
	cmd.Flags().StringVar(&filter, "filter", "", "only show items whose title contains this text")

	return cmd
}

// =============================================================================
// viewModel - bubbletea model over a session
// =============================================================================

type tickMsg time.Time

type viewModel struct {
	sess  *session.Session
	feed  *feed.Feed
	title string
	err   error
}

// newViewModel creates a session in character cells over a scaled copy
// of f.
func newViewModel(f *feed.Feed, width, height int, rowPixels float64, layout config.Layout, logger *log.Logger) (viewModel, error) {
	if rowPixels <= 0 {
		rowPixels = defaultRowPixels
	}
	cells := scaleFeed(f, rowPixels)

	// Breakpoints own the gap. Padding is in pixels and has no cell
	// equivalent.
	layout.Gap = 0
	layout.PaddingStart, layout.PaddingEnd = 0, 0
	layout.ScrollPaddingStart, layout.ScrollPaddingEnd = 0, 0
	layout.ScrollMargin = 0
	layout.Horizontal = false

	sess, err := session.New(cells, session.Options{
		Width:       float64(max(width, 1)),
		Height:      float64(max(height-chromeRows, 1)),
		Breakpoints: breakpoint.Terminal(),
		Layout:      layout,
		Logger:      logger,
	})
	if err != nil {
		return viewModel{}, err
	}
	return viewModel{sess: sess, feed: cells, title: f.Name}, nil
}

// scaleFeed converts item sizes to terminal rows.
func scaleFeed(f *feed.Feed, rowPixels float64) *feed.Feed {
	rows := func(px float64) float64 {
		return max(math.Round(px/rowPixels), minCardRows)
	}
	out := &feed.Feed{Name: f.Name, Items: make([]feed.Item, len(f.Items))}
	for i, it := range f.Items {
		it.Estimate = rows(f.EstimateSize(i, 1))
		if it.Size > 0 {
			it.Size = rows(it.Size)
		}
		it.Width = 0
		out.Items[i] = it
	}
	return out
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m viewModel) Init() tea.Cmd {
	return tick()
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.err = m.sess.Advance(tickInterval)
		return m, tick()
	case tea.WindowSizeMsg:
		m.err = m.sess.Resize(float64(max(msg.Width, 1)), float64(max(msg.Height-chromeRows, 1)))
	case tea.KeyMsg:
		page := m.sess.View().Viewport.Height
		last := m.feed.Len() - 1
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "down", "j":
			m.err = m.sess.ScrollBy(1)
		case "up", "k":
			m.err = m.sess.ScrollBy(-1)
		case "pgdown", " ", "f":
			m.err = m.sess.ScrollBy(page)
		case "pgup", "b":
			m.err = m.sess.ScrollBy(-page)
		case "home", "g":
			if last >= 0 {
				m.err = m.sess.ScrollToIndex(0, virtual.AlignStart)
			}
		case "end", "G":
			if last >= 0 {
				m.err = m.sess.ScrollToIndex(last, virtual.AlignEnd)
			}
		case "r":
			m.err = m.sess.Remeasure()
		}
	}
	return m, nil
}

func (m viewModel) View() string {
	v := m.sess.View()

	var b strings.Builder
	b.WriteString(m.header(v))
	b.WriteString("\n")
	b.WriteString(cardStyle.Render(m.draw(v).String()))
	b.WriteString("\n")
	b.WriteString(m.footer(v))
	return b.String()
}

func (m viewModel) header(v session.View) string {
	name := m.title
	if name == "" {
		name = appName
	}
	bp := fmt.Sprintf("%s · %d lanes", v.Breakpoint, v.Lanes)
	return StyleTitle.Render(name) + "  " + StyleDim.Render(bp)
}

func (m viewModel) footer(v session.View) string {
	if m.err != nil {
		return styleIconError.Render(iconError) + " " + m.err.Error()
	}
	parts := []string{fmt.Sprintf("%d items", v.Count)}
	if v.Range != nil {
		parts = append(parts, fmt.Sprintf("showing %d-%d", v.Range.Start+1, v.Range.End+1))
	}
	parts = append(parts,
		fmt.Sprintf("row %.0f/%.0f", v.Offset, v.TotalSize),
		fmt.Sprintf("%d measured", v.Measured),
	)
	line := StyleDim.Render(strings.Join(parts, " · "))
	if v.IsScrolling {
		indicator := scrollingDown
		if v.Direction == virtual.DirectionBackward {
			indicator = scrollingUp
		}
		line += "  " + indicator
	}
	return line
}

// draw paints the rendered window onto a canvas the size of the viewport.
func (m viewModel) draw(v session.View) *canvas {
	c := newCanvas(int(v.Viewport.Width), int(v.Viewport.Height))
	lanes := max(v.Lanes, 1)
	laneWidth := (v.Viewport.Width - v.Gap*float64(lanes-1)) / float64(lanes)

	for _, it := range v.Items {
		x := float64(it.Lane) * (laneWidth + v.Gap)
		w := laneWidth*float64(it.ColSpan) + v.Gap*float64(it.ColSpan-1)
		y := math.Round(it.Start - v.Offset)
		c.box(int(x), int(y), int(w), int(it.Size), m.label(it))
	}
	return c
}

func (m viewModel) label(it virtual.Item) string {
	title := shortKey(it.Key)
	if it.Index < m.feed.Len() && m.feed.Items[it.Index].Title != "" {
		title = m.feed.Items[it.Index].Title
	}
	return fmt.Sprintf("#%d %s", it.Index, title)
}

// =============================================================================
// canvas - clipped box drawing
// =============================================================================

type canvas struct {
	w, h  int
	cells [][]rune
}

func newCanvas(w, h int) *canvas {
	w, h = max(w, 0), max(h, 0)
	cells := make([][]rune, h)
	for y := range cells {
		cells[y] = []rune(strings.Repeat(" ", w))
	}
	return &canvas{w: w, h: h, cells: cells}
}

func (c *canvas) set(x, y int, r rune) {
	if x >= 0 && x < c.w && y >= 0 && y < c.h {
		c.cells[y][x] = r
	}
}

// box draws a rounded border with label on its first inner line. Parts
// outside the canvas are clipped.
func (c *canvas) box(x, y, w, h int, label string) {
	if w < 2 || h < 2 {
		return
	}
	right, bottom := x+w-1, y+h-1
	for i := x + 1; i < right; i++ {
		c.set(i, y, '─')
		c.set(i, bottom, '─')
	}
	for j := y + 1; j < bottom; j++ {
		c.set(x, j, '│')
		c.set(right, j, '│')
	}
	c.set(x, y, '╭')
	c.set(right, y, '╮')
	c.set(x, bottom, '╰')
	c.set(right, bottom, '╯')

	if h < minCardRows {
		return
	}
	runes := []rune(label)
	if room := w - 4; len(runes) > room {
		runes = runes[:max(room, 0)]
	}
	for i, r := range runes {
		c.set(x+2+i, y+1, r)
	}
}

func (c *canvas) String() string {
	lines := make([]string, c.h)
	for y, row := range c.cells {
		lines[y] = string(row)
	}
	return strings.Join(lines, "\n")
}
