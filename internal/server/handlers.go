package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/masonry/pkg/buildinfo"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/feed"
	"github.com/matzehuels/masonry/pkg/observability"
	"github.com/matzehuels/masonry/pkg/pipeline"
	"github.com/matzehuels/masonry/pkg/session"
	"github.com/matzehuels/masonry/pkg/virtual"
)

// Action types accepted by POST /v1/sessions/{id}/actions.
const (
	ActionScroll        = "scroll"
	ActionScrollTo      = "scroll-to"
	ActionScrollBy      = "scroll-by"
	ActionScrollToIndex = "scroll-to-index"
	ActionScrollToKey   = "scroll-to-key"
	ActionResize        = "resize"
	ActionSetSize       = "set-size"
	ActionRemeasure     = "remeasure"
	ActionAdvance       = "advance"
)

type healthResponse struct {
	Status   string                      `json:"status"`
	Build    buildinfo.Info              `json:"build"`
	Sessions int                         `json:"sessions"`
	Stats    observability.StatsSnapshot `json:"stats"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Build:    buildinfo.Get(),
		Sessions: s.sessions.Len(),
		Stats:    s.stats.Snapshot(),
	})
}

// =============================================================================
// One-shot layout
// =============================================================================

type layoutRequest struct {
	Feed    *feed.Feed       `json:"feed"`
	Options pipeline.Options `json:"options"`
}

type layoutResponse struct {
	FeedHash  string          `json:"feedHash"`
	Layout    pipeline.Layout `json:"layout"`
	SizesHit  bool            `json:"sizesHit"`
	LayoutHit bool            `json:"layoutHit"`
}

// handleLayout runs the pipeline over a posted feed. ?format=svg responds
// with the SVG drawing instead of JSON.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := validFeed(req.Feed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := req.Options
	opts.Layout = s.cfg.Layout
	opts.Breakpoints = s.cfg.Breakpoints
	svg := r.URL.Query().Get("format") == pipeline.FormatSVG
	if svg {
		opts.Formats = []string{pipeline.FormatSVG}
	} else {
		opts.Formats = []string{pipeline.FormatJSON}
	}

	result, err := s.runner.Execute(r.Context(), f, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if svg {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Artifacts[pipeline.FormatSVG])
		return
	}
	writeJSON(w, http.StatusOK, layoutResponse{
		FeedHash:  result.FeedHash,
		Layout:    result.Layout,
		SizesHit:  result.CacheInfo.SizesHit,
		LayoutHit: result.CacheInfo.LayoutHit,
	})
}

// =============================================================================
// Sessions
// =============================================================================

type createRequest struct {
	ID     string     `json:"id,omitempty"`
	Feed   *feed.Feed `json:"feed"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Lanes  int        `json:"lanes,omitempty"`
	Offset float64    `json:"offset,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := validFeed(req.Feed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.sessions.Create(r.Context(), f, session.Options{
		ID:            req.ID,
		Width:         req.Width,
		Height:        req.Height,
		Lanes:         req.Lanes,
		Breakpoints:   s.cfg.Breakpoints,
		Layout:        s.cfg.Layout,
		InitialOffset: req.Offset,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleItems returns every item's geometry, or with ?offset= the item
// covering that offset.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("offset")
	if raw == "" {
		writeJSON(w, http.StatusOK, sess.Measurements())
		return
	}
	offset, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid offset %q", raw))
		return
	}
	item, found := sess.ItemAt(offset)
	if !found {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "no item at offset %v", offset))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type actionRequest struct {
	Type     string        `json:"type"`
	Offset   float64       `json:"offset,omitempty"`
	Delta    float64       `json:"delta,omitempty"`
	Index    int           `json:"index,omitempty"`
	Key      string        `json:"key,omitempty"`
	Align    virtual.Align `json:"align,omitempty"`
	Width    float64       `json:"width,omitempty"`
	Height   float64       `json:"height,omitempty"`
	Size     float64       `json:"size,omitempty"`
	Duration string        `json:"duration,omitempty"`
}

// handleAction applies one action and responds with the settled view.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := apply(sess, req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func apply(sess *session.Session, req actionRequest) error {
	if req.Align == "" {
		req.Align = pipeline.DefaultAlign
	}
	switch req.Type {
	case ActionScroll:
		return sess.Scroll(req.Offset)
	case ActionScrollTo:
		return sess.ScrollTo(req.Offset)
	case ActionScrollBy:
		return sess.ScrollBy(req.Delta)
	case ActionScrollToIndex:
		if err := pipeline.ValidateAlign(req.Align); err != nil {
			return err
		}
		return sess.ScrollToIndex(req.Index, req.Align)
	case ActionScrollToKey:
		if err := pipeline.ValidateAlign(req.Align); err != nil {
			return err
		}
		return sess.ScrollToKey(req.Key, req.Align)
	case ActionResize:
		return sess.Resize(req.Width, req.Height)
	case ActionSetSize:
		return sess.SetItemSize(req.Key, req.Size)
	case ActionRemeasure:
		return sess.Remeasure()
	case ActionAdvance:
		d, err := time.ParseDuration(req.Duration)
		if err != nil || d < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "invalid duration %q", req.Duration)
		}
		return sess.Advance(d)
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown action %q", req.Type)
	}
}

func validFeed(f *feed.Feed) (*feed.Feed, error) {
	if f == nil {
		return nil, errors.New(errors.ErrCodeInvalidFeed, "feed is required")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
