package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/masonry/pkg/cache"
	merrors "github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/feed"
)

// DefaultMaxSessions bounds a Manager when no limit is configured.
const DefaultMaxSessions = 1000

// Manager owns live sessions and persists their sizes on close.
type Manager struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL is the idle expiry of new sessions.
	TTL time.Duration

	// SizesTTL is the expiry of persisted size snapshots.
	SizesTTL time.Duration

	// Max bounds the number of live sessions.
	Max int

	mu       sync.RWMutex
	sessions map[string]*Session
	pending  map[string]struct{} // IDs reserved by Create calls in flight
	closed   bool
	now      func() time.Time
}

// NewManager creates a manager. A nil cache disables persistence and a
// nil keyer uses cache.DefaultKeyer.
func NewManager(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Manager {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		TTL:      DefaultTTL,
		SizesTTL: DefaultSizesTTL,
		Max:      DefaultMaxSessions,
		sessions: make(map[string]*Session),
		pending:  make(map[string]struct{}),
		now:      time.Now,
	}
}

// Create starts a session over f. Persisted sizes for the feed are
// restored, and when opts.ID names a previously closed session over the
// same feed its scroll offset is restored too.
func (m *Manager) Create(ctx context.Context, f *feed.Feed, opts Options) (*Session, error) {
	if f == nil {
		return nil, merrors.New(merrors.ErrCodeInvalidFeed, "feed is required")
	}
	resume := opts.ID != ""
	if !resume {
		opts.ID = uuid.NewString()
	}
	if err := m.reserve(opts.ID); err != nil {
		return nil, err
	}

	hash := f.Hash()
	if opts.InitialSizes == nil {
		sizes, ok, err := LoadSizes(ctx, m.Cache, m.Keyer, hash, opts.Layout.Horizontal)
		if err != nil {
			m.Logger.Warn("could not load sizes", "feed", hash[:12], "err", err)
		}
		if ok {
			opts.InitialSizes = sizes
			m.Logger.Debug("restored sizes", "feed", hash[:12], "entries", len(sizes))
		}
	}
	if resume && opts.InitialOffset == 0 {
		if st, ok := loadState(ctx, m.Cache, m.Keyer, opts.ID); ok && st.FeedHash == hash {
			opts.InitialOffset = st.Offset
		}
	}
	if opts.TTL <= 0 {
		opts.TTL = m.TTL
	}
	if opts.Logger == nil {
		opts.Logger = m.Logger
	}

	s, err := New(f, opts)

	m.mu.Lock()
	delete(m.pending, opts.ID)
	closed := m.closed
	if err == nil && !closed {
		m.sessions[s.ID] = s
	}
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if closed {
		s.Close()
		return nil, merrors.New(merrors.ErrCodeUnsupported, "session manager is closed")
	}
	m.Logger.Info("session created", "id", s.ID, "items", f.Len())
	return s, nil
}

// reserve claims id and one slot under Max until Create inserts the
// session or gives up.
func (m *Manager) reserve(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return merrors.New(merrors.ErrCodeUnsupported, "session manager is closed")
	}
	if m.Max > 0 && len(m.sessions)+len(m.pending) >= m.Max {
		return merrors.New(merrors.ErrCodeUnsupported, "session limit of %d reached", m.Max)
	}
	_, live := m.sessions[id]
	_, inFlight := m.pending[id]
	if live || inFlight {
		return merrors.New(merrors.ErrCodeInvalidInput, "session %s already exists", id)
	}
	m.pending[id] = struct{}{}
	return nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Expired(m.now()) {
		return nil, merrors.New(merrors.ErrCodeSessionNotFound, "session %s not found", id)
	}
	return s, nil
}

// Delete closes a session and persists its sizes and offset.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return merrors.New(merrors.ErrCodeSessionNotFound, "session %s not found", id)
	}
	return m.close(ctx, s)
}

// Cleanup closes every expired session and returns how many it closed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	now := m.now()
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.Expired(now) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range expired {
		errs = append(errs, m.close(ctx, s))
	}
	return len(expired), errors.Join(errs...)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes every session and the cache. Later Create calls fail.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range all {
		errs = append(errs, m.close(ctx, s))
	}
	errs = append(errs, m.Cache.Close())
	return errors.Join(errs...)
}

func (m *Manager) close(ctx context.Context, s *Session) error {
	offset, sizes := s.closeAndSnapshot()

	err := errors.Join(
		SaveSizes(ctx, m.Cache, m.Keyer, s.FeedHash(), s.Horizontal(), sizes, m.SizesTTL),
		saveState(ctx, m.Cache, m.Keyer, s.ID, savedState{FeedHash: s.FeedHash(), Offset: offset}, m.SizesTTL),
	)
	if err != nil {
		m.Logger.Warn("could not persist session", "id", s.ID, "err", err)
		return merrors.Wrap(merrors.ErrCodeCache, err, "persist session %s", s.ID)
	}
	m.Logger.Debug("session closed", "id", s.ID, "sizes", len(sizes))
	return nil
}
