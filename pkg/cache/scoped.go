package cache

// ScopedKeyer prefixes every key of an inner Keyer, so deployments sharing
// one Redis or MongoDB backend never read each other's snapshots. The
// prefix should end in ":" to keep [Instrument]'s key types intact.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer scopes inner, or the DefaultKeyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return ScopedKeyer{inner: inner, prefix: prefix}
}

func (k ScopedKeyer) SizesKey(feedHash string, opts SizesKeyOpts) string {
	return k.prefix + k.inner.SizesKey(feedHash, opts)
}

func (k ScopedKeyer) LayoutKey(feedHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(feedHash, opts)
}

func (k ScopedKeyer) SessionKey(id string) string {
	return k.prefix + k.inner.SessionKey(id)
}
