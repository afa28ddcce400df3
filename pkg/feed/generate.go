package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// GenerateOptions controls [Generate].
type GenerateOptions struct {
	Name  string
	Count int
	Seed  uint64

	// MinSize and MaxSize bound the rendered sizes.
	MinSize float64
	MaxSize float64

	// SpanEvery makes every n-th item span two lanes. Zero disables spans.
	SpanEvery int

	// Exact stores estimates equal to the real size.
	Exact bool
}

// namespace scopes generated item keys.
var namespace = uuid.MustParse("6f1c3c1e-8f7b-4b55-9a5e-0c2a3e6d7b10")

var adjectives = []string{"amber", "brisk", "calm", "dusky", "early", "faded", "gilded", "hollow", "ivory", "jade"}
var nouns = []string{"harbor", "meadow", "canyon", "lantern", "orchard", "glacier", "atrium", "dune", "fjord", "grove"}

// Generate builds a synthetic feed. The same options always produce the
// same feed: keys are name-based UUIDs derived from the seed and index.
func Generate(opts GenerateOptions) *Feed {
	if opts.MinSize <= 0 {
		opts.MinSize = 80
	}
	if opts.MaxSize < opts.MinSize {
		opts.MaxSize = opts.MinSize * 3
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	f := &Feed{Name: opts.Name, Items: make([]Item, 0, max(opts.Count, 0))}
	for i := range max(opts.Count, 0) {
		size := opts.MinSize + rng.Float64()*(opts.MaxSize-opts.MinSize)
		size = float64(int(size))
		it := Item{
			Key:      uuid.NewSHA1(namespace, fmt.Appendf(nil, "%d/%d", opts.Seed, i)).String(),
			Title:    fmt.Sprintf("%s %s", adjectives[rng.IntN(len(adjectives))], nouns[rng.IntN(len(nouns))]),
			Estimate: (opts.MinSize + opts.MaxSize) / 2,
			Size:     size,
		}
		if opts.Exact {
			it.Estimate = size
		}
		if opts.SpanEvery > 0 && i%opts.SpanEvery == opts.SpanEvery-1 {
			it.ColSpan = 2
		}
		f.Items = append(f.Items, it)
	}
	return f
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
