// Package generator builds "cause → effect" utterances from configured word
// lists.
package generator

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"windfarm/internal/config"
)

// ErrNoCandidate is returned when the exclusion rules leave nothing to pick.
var ErrNoCandidate = errors.New("generator: no candidate left")

// Cause is a word or phrase with its grammatical number.
type Cause struct {
	Text     string
	Singular bool
}

// Options fixes parts of an utterance. Zero values are drawn at random.
type Options struct {
	Cause  string
	Effect string
	// Singular overrides the number of an explicit Cause.
	Singular *bool
}

type Generator struct {
	causes  []Cause
	effects []string

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Generator)

// WithRand injects the random source (tests).
func WithRand(rng *rand.Rand) Option { return func(g *Generator) { g.rng = rng } }

// New validates the lists: both must be non-empty, and every cause must have
// at least one effect other than itself and vice versa. Failures are
// *config.Error.
func New(causes []Cause, effects []string, opts ...Option) (*Generator, error) {
	g := &Generator{
		causes:  append([]Cause(nil), causes...),
		effects: append([]string(nil), effects...),
	}
	if len(g.effects) == 0 {
		for _, c := range g.causes {
			g.effects = append(g.effects, c.Text)
		}
	}
	for _, o := range opts {
		o(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if len(g.causes) == 0 {
		return nil, config.Errorf("causes", "at least one cause required")
	}
	if len(g.effects) == 0 {
		return nil, config.Errorf("effects", "at least one effect required")
	}
	for _, c := range g.causes {
		if len(without(g.effects, c.Text)) == 0 {
			return nil, config.Errorf("effects", "no effect other than %q for cause %q", c.Text, c.Text)
		}
	}
	for _, e := range g.effects {
		if len(withoutCause(g.causes, e)) == 0 {
			return nil, config.Errorf("causes", "no cause other than %q for effect %q", e, e)
		}
	}
	return g, nil
}

// FromConfig builds a generator from the causes and effect pool of cfg.
func FromConfig(cfg *config.Config, opts ...Option) (*Generator, error) {
	causes := make([]Cause, 0, len(cfg.Causes.Singular)+len(cfg.Causes.Plural))
	for _, s := range cfg.Causes.Singular {
		causes = append(causes, Cause{Text: s, Singular: true})
	}
	for _, s := range cfg.Causes.Plural {
		causes = append(causes, Cause{Text: s, Singular: false})
	}
	return New(causes, cfg.EffectPool(), opts...)
}

// Effects returns a copy of the effect pool.
func (g *Generator) Effects() []string { return append([]string(nil), g.effects...) }

// RandomEffect picks one effect uniformly.
func (g *Generator) RandomEffect() string {
	return g.effects[g.intn(len(g.effects))]
}

// Generate returns "{cause} cause[s] {effect}". The cause and effect are
// never the same text.
func (g *Generator) Generate(o Options) (string, error) {
	var c Cause
	if o.Cause == "" {
		pool := withoutCause(g.causes, o.Effect)
		if len(pool) == 0 {
			return "", fmt.Errorf("%w: every cause equals effect %q", ErrNoCandidate, o.Effect)
		}
		c = pool[g.intn(len(pool))]
	} else {
		c = Cause{Text: o.Cause, Singular: true}
		if known, ok := g.lookup(o.Cause); ok {
			c.Singular = known.Singular
		}
		if o.Singular != nil {
			c.Singular = *o.Singular
		}
	}

	effect := o.Effect
	if effect == "" {
		pool := without(g.effects, c.Text)
		if len(pool) == 0 {
			return "", fmt.Errorf("%w: every effect equals cause %q", ErrNoCandidate, c.Text)
		}
		effect = pool[g.intn(len(pool))]
	} else if effect == c.Text {
		return "", fmt.Errorf("%w: cause and effect are both %q", ErrNoCandidate, effect)
	}

	verb := "cause"
	if c.Singular {
		verb = "causes"
	}
	return c.Text + " " + verb + " " + effect, nil
}

func (g *Generator) lookup(text string) (Cause, bool) {
	for _, c := range g.causes {
		if c.Text == text {
			return c, true
		}
	}
	return Cause{}, false
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

func without(list []string, drop string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

func withoutCause(list []Cause, drop string) []Cause {
	out := make([]Cause, 0, len(list))
	for _, c := range list {
		if c.Text != drop {
			out = append(out, c)
		}
	}
	return out
}
