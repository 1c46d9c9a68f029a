package generator

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windfarm/internal/config"
)

func ptr(b bool) *bool { return &b }

func newTestGenerator(t *testing.T, causes []Cause, effects []string) *Generator {
	t.Helper()
	g, err := New(causes, effects, WithRand(rand.New(rand.NewSource(42))))
	require.NoError(t, err)
	return g
}

func TestGenerateNeverSelfReferential(t *testing.T) {
	g := newTestGenerator(t, []Cause{
		{"the moon", true}, {"jazz", true}, {"wind farms", false}, {"pigeons", false},
	}, nil)

	for i := 0; i < 500; i++ {
		out, err := g.Generate(Options{})
		require.NoError(t, err)

		var cause, effect string
		for _, verb := range []string{" causes ", " cause "} {
			if c, e, ok := strings.Cut(out, verb); ok {
				cause, effect = c, e
				break
			}
		}
		require.NotEmpty(t, cause, out)
		assert.NotEqual(t, cause, effect, out)
	}
}

func TestGenerateSuffixFollowsNumber(t *testing.T) {
	g := newTestGenerator(t, []Cause{{"jazz", true}, {"pigeons", false}}, []string{"rain"})

	out, err := g.Generate(Options{Cause: "jazz"})
	require.NoError(t, err)
	assert.Equal(t, "jazz causes rain", out)

	out, err = g.Generate(Options{Cause: "pigeons"})
	require.NoError(t, err)
	assert.Equal(t, "pigeons cause rain", out)

	out, err = g.Generate(Options{Cause: "pigeons", Singular: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "pigeons causes rain", out)

	out, err = g.Generate(Options{Cause: "jazz", Singular: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "jazz cause rain", out)

	// unknown explicit cause is singular
	out, err = g.Generate(Options{Cause: "the tides"})
	require.NoError(t, err)
	assert.Equal(t, "the tides causes rain", out)
}

func TestGenerateWindFarmsScenario(t *testing.T) {
	cfg := &config.Config{Causes: config.Causes{
		Singular: []string{"tin-foil hats"},
		Plural:   []string{"wind farms"},
	}}
	g, err := FromConfig(cfg)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		out, err := g.Generate(Options{Cause: "wind farms"})
		require.NoError(t, err)
		assert.Equal(t, "wind farms cause tin-foil hats", out)
	}
}

func TestGenerateFixedEffectExcludedFromCauses(t *testing.T) {
	g := newTestGenerator(t, []Cause{{"jazz", true}, {"pigeons", false}}, []string{"jazz", "pigeons"})
	for i := 0; i < 50; i++ {
		out, err := g.Generate(Options{Effect: "jazz"})
		require.NoError(t, err)
		assert.Equal(t, "pigeons cause jazz", out)
	}
}

func TestNewRejectsUnsatisfiableLists(t *testing.T) {
	tests := []struct {
		name    string
		causes  []Cause
		effects []string
	}{
		{"no causes", nil, []string{"rain"}},
		{"single cause as own effect", []Cause{{"jazz", true}}, nil},
		{"same single entry", []Cause{{"jazz", true}}, []string{"jazz"}},
		{"effect only matches cause", []Cause{{"jazz", true}}, []string{"rain", "jazz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.causes, tt.effects)
			require.Error(t, err)
			assert.True(t, config.IsError(err))
		})
	}
}

func TestGenerateExplicitExhaustion(t *testing.T) {
	g := newTestGenerator(t, []Cause{{"jazz", true}, {"pigeons", false}}, []string{"rain", "snow"})

	_, err := g.Generate(Options{Cause: "rain", Effect: "rain"})
	assert.True(t, errors.Is(err, ErrNoCandidate))

	// explicit cause that is the only effect
	g = newTestGenerator(t, []Cause{{"jazz", true}, {"pigeons", false}}, []string{"pigeons", "jazz"})
	out, err := g.Generate(Options{Cause: "pigeons"})
	require.NoError(t, err)
	assert.Equal(t, "pigeons cause jazz", out)

	g = newTestGenerator(t, []Cause{{"jazz", true}, {"pigeons", false}}, []string{"rain"})
	_, err = g.Generate(Options{Cause: "rain"})
	assert.True(t, errors.Is(err, ErrNoCandidate))
}

func TestRandomEffect(t *testing.T) {
	g := newTestGenerator(t, []Cause{{"jazz", true}, {"pigeons", false}}, nil)
	for i := 0; i < 20; i++ {
		assert.Contains(t, []string{"jazz", "pigeons"}, g.RandomEffect())
	}
}
