package dimension

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStrategies = []Strategy{
	KeepSame, Percentage, LongEdge, MaxHeight, MaxWidth,
	FixedHeight, FixedWidth, FitInFrame, FixedInFrame,
}

func TestPlanDegenerateInput(t *testing.T) {
	for _, s := range allStrategies {
		h, w := Plan(s, Params{Percentage: 50, PrimaryEdge: 100}, 0, 100)
		assert.Equal(t, 0, h, s.String())
		assert.Equal(t, 0, w, s.String())

		h, w = Plan(s, Params{Percentage: 50, PrimaryEdge: 100}, 100, -1)
		assert.Equal(t, 0, h, s.String())
		assert.Equal(t, 0, w, s.String())
	}
}

func TestPlanAlwaysAtLeastOne(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	params := []Params{
		{Percentage: 0.01, PrimaryEdge: 1, Frame: Frame{LongEdge: 0.01, ShortEdge: 0.01}},
		{Percentage: 37, PrimaryEdge: 640, Frame: Frame{LongEdge: 6, ShortEdge: 4, Margin: 0.25}},
		{Percentage: 250, PrimaryEdge: 19999, Frame: Frame{LongEdge: 10, ShortEdge: 8}},
		{},
	}

	for i := 0; i < 2000; i++ {
		w := rng.Intn(20000) + 1
		h := rng.Intn(20000) + 1
		for _, s := range allStrategies {
			for _, p := range params {
				nh, nw := Plan(s, p, h, w)
				require.GreaterOrEqual(t, nh, 1, "%s %dx%d %+v", s, w, h, p)
				require.GreaterOrEqual(t, nw, 1, "%s %dx%d %+v", s, w, h, p)
			}
		}
	}
}

func TestPlanKeepSameIsIdentity(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {480, 640}, {20000, 3}} {
		h, w := Plan(KeepSame, Params{Percentage: 10, PrimaryEdge: 5}, size[0], size[1])
		assert.Equal(t, size[0], h)
		assert.Equal(t, size[1], w)
	}
}

func TestPlanPercentage(t *testing.T) {
	h, w := Plan(Percentage, Params{Percentage: 50}, 301, 400)
	assert.Equal(t, 151, h)
	assert.Equal(t, 200, w)

	h, w = Plan(Percentage, Params{Percentage: 1}, 10, 10)
	assert.Equal(t, 1, h)
	assert.Equal(t, 1, w)
}

func TestPlanNeverUpscalesCappedStrategies(t *testing.T) {
	for _, s := range []Strategy{LongEdge, MaxHeight, MaxWidth} {
		h, w := Plan(s, Params{PrimaryEdge: 1000}, 600, 1000)
		assert.Equal(t, 600, h, s.String())
		assert.Equal(t, 1000, w, s.String())

		h, w = Plan(s, Params{PrimaryEdge: 4000}, 50, 80)
		assert.Equal(t, 50, h, s.String())
		assert.Equal(t, 80, w, s.String())
	}
}

func TestPlanLongEdge(t *testing.T) {
	h, w := Plan(LongEdge, Params{PrimaryEdge: 1000}, 3000, 4000)
	assert.Equal(t, 750, h)
	assert.Equal(t, 1000, w)

	h, w = Plan(LongEdge, Params{PrimaryEdge: 1000}, 4000, 3000)
	assert.Equal(t, 1000, h)
	assert.Equal(t, 750, w)
}

func TestPlanMaxAxes(t *testing.T) {
	h, w := Plan(MaxHeight, Params{PrimaryEdge: 300}, 600, 800)
	assert.Equal(t, 300, h)
	assert.Equal(t, 400, w)

	h, w = Plan(MaxWidth, Params{PrimaryEdge: 400}, 600, 800)
	assert.Equal(t, 300, h)
	assert.Equal(t, 400, w)

	// The capped axis is the only one considered.
	h, w = Plan(MaxHeight, Params{PrimaryEdge: 700}, 600, 8000)
	assert.Equal(t, 600, h)
	assert.Equal(t, 8000, w)
}

func TestPlanFixedAxesHitTargetExactly(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		w := rng.Intn(20000) + 1
		h := rng.Intn(20000) + 1
		edge := rng.Intn(5000) + 1

		nh, _ := Plan(FixedHeight, Params{PrimaryEdge: edge}, h, w)
		require.Equal(t, edge, nh)

		_, nw := Plan(FixedWidth, Params{PrimaryEdge: edge}, h, w)
		require.Equal(t, edge, nw)
	}

	h, w := Plan(FixedWidth, Params{PrimaryEdge: 1600}, 600, 800)
	assert.Equal(t, 1200, h)
	assert.Equal(t, 1600, w)
}

func TestPlanFitInFrame(t *testing.T) {
	frame := Frame{LongEdge: 6, ShortEdge: 4}

	// 6x4in at 300 DPI is 1800x1200 px.
	h, w := Plan(FitInFrame, Params{Frame: frame}, 3000, 6000)
	assert.Equal(t, 900, h)
	assert.Equal(t, 1800, w)

	// Portrait orientation swaps the frame.
	h, w = Plan(FitInFrame, Params{Frame: frame}, 6000, 3000)
	assert.Equal(t, 1800, h)
	assert.Equal(t, 900, w)

	// Short edge overflow re-derives from the short edge.
	h, w = Plan(FitInFrame, Params{Frame: frame}, 3000, 3600)
	assert.Equal(t, 1200, h)
	assert.Equal(t, 1440, w)

	// Small images are left alone.
	h, w = Plan(FitInFrame, Params{Frame: frame}, 300, 400)
	assert.Equal(t, 300, h)
	assert.Equal(t, 400, w)
}

func TestPlanFixedInFrameUpscales(t *testing.T) {
	frame := Frame{LongEdge: 6, ShortEdge: 4}
	h, w := Plan(FixedInFrame, Params{Frame: frame}, 300, 600)
	assert.Equal(t, 900, h)
	assert.Equal(t, 1800, w)
}

func TestPlanFrameMargin(t *testing.T) {
	frame := Frame{LongEdge: 7, ShortEdge: 5, Margin: 0.5}
	h, w := Plan(FixedInFrame, Params{Frame: frame}, 100, 150)
	assert.Equal(t, 1200, h)
	assert.Equal(t, 1800, w)
}

func TestParseStrategyRoundTrip(t *testing.T) {
	for _, s := range allStrategies {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseStrategy("stretch")
	assert.Error(t, err)
}
