package mispricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/optionedge/internal/domain/regime"
	"github.com/sawpanic/optionedge/internal/errs"
)

var confident = regime.Probs{Bull: 0.9, Sideways: 0.05, Crisis: 0.05}

func TestStep_FairPriceProducesNoSignal(t *testing.T) {
	e := NewEngine(DefaultConfig())
	sig, err := e.Step(10.0, 10.0, confident, 0)
	require.NoError(t, err)

	assert.Zero(t, sig.Raw)
	assert.Zero(t, sig.Normalized)
	assert.Zero(t, sig.Confidence, "no signal means no confidence")
}

func TestStep_DeadbandSuppressesNoise(t *testing.T) {
	e := NewEngine(DefaultConfig())
	sig, err := e.Step(10.05, 10.0, confident, 0) // 0.5% < min_signal_strength
	require.NoError(t, err)

	assert.InDelta(t, 0.005, sig.Raw, 1e-9)
	assert.Zero(t, sig.Normalized)
	assert.Zero(t, sig.Confidence)
}

func TestStep_EWMSmoothing(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)

	first, err := e.Step(11.0, 10.0, confident, 0) // raw +0.10 seeds the smoother
	require.NoError(t, err)
	assert.InDelta(t, 0.10, first.Normalized, 1e-9)

	second, err := e.Step(12.0, 10.0, confident, 0) // raw +0.20
	require.NoError(t, err)
	want := cfg.EMAAlpha*0.20 + (1-cfg.EMAAlpha)*0.10
	assert.InDelta(t, want, second.Normalized, 1e-9)
	assert.Less(t, second.Normalized, second.Raw, "smoothing must lag the raw jump")
}

func TestStep_SignIsDirectional(t *testing.T) {
	e := NewEngine(DefaultConfig())
	under, err := e.Step(11.0, 10.0, confident, 0)
	require.NoError(t, err)
	assert.Positive(t, under.Normalized, "market below model leans BUY")

	e.Reset()
	over, err := e.Step(9.0, 10.0, confident, 0)
	require.NoError(t, err)
	assert.Negative(t, over.Normalized, "market above model leans SELL")
}

func TestStep_ConfidenceTracksRegimeConcentration(t *testing.T) {
	sharp := NewEngine(DefaultConfig())
	vague := NewEngine(DefaultConfig())

	uniform := regime.Probs{Bull: 1.0 / 3, Sideways: 1.0 / 3, Crisis: 1.0 / 3}

	s1, err := sharp.Step(11.0, 10.0, confident, 0)
	require.NoError(t, err)
	s2, err := vague.Step(11.0, 10.0, uniform, 0)
	require.NoError(t, err)

	assert.Greater(t, s1.Confidence, s2.Confidence)
	assert.Zero(t, s2.Confidence, "an uninformative regime vector yields zero confidence")
}

func TestStep_DriftUncertaintyErodesConfidence(t *testing.T) {
	certain := NewEngine(DefaultConfig())
	uncertain := NewEngine(DefaultConfig())

	s1, err := certain.Step(11.0, 10.0, confident, 0)
	require.NoError(t, err)
	s2, err := uncertain.Step(11.0, 10.0, confident, 0.01)
	require.NoError(t, err)

	assert.Greater(t, s1.Confidence, s2.Confidence)
	assert.GreaterOrEqual(t, s2.Confidence, 0.0)
}

func TestStep_RejectsBadPrices(t *testing.T) {
	e := NewEngine(DefaultConfig())

	_, err := e.Step(10.0, 0, confident, 0)
	require.Error(t, err)
	var de *errs.DataError
	assert.ErrorAs(t, err, &de)

	_, err = e.Step(-1.0, 10.0, confident, 0)
	require.Error(t, err)
	var nie *errs.NumericalInstabilityError
	assert.ErrorAs(t, err, &nie)
}

func TestReset_ClearsSmoothingState(t *testing.T) {
	e := NewEngine(DefaultConfig())
	_, err := e.Step(15.0, 10.0, confident, 0)
	require.NoError(t, err)

	e.Reset()
	sig, err := e.Step(11.0, 10.0, confident, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, sig.Normalized, 1e-9, "a reset engine seeds from the new raw value")
}
