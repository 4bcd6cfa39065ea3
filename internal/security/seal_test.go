package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/mandi-compare/internal/model"
)

func sampleResult() *model.ProfitabilityResult {
	best := model.EvaluatedMarket{ID: "M1", Name: "Market One", NetProfit: 18500, Distance: 50}
	return &model.ProfitabilityResult{
		Markets:              []model.EvaluatedMarket{best},
		BestMarket:           &best,
		NearestMarket:        &best,
		TotalMarketsCompared: 1,
		QuantityInQuintals:   10,
		Insights:             model.Insights{Impact: model.ImpactLow, Alerts: []model.Alert{}},
	}
}

func TestSealAndVerify(t *testing.T) {
	sealer, err := NewSealer()
	require.NoError(t, err)

	env, err := sealer.Seal(sampleResult(), "0xabc")
	require.NoError(t, err)

	assert.Equal(t, sealer.Address(), env.Signer)
	assert.Equal(t, "0xabc", env.CatalogDigest)
	assert.NoError(t, Verify(env, sealer.Address()))
}

func TestVerify_DetectsTampering(t *testing.T) {
	sealer, err := NewSealer()
	require.NoError(t, err)

	env, err := sealer.Seal(sampleResult(), "0xabc")
	require.NoError(t, err)

	env.Result.BestMarket.NetProfit = 99999
	assert.ErrorIs(t, Verify(env, sealer.Address()), ErrHashMismatch)
}

func TestVerify_WrongSigner(t *testing.T) {
	sealer, err := NewSealer()
	require.NoError(t, err)
	other, err := NewSealer()
	require.NoError(t, err)

	env, err := sealer.Seal(sampleResult(), "0xabc")
	require.NoError(t, err)

	assert.ErrorIs(t, Verify(env, other.Address()), ErrSignerMismatch)
}

func TestResultHash_Deterministic(t *testing.T) {
	a, err := ResultHash(sampleResult(), "0xabc")
	require.NoError(t, err)
	b, err := ResultHash(sampleResult(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := ResultHash(sampleResult(), "0xdef")
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "catalog digest is part of the hash")
}
