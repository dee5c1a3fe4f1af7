package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerdictForScore(t *testing.T) {
	assert.Equal(t, VerdictStrongMatch, VerdictForScore(100))
	assert.Equal(t, VerdictStrongMatch, VerdictForScore(90))
	assert.Equal(t, VerdictGoodMatch, VerdictForScore(89))
	assert.Equal(t, VerdictGoodMatch, VerdictForScore(70))
	assert.Equal(t, VerdictPartialMatch, VerdictForScore(69))
	assert.Equal(t, VerdictPartialMatch, VerdictForScore(50))
	assert.Equal(t, VerdictWeakMatch, VerdictForScore(49))
	assert.Equal(t, VerdictWeakMatch, VerdictForScore(0))
}

func TestVerdictValid(t *testing.T) {
	assert.True(t, VerdictStrongMatch.Valid())
	assert.True(t, VerdictWeakMatch.Valid())
	assert.False(t, Verdict("AMAZING_MATCH").Valid())
	assert.False(t, Verdict("").Valid())
}
