package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return NewClient("test-key", "", "", nil)
}

func TestParseMatchValidResponse(t *testing.T) {
	c := testClient()

	content := `{
		"match_score": 85,
		"summary": "Solid backend profile.",
		"strengths": "<ul><li>Go experience</li></ul>",
		"weaknesses": "<ul><li>No Kubernetes</li></ul>",
		"recommendations": "<ul><li>Add cloud projects</li></ul>",
		"missing_keywords": ["Kubernetes", " Terraform ", ""],
		"verdict": " good_match "
	}`
	result, errMsg := c.parseMatch(content)
	require.Empty(t, errMsg)
	assert.Equal(t, 85, result.MatchScore)
	assert.Equal(t, "Solid backend profile.", result.Summary)
	assert.Equal(t, "<ul><li>Go experience</li></ul>", result.Strengths)
	assert.Equal(t, []string{"Kubernetes", "Terraform"}, result.MissingKeywords)
	assert.Equal(t, "GOOD_MATCH", result.Verdict)
}

func TestParseMatchStripsDisallowedHTML(t *testing.T) {
	c := testClient()

	content := `{
		"match_score": 50,
		"summary": "<script>alert(1)</script>ok",
		"strengths": "<b>bold</b> text",
		"weaknesses": "w",
		"recommendations": "r",
		"verdict": "PARTIAL_MATCH"
	}`
	result, errMsg := c.parseMatch(content)
	require.Empty(t, errMsg)
	assert.Equal(t, "ok", result.Summary)
	assert.Equal(t, "bold text", result.Strengths)
}

func TestParseMatchClampsScore(t *testing.T) {
	c := testClient()

	result, errMsg := c.parseMatch(`{"match_score": 150, "summary":"s","strengths":"a","weaknesses":"w","recommendations":"r","verdict":"STRONG_MATCH"}`)
	require.Empty(t, errMsg)
	assert.Equal(t, 100, result.MatchScore)

	result, errMsg = c.parseMatch(`{"match_score": -5, "summary":"s","strengths":"a","weaknesses":"w","recommendations":"r","verdict":"WEAK_MATCH"}`)
	require.Empty(t, errMsg)
	assert.Equal(t, 0, result.MatchScore)
}

func TestParseMatchMissingScore(t *testing.T) {
	c := testClient()

	_, errMsg := c.parseMatch(`{"summary":"s","strengths":"a","weaknesses":"w","recommendations":"r"}`)
	assert.Equal(t, "language model response missing match_score", errMsg)
}

func TestParseMatchMissingTextFields(t *testing.T) {
	c := testClient()

	_, errMsg := c.parseMatch(`{"match_score": 70, "summary":"", "strengths":"a","weaknesses":"w","recommendations":"r"}`)
	assert.Equal(t, "language model response missing required fields", errMsg)
}

func TestParseMatchUnparsableJSON(t *testing.T) {
	c := testClient()

	_, errMsg := c.parseMatch(`I think the match score is about 80.`)
	assert.Equal(t, "language model returned unparsable JSON", errMsg)
}

func TestEstimateCost(t *testing.T) {
	// 1M input tokens at 5 USD plus 1M output tokens at 15 USD.
	assert.InDelta(t, 20.0, estimateCost(1_000_000, 1_000_000), 1e-9)
	assert.InDelta(t, 0.0275, estimateCost(1000, 1500), 1e-9)
}
