package openai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/matchwise/matchwise/internal/domain/ai"
	"github.com/matchwise/matchwise/internal/domain/latex"
	"github.com/matchwise/matchwise/internal/infra/ai/prompt"
	"github.com/matchwise/matchwise/internal/logger"
)

const (
	defaultModel      = "gpt-4o"
	temperature       = 0.3
	analysisMaxTokens = 2048
	rewriteMaxTokens  = 4000

	// gpt-4o list pricing, USD per million tokens.
	inputCostPerMillion  = 5.0
	outputCostPerMillion = 15.0

	rawLogLimit = 3000
)

// Client implements the ai.Analyzer and ai.LatexGenerator ports on the
// OpenAI chat completions API. Transport and data errors never escape as
// Go errors; they collapse to outcome messages the orchestrators can
// persist directly.
type Client struct {
	api           *openai.Client
	model         string
	latexTemplate string
	policy        *bluemonday.Policy
	logger        *zap.Logger
}

func NewClient(apiKey, model, latexTemplate string, log *zap.Logger) *Client {
	if model == "" {
		model = defaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	policy := bluemonday.NewPolicy()
	policy.AllowElements("ul", "li")
	return &Client{
		api:           openai.NewClient(apiKey),
		model:         model,
		latexTemplate: latexTemplate,
		policy:        policy,
		logger:        log,
	}
}

// AnalyzeMatch scores a resume against a job description and returns a
// validated, sanitized result.
func (c *Client) AnalyzeMatch(ctx context.Context, in ai.MatchInput) ai.MatchOutcome {
	jd := c.truncated(in.JobDescription, prompt.MaxJobDescriptionChars, "job description")
	resume := c.truncated(in.ResumeText, prompt.MaxResumeChars, "resume")

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   analysisMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.AnalyzerSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.AnalyzerUserPrompt(jd, resume)},
		},
	})
	if err != nil {
		c.logger.Error("analysis chat completion failed", zap.Error(err))
		return ai.MatchOutcome{Err: "language model request failed"}
	}
	if len(resp.Choices) == 0 {
		return ai.MatchOutcome{Err: "language model returned no content"}
	}

	result, errMsg := c.parseMatch(resp.Choices[0].Message.Content)
	if errMsg != "" {
		return ai.MatchOutcome{Err: errMsg}
	}
	result.Model = c.model
	return ai.MatchOutcome{Result: result}
}

type matchResponse struct {
	MatchScore      *int     `json:"match_score"`
	Summary         string   `json:"summary"`
	Strengths       string   `json:"strengths"`
	Weaknesses      string   `json:"weaknesses"`
	Recommendations string   `json:"recommendations"`
	MissingKeywords []string `json:"missing_keywords"`
	Verdict         string   `json:"verdict"`
}

// parseMatch is the strict parse-and-validate step: never assume fields
// exist. Raw content is logged, not persisted.
func (c *Client) parseMatch(content string) (*ai.MatchResult, string) {
	var raw matchResponse
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		c.logger.Debug("unparsable llm response",
			zap.String("raw", logger.Truncate(content, rawLogLimit)), zap.Error(err))
		return nil, "language model returned unparsable JSON"
	}
	if raw.MatchScore == nil {
		c.logger.Debug("llm response missing match_score",
			zap.String("raw", logger.Truncate(content, rawLogLimit)))
		return nil, "language model response missing match_score"
	}
	if strings.TrimSpace(raw.Summary) == "" || strings.TrimSpace(raw.Strengths) == "" ||
		strings.TrimSpace(raw.Weaknesses) == "" || strings.TrimSpace(raw.Recommendations) == "" {
		c.logger.Debug("llm response missing required fields",
			zap.String("raw", logger.Truncate(content, rawLogLimit)))
		return nil, "language model response missing required fields"
	}

	score := *raw.MatchScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	keywords := make([]string, 0, len(raw.MissingKeywords))
	for _, k := range raw.MissingKeywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	return &ai.MatchResult{
		MatchScore:      score,
		Summary:         c.policy.Sanitize(strings.TrimSpace(raw.Summary)),
		Strengths:       c.policy.Sanitize(strings.TrimSpace(raw.Strengths)),
		Weaknesses:      c.policy.Sanitize(strings.TrimSpace(raw.Weaknesses)),
		Recommendations: c.policy.Sanitize(strings.TrimSpace(raw.Recommendations)),
		MissingKeywords: keywords,
		Verdict:         strings.ToUpper(strings.TrimSpace(raw.Verdict)),
	}, ""
}

// GenerateLatex rewrites the resume as a complete LaTeX document.
func (c *Client) GenerateLatex(ctx context.Context, in ai.GenerateInput) ai.GenerateOutcome {
	in.ResumeText = c.truncated(in.ResumeText, prompt.MaxRewriteResumeChars, "resume")
	in.JobDescription = c.truncated(in.JobDescription, prompt.MaxRewriteJobDescChars, "job description")

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   rewriteMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.RewriterSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.BuildRewritePrompt(in, c.latexTemplate)},
		},
	})
	if err != nil {
		c.logger.Error("rewrite chat completion failed", zap.Error(err))
		return ai.GenerateOutcome{Err: "language model request failed"}
	}
	if len(resp.Choices) == 0 {
		return ai.GenerateOutcome{Err: "language model returned no content"}
	}

	code := latex.StripCodeFence(resp.Choices[0].Message.Content)
	c.logger.Debug("raw generated latex", zap.String("latex", logger.Truncate(code, rawLogLimit)))

	if !latex.CompleteDocument(code) {
		return ai.GenerateOutcome{Err: "generated output is not a complete LaTeX document"}
	}

	usage := resp.Usage
	return ai.GenerateOutcome{
		LatexCode: code,
		Model:     c.model,
		Usage: ai.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
			EstimatedCost:    estimateCost(usage.PromptTokens, usage.CompletionTokens),
		},
	}
}

func estimateCost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1e6*inputCostPerMillion +
		float64(completionTokens)/1e6*outputCostPerMillion
}

func (c *Client) truncated(s string, max int, what string) string {
	if len(s) <= max {
		return s
	}
	c.logger.Info("truncating prompt input",
		zap.String("input", what), zap.Int("from", len(s)), zap.Int("to", max))
	return prompt.Truncate(s, max)
}
