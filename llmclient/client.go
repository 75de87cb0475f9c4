// Package llmclient is a thin client over an OpenAI-compatible
// chat-completions endpoint, used for semantic violation analysis and fix
// generation. Built on github.com/sashabaranov/go-openai for the wire
// types, wrapped in the retry shape of the teacher's llm.Client
// (llm/client.go): functional ClientOptions, a RetryConfig record, and
// HTTP-status error classification into soc2err.LlmError kinds.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/c360studio/soc2scan/catalog"
	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/soc2err"
)

const analysisTimeout = 30 * time.Second

// Client is an OpenAI-compatible chat-completions client specialized for
// SOC 2 violation analysis and fix generation.
type Client struct {
	openai      *openai.Client
	model       string
	retryConfig RetryConfig
	pricing     PricingTable
	logger      *slog.Logger
}

// clientConfig accumulates ClientOption values before the openai.Client is
// constructed, since the base URL must be known up front.
type clientConfig struct {
	apiKey      string
	baseURL     string
	model       string
	retryConfig RetryConfig
	pricing     PricingTable
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithModel overrides the chat-completions model identifier.
func WithModel(model string) ClientOption {
	return func(c *clientConfig) { c.model = model }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint other
// than api.openai.com (self-hosted gateways, OpenRouter, etc).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *clientConfig) { c.baseURL = baseURL }
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *clientConfig) { c.retryConfig = cfg }
}

// WithPricingTable sets the per-token-category USD rates.
func WithPricingTable(p PricingTable) ClientOption {
	return func(c *clientConfig) { c.pricing = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) { c.logger = logger }
}

// NewClient creates a Client authenticated with apiKey, defaulting to
// api.openai.com and gpt-4o-mini. apiKey is expected to come from a
// configurable environment variable; an empty key fails the first call
// with an auth error rather than at construction time, mirroring how the
// teacher's providers.OpenAIProvider reads OPENAI_API_KEY lazily.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	cfg := &clientConfig{
		apiKey:      apiKey,
		model:       "gpt-4o-mini",
		retryConfig: DefaultRetryConfig(),
		pricing:     DefaultPricingTable(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var oaClient *openai.Client
	if cfg.baseURL != "" {
		oaCfg := openai.DefaultConfig(cfg.apiKey)
		oaCfg.BaseURL = cfg.baseURL
		oaClient = openai.NewClientWithConfig(oaCfg)
	} else {
		oaClient = openai.NewClient(cfg.apiKey)
	}

	return &Client{
		openai:      oaClient,
		model:       cfg.model,
		retryConfig: cfg.retryConfig,
		pricing:     cfg.pricing,
		logger:      cfg.logger,
	}
}

// Pricing returns the rate table this client computes Usage.CostUSD with.
func (c *Client) Pricing() PricingTable { return c.pricing }

// Detection is a single semantic finding from AnalyzeFile.
type Detection struct {
	ControlID       string
	Severity        model.Severity
	Description     string
	LineNumber      int
	CodeSnippet     string
	ConfidenceScore int
	Reasoning       string
}

// AnalyzeRequest is the input to AnalyzeFile.
type AnalyzeRequest struct {
	RelPath       string
	Source        string
	Framework     string
	RegexFindings []model.Violation
}

// AnalyzeResult is the output of AnalyzeFile.
type AnalyzeResult struct {
	Detections []Detection
	Usage      Usage
}

// AnalyzeFile asks the model to semantically review a single file against
// the full control catalog, given the regex findings already on record
// for it so the model is not asked to repeat them.
func (c *Client) AnalyzeFile(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	sysMsg := buildAnalysisSystemPrompt()
	userMsg := buildAnalysisUserPrompt(req)

	resp, err := c.completeWithRetry(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: sysMsg},
		{Role: openai.ChatMessageRoleUser, Content: userMsg},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, soc2err.NewLlmError(soc2err.LlmProtocol, errors.New("empty choices in response"))
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = stripMarkdownFences(content)

	var wire []detectionWire
	if content == "" || content == "[]" {
		wire = nil
	} else if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return nil, fmt.Errorf("%w: parse analysis response: %v", soc2err.NewLlmError(soc2err.LlmProtocol, err), err)
	}

	detections := make([]Detection, 0, len(wire))
	for _, w := range wire {
		sev := model.Severity(strings.ToLower(w.Severity))
		if !sev.Valid() {
			continue
		}
		detections = append(detections, Detection{
			ControlID:       w.ControlID,
			Severity:        sev,
			Description:     w.Description,
			LineNumber:      w.LineNumber,
			CodeSnippet:     w.CodeSnippet,
			ConfidenceScore: w.ConfidenceScore,
			Reasoning:       w.Reasoning,
		})
	}

	return &AnalyzeResult{
		Detections: detections,
		Usage:      usageFromResponse(resp),
	}, nil
}

type detectionWire struct {
	ControlID       string `json:"control_id"`
	Severity        string `json:"severity"`
	Description     string `json:"description"`
	LineNumber      int    `json:"line_number"`
	CodeSnippet     string `json:"code_snippet"`
	ConfidenceScore int    `json:"confidence_score"`
	Reasoning       string `json:"reasoning"`
}

// FixRequest is the input to GenerateFix.
type FixRequest struct {
	Violation    model.Violation
	Framework    string
	FunctionName string
	ClassName    string
}

// FixResult is the output of GenerateFix.
type FixResult struct {
	FixedCode string
	Usage     Usage
}

// GenerateFix asks the model for a replacement snippet for a single
// violation, templated per control id.
func (c *Client) GenerateFix(ctx context.Context, req FixRequest) (*FixResult, error) {
	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	sysMsg := "You are a secure code reviewer producing minimal, compiling code fixes for SOC 2 compliance violations. Reply with the replacement code only, no explanation, no markdown fences."
	userMsg := buildFixUserPrompt(req)

	resp, err := c.completeWithRetry(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: sysMsg},
		{Role: openai.ChatMessageRoleUser, Content: userMsg},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, soc2err.NewLlmError(soc2err.LlmProtocol, errors.New("empty choices in response"))
	}

	fixed := stripMarkdownFences(strings.TrimSpace(resp.Choices[0].Message.Content))
	return &FixResult{FixedCode: fixed, Usage: usageFromResponse(resp)}, nil
}

func buildAnalysisSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a SOC 2 compliance analyst. Review the given source file against these controls:\n\n")
	for _, ctl := range catalog.All() {
		fmt.Fprintf(&b, "- %s (%s): %s\n", ctl.ID, ctl.Name, ctl.Requirement)
	}
	b.WriteString("\nReply with a JSON array of detections, each an object with keys: ")
	b.WriteString("control_id, severity (critical|high|medium|low), description, line_number, code_snippet, confidence_score (0-100), reasoning. ")
	b.WriteString("Reply with [] if nothing new is found. Do not repeat findings already listed as known.")
	return b.String()
}

func buildAnalysisUserPrompt(req AnalyzeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\nFramework: %s\n\n", req.RelPath, req.Framework)
	if len(req.RegexFindings) > 0 {
		b.WriteString("Known findings (do not repeat):\n")
		for _, v := range req.RegexFindings {
			fmt.Fprintf(&b, "- line %d [%s] %s\n", v.LineNumber, v.ControlID, v.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("Source:\n")
	b.WriteString(req.Source)
	return b.String()
}

func buildFixUserPrompt(req FixRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Control: %s\nSeverity: %s\nFramework: %s\n", req.Violation.ControlID, req.Violation.Severity, req.Framework)
	if req.FunctionName != "" {
		fmt.Fprintf(&b, "Function: %s\n", req.FunctionName)
	}
	if req.ClassName != "" {
		fmt.Fprintf(&b, "Class: %s\n", req.ClassName)
	}
	fmt.Fprintf(&b, "Issue: %s\n\nOriginal code (line %d):\n%s\n", req.Violation.Description, req.Violation.LineNumber, req.Violation.CodeSnippet)
	return b.String()
}

func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func usageFromResponse(resp openai.ChatCompletionResponse) Usage {
	return Usage{
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}
}

// completeWithRetry drives a single chat-completions call through the
// retry policy, classifying failures into transient/fatal soc2err.LlmError
// kinds the way llm.Client.tryEndpointWithRetryTracked does.
func (c *Client) completeWithRetry(ctx context.Context, messages []openai.ChatCompletionMessage) (openai.ChatCompletionResponse, error) {
	temperature := float32(0)
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   2048,
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		resp, err := c.openai.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}

		classified := classifyError(err)
		lastErr = classified

		if soc2err.IsFatal(classified) {
			return openai.ChatCompletionResponse{}, classified
		}

		if attempt < c.retryConfig.MaxAttempts {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debug("llm request failed, retrying",
				"attempt", attempt, "max_attempts", c.retryConfig.MaxAttempts, "backoff", backoff, "error", classified)
			select {
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return openai.ChatCompletionResponse{}, lastErr
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retryConfig.BackoffMultiplier
	}
	backoff := time.Duration(float64(c.retryConfig.BackoffBase) * multiplier)
	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}
	jitter := float64(backoff) * c.retryConfig.Jitter * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

// classifyError maps a go-openai error into a soc2err.LlmError, following
// llm.classifyHTTPError's status-code dispatch.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.HTTPStatusCode
		switch {
		case status == 401 || status == 403:
			return soc2err.NewLlmError(soc2err.LlmAuth, err)
		case status == 429:
			return soc2err.NewLlmHTTPError(status, apiErr.Message)
		case status >= 500:
			return soc2err.NewLlmHTTPError(status, apiErr.Message)
		case status == 400:
			return soc2err.NewLlmError(soc2err.LlmProtocol, err)
		default:
			return soc2err.NewLlmHTTPError(status, apiErr.Message)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return soc2err.NewLlmError(soc2err.LlmNetwork, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return soc2err.NewLlmError(soc2err.LlmTimeout, err)
	}

	return soc2err.NewLlmError(soc2err.LlmNetwork, err)
}
