package rebalance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultAIBaseURL      = "https://api.openai.com/v1"
	defaultGeminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	aiRequestTimeout      = 5 * time.Minute
	maxAIResponseBodySize = 2 << 20
	aiMaxOutputTokens     = 32000
)

const rebalanceAdviceSystemPrompt = `You are a professional portfolio rebalancing advisor grounded in modern portfolio theory.

You will receive a snapshot of a rebalancing group: its asset tags, each tag's current market value, current percentage of the portfolio, target percentage, and the difference between target and current.

Your task is to explain how the investor should move toward their target allocation and flag anything notable about the current drift.

Output requirements:
- Output a pure JSON object. No Markdown code fences, no text outside the JSON.
- JSON fields:
  - summary: string (2-3 sentences describing the overall state of the portfolio vs its targets)
  - rationale: string (why the suggested moves make sense for this allocation)
  - suggestions: [{tag_id, tag_name, action, rationale}] (one entry per tag; action is one of increase/reduce/hold)
  - disclaimer: string (risk disclaimer)
- suggestions must cover every tag in the input, in the same order
- Never promise returns; always include the risk disclaimer
- Base the advice only on the provided allocation data; do not invent holdings or prices`

// RebalanceAdviceRequest defines the inputs for AI rebalancing advice.
type RebalanceAdviceRequest struct {
	BaseURL      string
	APIKey       string
	Model        string
	GroupID      string
	CustomPrompt string
}

// RebalanceAdviceEntry is one per-tag suggestion from the model.
type RebalanceAdviceEntry struct {
	TagID     string `json:"tag_id"`
	TagName   string `json:"tag_name"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// RebalanceAdviceResult is the structured advice returned to clients.
type RebalanceAdviceResult struct {
	GeneratedAt string                 `json:"generated_at"`
	Model       string                 `json:"model"`
	GroupID     string                 `json:"group_id"`
	Summary     string                 `json:"summary"`
	Rationale   string                 `json:"rationale"`
	Suggestions []RebalanceAdviceEntry `json:"suggestions"`
	Disclaimer  string                 `json:"disclaimer"`
}

type rebalanceAdviceModelResponse struct {
	Summary     string                 `json:"summary"`
	Rationale   string                 `json:"rationale"`
	Suggestions []RebalanceAdviceEntry `json:"suggestions"`
	Disclaimer  string                 `json:"disclaimer"`
}

type rebalanceAdvicePromptTag struct {
	TagID          string `json:"tag_id"`
	TagName        string `json:"tag_name"`
	CurrentValue   string `json:"current_value"`
	CurrentPercent string `json:"current_percent"`
	TargetPercent  string `json:"target_percent"`
	Difference     string `json:"difference"`
}

type rebalanceAdvicePromptInput struct {
	GroupName    string                     `json:"group_name"`
	BaseCurrency string                     `json:"base_currency"`
	TotalValue   string                     `json:"total_value"`
	Allocations  []rebalanceAdvicePromptTag `json:"allocations"`
	CustomPrompt string                     `json:"custom_prompt,omitempty"`
}

// GenerateRebalanceAdvice builds a prompt from the group's current allocation
// analysis and asks the configured model for rebalancing advice.
func (c *Core) GenerateRebalanceAdvice(ctx context.Context, req RebalanceAdviceRequest) (*RebalanceAdviceResult, error) {
	if err := normalizeRebalanceAdviceRequest(&req); err != nil {
		return nil, err
	}

	analysis, err := c.ComputeRebalancingAnalysis(req.GroupID)
	if err != nil {
		return nil, err
	}
	if len(analysis.Allocations) == 0 {
		return nil, NewError(ErrCodeValidation, "group has no tags; add tags before requesting advice")
	}

	userPrompt, err := buildRebalanceAdviceUserPrompt(analysis, req.CustomPrompt)
	if err != nil {
		return nil, err
	}

	endpointURL, err := buildAICompletionsEndpoint(req.BaseURL)
	if err != nil {
		return nil, NewError(ErrCodeInvalidInput, err.Error())
	}

	chatResult, err := aiChatCompletion(ctx, aiChatCompletionRequest{
		EndpointURL:  endpointURL,
		APIKey:       req.APIKey,
		Model:        req.Model,
		SystemPrompt: rebalanceAdviceSystemPrompt,
		UserPrompt:   userPrompt,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, Errorf(ErrCodeInternal, "AI request failed: %v", err)
	}

	parsed, err := parseRebalanceAdviceResponse(chatResult.Content)
	if err != nil {
		return nil, Errorf(ErrCodeInternal, "failed to parse AI response: %v", err)
	}

	return &RebalanceAdviceResult{
		GeneratedAt: timeNow().UTC().Format(time.RFC3339),
		Model:       chatResult.Model,
		GroupID:     req.GroupID,
		Summary:     parsed.Summary,
		Rationale:   parsed.Rationale,
		Suggestions: parsed.Suggestions,
		Disclaimer:  parsed.Disclaimer,
	}, nil
}

func normalizeRebalanceAdviceRequest(req *RebalanceAdviceRequest) error {
	req.BaseURL = strings.TrimSpace(req.BaseURL)
	req.APIKey = strings.TrimSpace(req.APIKey)
	req.Model = strings.TrimSpace(req.Model)
	req.GroupID = strings.TrimSpace(req.GroupID)

	if req.APIKey == "" {
		return NewError(ErrCodeInvalidInput, "API key is required")
	}
	if req.Model == "" {
		return NewError(ErrCodeInvalidInput, "model is required")
	}
	if req.GroupID == "" {
		return NewError(ErrCodeInvalidInput, "group_id is required")
	}
	if req.BaseURL == "" {
		req.BaseURL = defaultAIBaseURL
	}
	return nil
}

func buildRebalanceAdviceUserPrompt(analysis *RebalancingAnalysis, customPrompt string) (string, error) {
	input := rebalanceAdvicePromptInput{
		GroupName:    analysis.GroupName,
		BaseCurrency: analysis.BaseCurrency,
		TotalValue:   analysis.TotalValue.String(),
		CustomPrompt: strings.TrimSpace(customPrompt),
	}
	for _, a := range analysis.Allocations {
		input.Allocations = append(input.Allocations, rebalanceAdvicePromptTag{
			TagID:          a.TagID,
			TagName:        a.TagName,
			CurrentValue:   a.CurrentValue.String(),
			CurrentPercent: a.CurrentPercent.String(),
			TargetPercent:  a.TargetPercent.String(),
			Difference:     a.Difference.String(),
		})
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to serialize prompt input: %w", err)
	}

	prompt := fmt.Sprintf(`Analyze the following rebalancing group and suggest how to move toward the target allocation:

%s

Field notes:
- current_percent / target_percent are percentages of the group's total value
- difference = target_percent - current_percent; a positive difference means the tag is under-allocated
- all monetary values are in base_currency

Output requirements:
1) Pure JSON object, no extra text or Markdown markers
2) suggestions must contain exactly %d entries, one per allocation, in input order
3) action must be one of increase/reduce/hold`, string(payload), len(analysis.Allocations))

	return prompt, nil
}

func parseRebalanceAdviceResponse(content string) (*rebalanceAdviceModelResponse, error) {
	cleaned := cleanupModelJSON(content)
	var parsed rebalanceAdviceModelResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	for i := range parsed.Suggestions {
		parsed.Suggestions[i].Action = strings.ToLower(strings.TrimSpace(parsed.Suggestions[i].Action))
	}
	return &parsed, nil
}

type aiChatCompletionRequest struct {
	EndpointURL  string
	APIKey       string
	Model        string
	SystemPrompt string
	UserPrompt   string
	Logger       *slog.Logger
}

type aiChatCompletionResult struct {
	Model   string
	Content string
}

// aiChatCompletion is a package variable so tests can stub the network call.
var aiChatCompletion = requestAIChatCompletion

func requestAIChatCompletion(ctx context.Context, req aiChatCompletionRequest) (aiChatCompletionResult, error) {
	if isGeminiRequest(req.EndpointURL, req.Model) {
		return requestAIByGeminiNative(ctx, req)
	}
	return requestAIByChatCompletions(ctx, req)
}

func isGeminiRequest(endpointURL, model string) bool {
	modelLower := strings.ToLower(strings.TrimSpace(model))
	if strings.HasPrefix(modelLower, "gemini") {
		return true
	}

	endpointLower := strings.ToLower(strings.TrimSpace(endpointURL))
	if endpointLower == "" {
		return false
	}
	if strings.Contains(endpointLower, "generativelanguage.googleapis.com") {
		return true
	}
	return strings.Contains(endpointLower, "/gemini")
}

func buildAICompletionsEndpoint(baseURL string) (string, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = defaultAIBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	trimmed = strings.TrimRight(trimmed, "/")
	lower := strings.ToLower(trimmed)

	endpoint := ""
	switch {
	case strings.HasSuffix(lower, "/chat/completions"):
		endpoint = trimmed
	case strings.HasSuffix(lower, "/v1"):
		endpoint = trimmed + "/chat/completions"
	default:
		endpoint = trimmed + "/v1/chat/completions"
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("invalid base_url scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid base_url host")
	}
	return endpoint, nil
}

func requestAIByGeminiNative(ctx context.Context, req aiChatCompletionRequest) (aiChatCompletionResult, error) {
	logAIPromptDebug(req.Logger, req.EndpointURL, req.Model, req.UserPrompt)

	clientConfig, err := buildGeminiClientConfig(req.EndpointURL, req.APIKey)
	if err != nil {
		return aiChatCompletionResult{}, err
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return aiChatCompletionResult{}, fmt.Errorf("create gemini client failed: %w", err)
	}

	requestConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		Temperature:      genai.Ptr(float32(0.2)),
		MaxOutputTokens:  aiMaxOutputTokens,
		ResponseMIMEType: "application/json",
	}

	response, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserPrompt), requestConfig)
	if err != nil {
		return aiChatCompletionResult{}, fmt.Errorf("gemini generate content failed: %w", err)
	}
	content := strings.TrimSpace(response.Text())
	if content == "" {
		return aiChatCompletionResult{}, fmt.Errorf("ai response content is empty")
	}
	return aiChatCompletionResult{Model: req.Model, Content: content}, nil
}

func buildGeminiClientConfig(endpoint, apiKey string) (*genai.ClientConfig, error) {
	normalized := strings.TrimSpace(endpoint)
	if normalized == "" || isOpenAIDefaultHost(normalized) {
		normalized = defaultGeminiBaseURL
	}

	baseURL, apiVersion, err := parseGeminiBaseURLAndVersion(normalized)
	if err != nil {
		return nil, err
	}
	return &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL,
			APIVersion: apiVersion,
		},
	}, nil
}

func isOpenAIDefaultHost(endpoint string) bool {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), "api.openai.com")
}

func parseGeminiBaseURLAndVersion(endpoint string) (string, string, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = defaultGeminiBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("invalid gemini endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("invalid gemini endpoint scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("invalid gemini endpoint host")
	}

	path := strings.Trim(parsed.Path, "/")
	segments := []string{}
	if path != "" {
		segments = strings.Split(path, "/")
	}

	apiVersion := "v1beta"
	prefixSegments := []string{}
	foundVersion := false
	for idx, segment := range segments {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(segment)), "v1") {
			apiVersion = segment
			prefixSegments = segments[:idx]
			foundVersion = true
			break
		}
	}
	if !foundVersion {
		prefixSegments = segments
	}

	basePath := strings.Trim(strings.Join(prefixSegments, "/"), "/")
	baseURL := fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host)
	if basePath != "" {
		baseURL += basePath + "/"
	}
	return baseURL, apiVersion, nil
}

func requestAIByChatCompletions(ctx context.Context, req aiChatCompletionRequest) (aiChatCompletionResult, error) {
	logAIPromptDebug(req.Logger, req.EndpointURL, req.Model, req.UserPrompt)

	payload := map[string]any{
		"model": req.Model,
		"messages": []map[string]string{
			{"role": "system", "content": req.SystemPrompt},
			{"role": "user", "content": req.UserPrompt},
		},
		"temperature": 0.2,
		"stream":      false,
		"max_tokens":  aiMaxOutputTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return aiChatCompletionResult{}, fmt.Errorf("marshal ai request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, aiRequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, req.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return aiChatCompletionResult{}, fmt.Errorf("build ai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	respBody, err := executeAIRequest(httpReq, req.Logger)
	if err != nil {
		return aiChatCompletionResult{}, err
	}

	model, content, err := decodeAIModelAndContent(respBody)
	if err != nil {
		return aiChatCompletionResult{}, err
	}
	if model == "" {
		model = req.Model
	}
	return aiChatCompletionResult{Model: model, Content: content}, nil
}

func executeAIRequest(httpReq *http.Request, logger *slog.Logger) ([]byte, error) {
	client := &http.Client{Timeout: aiRequestTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAIResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read ai response: %w", err)
	}

	if logger != nil {
		logger.Debug("ai raw response",
			"endpoint", httpReq.URL.String(),
			"status_code", resp.StatusCode,
			"body_bytes", len(respBody),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(respBody))
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("ai upstream error: %s", message)
	}
	return respBody, nil
}

func decodeAIModelAndContent(body []byte) (string, string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", "", fmt.Errorf("decode ai response: %w", err)
	}

	model := asString(raw["model"])
	if text := extractChoicesContent(raw["choices"]); text != "" {
		return model, text, nil
	}
	if text := asString(raw["output_text"]); text != "" {
		return model, text, nil
	}
	return model, "", fmt.Errorf("ai response content is empty")
}

func extractChoicesContent(value any) string {
	choices, ok := value.([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}
	if message, ok := first["message"].(map[string]any); ok {
		if text := asString(message["content"]); text != "" {
			return text
		}
	}
	return asString(first["text"])
}

func asString(value any) string {
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

func cleanupModelJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			trimmed = strings.Join(lines, "\n")
		}
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		trimmed = trimmed[start : end+1]
	}
	return strings.TrimSpace(trimmed)
}

func logAIPromptDebug(logger *slog.Logger, endpoint, model, userPrompt string) {
	if logger == nil {
		return
	}
	logger.Debug("ai request prompt",
		"endpoint", strings.TrimSpace(endpoint),
		"model", strings.TrimSpace(model),
		"prompt_bytes", len(userPrompt),
	)
}
