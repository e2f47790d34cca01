package tiebreak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// systemPrompt is the decision rubric handed to the tie-break model. Visual
// signals are ranked above brand text because fronts escalated here usually
// have weak or contradictory brand evidence.
const systemPrompt = `You pair product photos: given one FRONT image and several candidate BACK images of retail products, pick the back that shows the other side of the same physical product.

Rules:
- When the front's brand is empty or ambiguous, weigh packaging shape and dominant color above brand text. Two panels of one product always share packaging and color; brand text is often unreadable on back panels.
- A matching size or barcode is near-decisive.
- If no candidate plausibly belongs to the same product, answer no match. Do not guess.

Respond with only a JSON object: {"back_key": "<key of chosen candidate>"} or {"back_key": null}, plus an optional "rationale" string.`

// LLMResolver resolves tie-breaks through an OpenAI-compatible chat
// completions endpoint
type LLMResolver struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// LLMResolverConfig configures the tie-break model client
type LLMResolverConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type chatRequestBody struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewLLMResolver creates a resolver backed by an OpenAI-compatible endpoint
func NewLLMResolver(config LLMResolverConfig) (*LLMResolver, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("tie-break API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := config.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &LLMResolver{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  config.APIKey,
		model:   model,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Resolve sends one tie-break request and parses the model's verdict. Errors
// are returned to the caller, which demotes the front to a singleton; there
// is no retry here.
func (r *LLMResolver) Resolve(ctx context.Context, request Request) (*Verdict, error) {
	reqBody := chatRequestBody{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(request)},
		},
		Temperature: 0,
		MaxTokens:   300,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tie-break API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp chatResponseBody
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return ParseVerdict(apiResp.Choices[0].Message.Content)
}

// BuildPrompt renders the front's context and each candidate's scoring
// breakdown into the user message
func BuildPrompt(request Request) string {
	var builder strings.Builder

	builder.WriteString("FRONT image:\n")
	fmt.Fprintf(&builder, "  key: %s\n", request.Front.ImageKey)
	fmt.Fprintf(&builder, "  brand: %q\n", request.Front.Brand)
	fmt.Fprintf(&builder, "  product: %q\n", request.Front.ProductName)
	fmt.Fprintf(&builder, "  variant: %q\n", request.Front.Variant)
	fmt.Fprintf(&builder, "  size: %q\n", request.Front.Size)
	fmt.Fprintf(&builder, "  packaging: %s\n", request.Front.PackagingType)
	fmt.Fprintf(&builder, "  colors: %s\n", strings.Join(request.Front.ColorSignature, ", "))
	if request.Front.VisualDescription != "" {
		fmt.Fprintf(&builder, "  description: %s\n", request.Front.VisualDescription)
	}
	if len(request.Front.EvidenceTriggers) > 0 {
		fmt.Fprintf(&builder, "  evidence: %s\n", strings.Join(request.Front.EvidenceTriggers, ", "))
	}

	builder.WriteString("\nCandidate BACK images, highest scored first:\n")
	for i, candidate := range request.Candidates {
		breakdown := candidate.Breakdown
		fmt.Fprintf(&builder, "%d. key: %s (pre-score %.2f)\n", i+1, candidate.BackKey, candidate.PreScore)
		fmt.Fprintf(&builder, "   brand=%s product_sim=%.2f variant_sim=%.2f size_equal=%t packaging_match=%t color=%s category=%.2f proximity=%.2f barcode=%.2f\n",
			breakdown.BrandFlag, breakdown.ProductJaccard, breakdown.VariantJaccard,
			breakdown.SizeEqual, breakdown.PackagingMatch, breakdown.ColorTier,
			breakdown.CategoryScore, breakdown.ProximityBoost, breakdown.BarcodeBoost)
	}

	builder.WriteString("\nWhich candidate back belongs to this front?")
	return builder.String()
}

// ParseVerdict extracts the JSON verdict from the model output, tolerating
// surrounding prose and markdown code fences
func ParseVerdict(content string) (*Verdict, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in verdict: %q", content)
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse verdict: %w", err)
	}

	if verdict.BackKey != nil && *verdict.BackKey == "" {
		verdict.BackKey = nil
	}

	return &verdict, nil
}
