package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"

	systemInstruction = "Act as a professional crypto and forex trader. Your job is to analyze real-time market data and news to make trading decisions."
)

// GeminiClient talks to a Gemini-style generateContent endpoint with the
// web-search tool enabled. Responses arrive as free text that should
// contain a JSON object; anything that cannot be coerced into a valid
// analysis is reported as ErrUnavailable.
type GeminiClient struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

func NewGeminiClient(baseURL, apiKey, model string) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &GeminiClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		HTTP:    &http.Client{Timeout: 45 * time.Second},
		Limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

type generateRequest struct {
	SystemInstruction *content  `json:"system_instruction,omitempty"`
	Contents          []content `json:"contents"`
	Tools             []tool    `json:"tools,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type tool struct {
	GoogleSearch struct{} `json:"google_search"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		GroundingMetadata struct {
			GroundingChunks []struct {
				Web struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

// analysisPayload is the JSON object the prompt asks the model to emit.
type analysisPayload struct {
	Decision          string  `json:"decision"`
	SentimentScore    float64 `json:"sentimentScore"`
	SentimentCategory string  `json:"sentimentCategory"`
	Reasoning         string  `json:"reasoning"`
}

func (c *GeminiClient) Analyze(ctx context.Context, symbol string) (MarketAnalysis, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return MarketAnalysis{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	reqBody := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		Contents:          []content{{Parts: []part{{Text: analysisPrompt(symbol)}}}},
		Tools:             []tool{{}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return MarketAnalysis{}, fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return MarketAnalysis{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return MarketAnalysis{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return MarketAnalysis{}, fmt.Errorf("%w: http %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return MarketAnalysis{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(gr.Candidates) == 0 {
		return MarketAnalysis{}, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	var data analysisPayload
	if err := json.Unmarshal([]byte(extractJSON(text.String())), &data); err != nil {
		return MarketAnalysis{}, fmt.Errorf("%w: parse analysis: %v", ErrUnavailable, err)
	}

	sources := make([]NewsSource, 0)
	seen := map[string]bool{}
	for _, chunk := range gr.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web.URI == "" || chunk.Web.Title == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		sources = append(sources, NewsSource{Title: chunk.Web.Title, URL: chunk.Web.URI})
	}

	return MarketAnalysis{
		Symbol:            symbol,
		Timestamp:         time.Now(),
		Decision:          normalizeDecision(data.Decision),
		SentimentScore:    clampScore(data.SentimentScore),
		SentimentCategory: normalizeCategory(data.SentimentCategory),
		Reasoning:         data.Reasoning,
		Sources:           sources,
	}, nil
}

func analysisPrompt(symbol string) string {
	return fmt.Sprintf(`Analyze the current market for %[1]s.

1. Search for the very latest news, economic indicators, and price action specifically for %[1]s.
2. Analyze the sentiment of these findings.
3. Decide on a trading action: BUY, SELL, or HOLD.
4. Provide a sentiment score (-1 to 1).

Return ONLY a JSON object in this format:
{
  "decision": "BUY" | "SELL" | "HOLD",
  "sentimentScore": number,
  "sentimentCategory": "POSITIVE" | "NEGATIVE" | "NEUTRAL",
  "reasoning": "Brief summary of the analysis"
}`, symbol)
}

var fenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// extractJSON pulls the JSON object out of model output that may wrap it
// in markdown fences or surrounding prose.
func extractJSON(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first != -1 && last > first {
		return text[first : last+1]
	}
	return strings.TrimSpace(text)
}

func normalizeDecision(s string) Decision {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy
	case "SELL":
		return Sell
	default:
		return Hold
	}
}

func normalizeCategory(s string) SentimentCategory {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "POSITIVE":
		return Positive
	case "NEGATIVE":
		return Negative
	default:
		return Neutral
	}
}

func clampScore(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
