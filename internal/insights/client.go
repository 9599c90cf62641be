// ABOUTME: OpenAI-compatible chat completions client producing insights and guiding questions.
// ABOUTME: Requests are rate limited and retried on 429/5xx with exponential backoff.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/2389-research/freewrite/internal/logging"
	"github.com/2389-research/freewrite/internal/models"
)

// Generator produces insight sections for an entry body. prior and followUp
// are empty for a first analysis.
type Generator interface {
	GenerateInsights(ctx context.Context, body string, prior []models.InsightSection, followUp string) ([]models.InsightSection, error)
}

// Questioner produces a single reflective question about recent text.
type Questioner interface {
	GuidingQuestion(ctx context.Context, text string, category models.Category) (string, error)
}

// ErrEmptyResponse is returned when the API answers without any choices.
var ErrEmptyResponse = errors.New("no response choices received")

const insightPrompt = `Okay, friend, thanks for dumping this here. Let's sort through it.

Treat the entry below like a pile of thoughts someone just brain-dumped. Your job isn't to be a therapist, but more like that one insightful friend who listens, connects dots the person might miss, and maybe offers a gentle nudge or a different perspective.

- **Tone:** Casual, warm, empathetic, maybe a tiny bit playful. Avoid clinical language, overly formal structures, or sounding like a generic chatbot.
- **Goal:** Help the user feel seen, understood, and maybe a little lighter or clearer. Make connections *between* different points they raised if possible.
- **What NOT to do:** Don't just summarize point-by-point. Don't give generic advice. Don't use overly therapeutic jargon.
- **Format:** Use simple paragraphs. Use markdown bolding **only** for truly key takeaways (use sparingly). Start a new section with a markdown heading when you change topic.

Here's the entry:`

const questionPrompt = `You are an assistant integrated into a writing app. The user has written the text below and asked for a prompt to help them dive deeper or keep writing.
Provide ONE SINGLE concise, open-ended question that gently encourages further reflection based on what they've written, tailored to their mood.
Keep it short (ideally under 15 words).
Do NOT offer summaries, analysis, or multiple questions.
Do NOT use markdown.
Focus on "what", "how", "why", or "tell me more" style questions related to the content of their writing.

User's Mood: [MOOD]
User's Recent Text:`

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	apiURL  string
	apiKey  string
	model   string
	client  *http.Client
	limiter *rate.Limiter
	backoff []time.Duration
	logger  *log.Logger
}

// NewClient creates a client for apiURL (e.g. https://api.openai.com/v1).
func NewClient(apiURL, apiKey, model string, logger *log.Logger) *Client {
	return &Client{
		apiURL:  strings.TrimRight(apiURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		backoff: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		logger:  logging.OrDiscard(logger),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateInsights asks for reflections on body. With prior sections and a
// followUp question, the earlier answer is replayed as conversation context.
func (c *Client) GenerateInsights(ctx context.Context, body string, prior []models.InsightSection, followUp string) ([]models.InsightSection, error) {
	messages := []chatMessage{
		{Role: "system", Content: insightPrompt},
		{Role: "user", Content: strings.TrimSpace(body)},
	}
	if followUp != "" {
		if len(prior) > 0 {
			messages = append(messages, chatMessage{Role: "assistant", Content: Render(prior)})
		}
		messages = append(messages, chatMessage{Role: "user", Content: followUp})
	}

	text, err := c.complete(ctx, chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return nil, err
	}
	return StripGreeting(ParseSections(text)), nil
}

// GuidingQuestion asks for one short question about text.
func (c *Client) GuidingQuestion(ctx context.Context, text string, category models.Category) (string, error) {
	system := strings.ReplaceAll(questionPrompt, "[MOOD]", category.Description())
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: text},
		},
		MaxTokens: 50,
	}
	answer, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (c *Client) complete(ctx context.Context, chat chatRequest) (string, error) {
	payload, err := json.Marshal(chat)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, payload)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) doWithRetry(ctx context.Context, payload []byte) (*chatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= len(c.backoff); attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			return nil, fmt.Errorf("completion request failed: %w", err)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			var out chatResponse
			if err := json.Unmarshal(body, &out); err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
			return &out, nil
		}

		lastErr = fmt.Errorf("completion API returned %d: %s", resp.StatusCode, apiMessage(body))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempt == len(c.backoff) {
			break
		}

		delay := c.backoff[attempt]
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
				delay = min(time.Duration(secs)*time.Second, 30*time.Second)
			}
		}
		c.logger.Warn("retrying completion", "status", resp.StatusCode, "attempt", attempt+1, "delay", delay)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("request cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// apiMessage extracts the error message from an error body, falling back to the raw text.
func apiMessage(body []byte) string {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != nil {
		return resp.Error.Message
	}
	return strings.TrimSpace(string(body))
}
