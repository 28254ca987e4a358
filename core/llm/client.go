// Package llm wraps an OpenAI-compatible chat endpoint behind the small
// client surface the decision core consumes: Chat, Complete and ExtractJSON.
// The client is safe for concurrent calls.
package llm

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Message is a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message { return Message{Role: "system", Content: content} }

// UserMessage creates a user message.
func UserMessage(content string) Message { return Message{Role: "user", Content: content} }

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message { return Message{Role: "assistant", Content: content} }

// ChatOptions tune a single call. Zero values fall back to client defaults.
type ChatOptions struct {
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Client is the LLM surface consumed by the core. Implementations must be
// safe for concurrent use; every call applies its own deadline.
type Client interface {
	// Chat runs a multi-message exchange and returns the assistant text.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (string, error)

	// Complete runs a single-prompt completion.
	Complete(ctx context.Context, prompt string, opts *ChatOptions) (string, error)

	// ExtractJSON asks for a JSON object and parses it tolerantly.
	ExtractJSON(ctx context.Context, prompt, systemPrompt string) (map[string]any, error)

	// Warmup sends a lightweight ping to establish the connection.
	Warmup(ctx context.Context)
}

// Config holds client construction parameters.
type Config struct {
	Provider    string // openai, deepseek, ollama, or any OpenAI-compatible
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default 2048
	Temperature float32 // default 0.7
	Timeout     int     // per-call timeout in seconds, default 30
	RateLimit   float64 // calls per second, default 10
}

// maxLoggedResponse truncates response logging; full responses can be large.
const maxLoggedResponse = 50000

type client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
	calls       atomic.Int64
}

// New creates a Client from config.
func New(cfg *Config) (Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	switch cfg.Provider {
	case "deepseek":
		clientConfig.BaseURL = defaultStr(cfg.BaseURL, "https://api.deepseek.com")
	case "ollama":
		clientConfig.BaseURL = defaultStr(cfg.BaseURL, "http://localhost:11434/v1")
	default:
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	}
	clientConfig.HTTPClient = newHTTPClient()

	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 10
	}

	return &client{
		api:         openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   defaultInt(cfg.MaxTokens, 2048),
		temperature: defaultF32(cfg.Temperature, 0.7),
		timeout:     timeout,
		limiter:     rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}, nil
}

func (c *client) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "llm rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	callNo := c.calls.Add(1)
	start := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    convertMessages(messages),
	}
	if opts != nil {
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}
		if opts.Temperature > 0 {
			req.Temperature = opts.Temperature
		}
		if opts.JSONMode {
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}
	}

	slog.Debug("llm: chat request",
		"call", callNo,
		"model", c.model,
		"messages", len(messages),
		"max_tokens", req.MaxTokens,
		"json_mode", opts != nil && opts.JSONMode,
	)

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("llm: chat request failed",
			"call", callNo,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return "", errors.Wrap(err, "llm chat")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty response")
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("llm: chat response",
		"call", callNo,
		"duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens,
		"response", truncate(content, maxLoggedResponse),
	)
	return content, nil
}

func (c *client) Complete(ctx context.Context, prompt string, opts *ChatOptions) (string, error) {
	return c.Chat(ctx, []Message{UserMessage(prompt)}, opts)
}

func (c *client) ExtractJSON(ctx context.Context, prompt, systemPrompt string) (map[string]any, error) {
	messages := []Message{}
	if systemPrompt != "" {
		messages = append(messages, SystemPrompt(systemPrompt))
	}
	messages = append(messages, UserMessage(prompt))

	response, err := c.Chat(ctx, messages, &ChatOptions{JSONMode: true, Temperature: 0.1})
	if err != nil {
		return nil, err
	}
	parsed, err := ParseJSONObject(response)
	if err != nil {
		return nil, errors.Wrap(err, "llm extract json")
	}
	return parsed, nil
}

func (c *client) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := c.api.CreateChatCompletion(warmupCtx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   1,
		Temperature: 0,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "Hi"}},
	})
	if err != nil {
		slog.Warn("llm: warmup ping failed (first real request may be slower)",
			"model", c.model,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return
	}
	slog.Info("llm: connection warmed up",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds())
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

func defaultStr(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

func defaultInt(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

func defaultF32(v, d float32) float32 {
	if v <= 0 {
		return d
	}
	return v
}
