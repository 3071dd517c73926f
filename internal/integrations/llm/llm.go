// Package llm writes a short narrative for a performance report using
// Anthropic or OpenAI.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"agentwatch/internal/config"
	"agentwatch/internal/domain"
	"agentwatch/internal/httpx"
	"agentwatch/internal/performance"
	"agentwatch/internal/report"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

// maxListedAgents caps how many inactive agents go into the prompt.
const maxListedAgents = 40

var openAIEndpoint = "https://api.openai.com/v1/chat/completions"

type LLMUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

type Client struct {
	provider     string
	model        string
	anthropicKey string
	openAIKey    string
}

func NewClient(cfg config.Config) *Client {
	c := &Client{
		provider:     strings.ToLower(strings.TrimSpace(cfg.LLMProvider)),
		model:        strings.TrimSpace(cfg.LLMModel),
		anthropicKey: cfg.AnthropicAPIKey,
		openAIKey:    cfg.OpenAIAPIKey,
	}
	if c.model == "" {
		c.model = defaultAnthropicModel
		if c.provider == "openai" {
			c.model = defaultOpenAIModel
		}
	}
	return c
}

// Summarize returns a few sentences describing the report for a manager.
func (c *Client) Summarize(ctx context.Context, p domain.Panchayath, r performance.Report) (string, error) {
	systemPrompt, userPrompt := buildSummaryPrompts(p, r)

	var (
		text  string
		usage LLMUsage
		err   error
	)
	switch c.provider {
	case "openai":
		text, usage, err = callOpenAI(ctx, c.openAIKey, c.model, systemPrompt, userPrompt)
	default:
		text, usage, err = callAnthropic(ctx, c.anthropicKey, c.model, systemPrompt, userPrompt)
	}
	if err != nil {
		return "", err
	}
	log.Printf("llm summary panchayath=%s month=%s provider=%s tokens=%d", r.PanchayathID, r.Month, c.provider, usage.TotalTokens())
	return strings.TrimSpace(text), nil
}

func buildSummaryPrompts(p domain.Panchayath, r performance.Report) (string, string) {
	systemPrompt := fmt.Sprintf(`You summarize field agent activity for a panchayath manager.
An agent is inactive after %d or more consecutive days without a worked note.
Write at most five plain sentences. Name the inactive agents that need a follow-up first.
Do not invent numbers; use only the data given. Do not use Markdown headings.`, performance.InactiveThreshold)

	name := p.Name
	if name == "" {
		name = r.PanchayathID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Panchayath: %s\n", name)
	fmt.Fprintf(&b, "Month: %s\n", r.Month.Label())
	if !r.WindowStart.IsZero() {
		fmt.Fprintf(&b, "Days considered: %s to %s\n", r.WindowStart, r.WindowEnd)
	}
	fmt.Fprintf(&b, "Agents: %d, inactive: %d (%s%%)\n", r.Stats.TotalAgents, r.Stats.InactiveAgents, report.FormatPercent(r.Stats.InactivePercentage))

	for _, g := range r.Groups {
		fmt.Fprintf(&b, "%s: %d of %d inactive\n", g.DisplayName, g.InactiveCount, len(g.Agents))
	}

	listed := 0
	b.WriteString("\nInactive agents:\n")
	for _, res := range r.Results {
		if !res.IsInactive {
			continue
		}
		if listed == maxListedAgents {
			fmt.Fprintf(&b, "- and %d more\n", r.Stats.InactiveAgents-listed)
			break
		}
		last := "no activity this month"
		if res.LastActivityDate != nil {
			last = "last active " + res.LastActivityDate.String()
		}
		fmt.Fprintf(&b, "- %s (%s): %d days, %s\n", res.AgentName, res.AgentType.DisplayName(), res.ConsecutiveLeaveDays, last)
		listed++
	}
	if listed == 0 {
		b.WriteString("- none\n")
	}

	if warnings := report.Warnings(r); len(warnings) > 0 {
		b.WriteString("\nData gaps:\n")
		for _, w := range warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return systemPrompt, b.String()
}

// --- Anthropic ---

func callAnthropic(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpx.ExternalHTTPClient()),
	)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d cache_create=%d cache_read=%d", len(block.Text), usage.InputTokens, usage.OutputTokens, usage.CacheCreationInputTokens, usage.CacheReadInputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}

// --- OpenAI ---

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func callOpenAI(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	reqBody := openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEndpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpx.ExternalHTTPClient().Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", LLMUsage{}, fmt.Errorf("parsing OpenAI response (status %d): %w", resp.StatusCode, err)
	}

	if openAIResp.Error != nil {
		log.Printf("llm openai api error: %s", openAIResp.Error.Message)
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}

	if len(openAIResp.Choices) == 0 {
		return "", LLMUsage{}, fmt.Errorf("no choices in OpenAI response")
	}
	usage := LLMUsage{}
	if openAIResp.Usage != nil {
		usage.InputTokens = openAIResp.Usage.PromptTokens
		usage.OutputTokens = openAIResp.Usage.CompletionTokens
	}

	log.Printf("llm openai response size=%d tokens_in=%d tokens_out=%d", len(openAIResp.Choices[0].Message.Content), usage.InputTokens, usage.OutputTokens)
	return openAIResp.Choices[0].Message.Content, usage, nil
}
