// Package llm rewrites template answers with an OpenAI-compatible chat
// model.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"codeqa/internal/config"
	"codeqa/internal/envelope"
)

// maxContextBytes caps the serialized payloads sent to the model.
const maxContextBytes = 24 << 10

const systemPrompt = "You are an expert code analyst who provides clear, helpful answers about codebases. " +
	"Answer only from the analysis data provided. If the data does not answer the question, say so."

// Enhancer implements dispatch.Enhancer.
type Enhancer struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// New builds an Enhancer from cfg. It returns nil when the enhancer is
// disabled or no API key is configured.
func New(cfg config.LLMConfig) *Enhancer {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Enhancer{
		client:    openai.NewClientWithConfig(oc),
		model:     model,
		maxTokens: cfg.MaxTokens,
		timeout:   time.Duration(cfg.TimeoutMs) * time.Millisecond,
	}
}

// Enhance asks the model to answer question from the successful payloads,
// with the template answer as a draft.
func (e *Enhancer) Enhance(ctx context.Context, question, draft string, results map[string]*envelope.AnalysisResult) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	data, err := buildContext(results)
	if err != nil {
		return "", err
	}
	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(question, draft, data)},
		},
	}
	if isReasoningModel(e.model) {
		req.MaxCompletionTokens = e.maxTokens
	} else {
		req.MaxTokens = e.maxTokens
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func userPrompt(question, draft, data string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A user asked: %q\n\n", question)
	b.WriteString("Analysis data from the codebase (JSON, keyed by tool id):\n\n")
	b.WriteString(data)
	b.WriteString("\n\nA draft answer generated from templates:\n\n")
	b.WriteString(draft)
	b.WriteString("\n\nWrite a concise, specific answer in plain text.")
	return b.String()
}

// buildContext serializes the successful payloads in tool id order,
// truncated to maxContextBytes.
func buildContext(results map[string]*envelope.AnalysisResult) (string, error) {
	ids := make([]string, 0, len(results))
	for id, r := range results {
		if r.OK() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	payloads := make(map[string]any, len(ids))
	for _, id := range ids {
		payloads[id] = results[id].Payload
	}
	raw, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding analysis data: %w", err)
	}
	if len(raw) > maxContextBytes {
		return string(raw[:maxContextBytes]) + "\n... (truncated)", nil
	}
	return string(raw), nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
