package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// Generator adapts a Client to a prompt-in, text-out completion call.
type Generator struct {
	client    Client
	model     string
	maxTokens int64
}

// NewGenerator wires a Client into a single-model text generator.
func NewGenerator(client Client, model string, maxTokens int64) *Generator {
	return &Generator{client: client, model: model, maxTokens: maxTokens}
}

// Complete sends the prompt as a single user message and concatenates the
// text blocks of the response.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	zero := 0.0
	resp, err := g.client.CreateMessage(ctx, MessageRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: &zero,
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: complete")
	}

	resp.Usage.LogCost(g.model, "complete")

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
