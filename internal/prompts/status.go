package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the openspec-status MCP prompt.
// It instructs the AI to read and present where the project stands.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("openspec-status",
		mcp.WithPromptDescription(
			"Summarize the OpenSpec project: active changes with task progress, "+
				"validation problems, and what to do next.",
		),
	)
}

// Handle processes the openspec-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "OpenSpec Project Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `openspec_list` and `openspec_validate` to check my OpenSpec project.\n\n" +
						"Then:\n" +
						"1. Show each active change with its task progress\n" +
						"2. Highlight any change or spec that fails validation, with the issues\n" +
						"3. For the change closest to done, run `openspec_status` and tell me what to write next\n" +
						"4. If a change has every task complete, suggest archiving it",
				),
			},
		},
	}, nil
}
