// Package prompts implements MCP prompt handlers for OpenSpec.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. The proposal, apply and
// archive prompts carry the same bodies written into tool command files.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/openspec/internal/agents"
	"github.com/mark3labs/mcp-go/mcp"
)

// CommandPrompt serves one OpenSpec slash-command workflow as a prompt.
type CommandPrompt struct {
	cmd agents.CommandID
}

// NewCommandPrompt creates the prompt for cmd.
func NewCommandPrompt(cmd agents.CommandID) *CommandPrompt {
	return &CommandPrompt{cmd: cmd}
}

// All returns a prompt for every OpenSpec command.
func All() []*CommandPrompt {
	cmds := agents.Commands()
	out := make([]*CommandPrompt, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, NewCommandPrompt(c))
	}
	return out
}

// Name is the registered prompt name, e.g. openspec-proposal.
func (p *CommandPrompt) Name() string {
	return "openspec-" + string(p.cmd)
}

// Definition returns the MCP prompt definition for registration.
func (p *CommandPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt(p.Name(),
		mcp.WithPromptDescription(agents.Description(p.cmd)),
		mcp.WithArgument(p.argument(),
			mcp.ArgumentDescription(p.argumentDescription()),
		),
	)
}

func (p *CommandPrompt) argument() string {
	if p.cmd == agents.CommandProposal {
		return "request"
	}
	return "change_id"
}

func (p *CommandPrompt) argumentDescription() string {
	if p.cmd == agents.CommandProposal {
		return "What the change should accomplish"
	}
	return "Id of the change under openspec/changes/"
}

// Handle processes the prompt request.
func (p *CommandPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	value := ""
	if args := req.Params.Arguments; args != nil {
		value = strings.TrimSpace(args[p.argument()])
	}

	text := agents.Body(p.cmd)
	description := agents.Description(p.cmd)
	if value != "" {
		switch p.cmd {
		case agents.CommandProposal:
			text = fmt.Sprintf("%s\n\n**Request**\n%s\n", text, value)
		default:
			text = fmt.Sprintf("%s\n\n**Change**\n`%s`\n", text, value)
			description = fmt.Sprintf("%s (%s)", description, value)
		}
	}

	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
