// Package tools implements MCP tool handlers for OpenSpec.
//
// Each tool is a struct that receives its dependencies through its
// constructor and exposes Definition and Handle for mcp-go registration.
//
// Design principles:
// - SRP: each file = one tool
// - DIP: tools depend on interfaces (changes.Store, HistoryReader), not concretions
// - OCP: new tools are added without modifying existing ones
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/mark3labs/mcp-go/mcp"
)

// findProjectRoot walks up from the current working directory looking
// for an openspec/ (or .openspec/) directory. If none is found, returns cwd.
// This allows tools to work from any subdirectory of the project.
func findProjectRoot() (string, error) {
	root, err := changes.FindProjectRootFromWD()
	if err != nil {
		return "", fmt.Errorf("finding project root: %w", err)
	}
	return root, nil
}

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult maps a lifecycle error to a tool error the agent can act on.
// Only the message is exposed; the kind prefixes it so agents can branch.
func errorResult(err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("%s: %v", changes.KindOf(err), err)
	var ce *changes.Error
	if errors.As(err, &ce) && len(ce.Issues) > 0 {
		msg += "\n- " + strings.Join(ce.Issues, "\n- ")
	}
	return mcp.NewToolResultError(msg)
}

// validSegment rejects path traversal in a single path segment argument.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

var capabilitySegment = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// validCapability accepts capability names made of lowercase segments
// separated by "/".
func validCapability(s string) bool {
	for _, seg := range strings.Split(s, "/") {
		if !capabilitySegment.MatchString(seg) {
			return false
		}
	}
	return true
}
