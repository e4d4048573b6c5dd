// Package agents describes the AI coding assistants OpenSpec can configure
// and generates their slash-command files.
//
// Every tool is a Descriptor in an explicit Registry. A single Generator
// renders all of them; the only per-tool variation is data: where the
// command files live and which frontmatter style they use.
package agents

import (
	"fmt"
	"sort"
	"strings"
)

// Style selects the frontmatter flavor of a command file.
type Style string

const (
	// StyleClaude writes name/description/category/tags frontmatter.
	StyleClaude Style = "claude"
	// StyleCursor writes a /openspec-<cmd> name plus an id.
	StyleCursor Style = "cursor"
	// StylePlain writes a description-only frontmatter.
	StylePlain Style = "plain"
	// StyleTOML writes a TOML prompt file with description and prompt keys.
	StyleTOML Style = "toml"
)

// CommandID names one generated slash command.
type CommandID string

const (
	CommandProposal CommandID = "proposal"
	CommandApply    CommandID = "apply"
	CommandArchive  CommandID = "archive"
)

// Commands returns the commands generated for every tool, in order.
func Commands() []CommandID {
	return []CommandID{CommandProposal, CommandApply, CommandArchive}
}

// commandPlaceholder is replaced by the command id in Descriptor.CommandPath.
const commandPlaceholder = "{cmd}"

// Descriptor is everything the generator needs to know about one tool.
type Descriptor struct {
	ID   string
	Name string
	// ConfigFile is an optional root instruction file (e.g. CLAUDE.md) that
	// receives the managed stub block.
	ConfigFile string
	// CommandPath is relative to the project root and contains {cmd}.
	CommandPath string
	Frontmatter Style
}

// Path returns the project-relative path of one command file.
func (d Descriptor) Path(cmd CommandID) string {
	return strings.ReplaceAll(d.CommandPath, commandPlaceholder, string(cmd))
}

// Registry holds the known tool descriptors.
type Registry struct {
	byID map[string]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Descriptor)}
}

// Register adds a descriptor. Ids must be unique and paths must contain
// the {cmd} placeholder.
func (r *Registry) Register(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("agents: descriptor id is required")
	}
	if _, ok := r.byID[d.ID]; ok {
		return fmt.Errorf("agents: tool %q already registered", d.ID)
	}
	if !strings.Contains(d.CommandPath, commandPlaceholder) {
		return fmt.Errorf("agents: tool %q: command path %q has no %s placeholder", d.ID, d.CommandPath, commandPlaceholder)
	}
	switch d.Frontmatter {
	case StyleClaude, StyleCursor, StylePlain, StyleTOML:
	default:
		return fmt.Errorf("agents: tool %q: unknown frontmatter style %q", d.ID, d.Frontmatter)
	}
	r.byID[d.ID] = d
	return nil
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// IDs returns all registered ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns all descriptors sorted by id.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.byID))
	for _, id := range r.IDs() {
		out = append(out, r.byID[id])
	}
	return out
}

// Resolve maps tool ids to descriptors. Unknown ids fail with the list of
// supported ones. Duplicates are dropped.
func (r *Registry) Resolve(ids []string) ([]Descriptor, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]Descriptor, 0, len(ids))
	var unknown []string
	for _, raw := range ids {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		d, ok := r.byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		out = append(out, d)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown tool(s): %s (supported: %s)",
			strings.Join(unknown, ", "), strings.Join(r.IDs(), ", "))
	}
	return out, nil
}

// Builtin returns a registry with every supported tool registered.
func Builtin() *Registry {
	r := NewRegistry()
	for _, d := range builtinDescriptors() {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

func builtinDescriptors() []Descriptor {
	return []Descriptor{
		{ID: "claude", Name: "Claude Code", ConfigFile: "CLAUDE.md", CommandPath: ".claude/commands/openspec/{cmd}.md", Frontmatter: StyleClaude},
		{ID: "cursor", Name: "Cursor", CommandPath: ".cursor/commands/openspec-{cmd}.md", Frontmatter: StyleCursor},
		{ID: "windsurf", Name: "Windsurf", CommandPath: ".windsurf/workflows/openspec-{cmd}.md", Frontmatter: StylePlain},
		{ID: "qoder", Name: "Qoder", ConfigFile: "QODER.md", CommandPath: ".qoder/commands/openspec/{cmd}.md", Frontmatter: StyleClaude},
		{ID: "qwen", Name: "Qwen Code", CommandPath: ".qwen/commands/openspec-{cmd}.toml", Frontmatter: StyleTOML},
		{ID: "codex", Name: "Codex", CommandPath: ".codex/prompts/openspec-{cmd}.md", Frontmatter: StylePlain},
		{ID: "cline", Name: "Cline", ConfigFile: "CLINE.md", CommandPath: ".clinerules/workflows/openspec-{cmd}.md", Frontmatter: StylePlain},
		{ID: "kilocode", Name: "Kilo Code", CommandPath: ".kilocode/workflows/openspec-{cmd}.md", Frontmatter: StylePlain},
		{ID: "opencode", Name: "OpenCode", CommandPath: ".opencode/command/openspec-{cmd}.md", Frontmatter: StylePlain},
		{ID: "github-copilot", Name: "GitHub Copilot", CommandPath: ".github/prompts/openspec-{cmd}.prompt.md", Frontmatter: StylePlain},
	}
}
