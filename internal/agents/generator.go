package agents

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/openspec/internal/fsutil"
)

// Managed block markers. Content between them is owned by openspec and is
// replaced on every update; everything outside is left alone.
const (
	MarkerStart = "<!-- OPENSPEC:START -->"
	MarkerEnd   = "<!-- OPENSPEC:END -->"
)

// ErrMissingMarkers is returned when a command file lost its managed block.
var ErrMissingMarkers = errors.New("missing OpenSpec markers")

//go:embed templates/*.md
var templateFS embed.FS

var descriptions = map[CommandID]string{
	CommandProposal: "Scaffold a new OpenSpec change and validate strictly.",
	CommandApply:    "Implement an approved OpenSpec change and keep tasks in sync.",
	CommandArchive:  "Archive a deployed OpenSpec change and update specs.",
}

var titles = map[CommandID]string{
	CommandProposal: "Proposal",
	CommandApply:    "Apply",
	CommandArchive:  "Archive",
}

// Description returns the one-line description of a command.
func Description(cmd CommandID) string { return descriptions[cmd] }

// Body returns the instruction body of a command.
func Body(cmd CommandID) string {
	return mustTemplate(string(cmd) + ".md")
}

// RootStub returns the body of the managed block written to AGENTS.md and
// tool config files at the project root.
func RootStub() string {
	return mustTemplate("root-stub.md")
}

func mustTemplate(name string) string {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic(fmt.Sprintf("agents: missing embedded template %s", name))
	}
	return strings.TrimSpace(string(data))
}

// MarkedBlock wraps body in the managed markers.
func MarkedBlock(body string) string {
	return MarkerStart + "\n" + strings.TrimSpace(body) + "\n" + MarkerEnd
}

// ReplaceMarkedBlock swaps the content between the markers for body.
func ReplaceMarkedBlock(content, body string) (string, error) {
	start := strings.Index(content, MarkerStart)
	end := strings.Index(content, MarkerEnd)
	if start < 0 || end < 0 || end <= start {
		return "", ErrMissingMarkers
	}
	before := content[:start]
	after := content[end+len(MarkerEnd):]
	return before + MarkedBlock(body) + after, nil
}

// UpsertMarkedBlock replaces the managed block, or prepends one when the
// content has none.
func UpsertMarkedBlock(content, body string) string {
	if updated, err := ReplaceMarkedBlock(content, body); err == nil {
		return updated
	}
	if strings.TrimSpace(content) == "" {
		return MarkedBlock(body) + "\n"
	}
	return MarkedBlock(body) + "\n\n" + content
}

// Render returns the full content of a new command file.
func Render(d Descriptor, cmd CommandID) string {
	block := MarkedBlock(Body(cmd))
	desc := Description(cmd)
	title := titles[cmd]

	switch d.Frontmatter {
	case StyleClaude:
		return fmt.Sprintf("---\nname: OpenSpec: %s\ndescription: %s\ncategory: OpenSpec\ntags: [openspec, %s]\n---\n\n%s\n",
			title, desc, cmd, block)
	case StyleCursor:
		return fmt.Sprintf("---\nname: /openspec-%s\nid: openspec-%s\ncategory: OpenSpec\ndescription: %s\n---\n\n%s\n",
			cmd, cmd, desc, block)
	case StyleTOML:
		return fmt.Sprintf("description = %q\n\nprompt = \"\"\"\n%s\n\"\"\"\n", desc, block)
	default:
		return fmt.Sprintf("---\ndescription: %s\n---\n\n$ARGUMENTS\n\n%s\n", desc, block)
	}
}

// Generator writes command files for tool descriptors.
type Generator struct {
	logger *slog.Logger
}

// NewGenerator creates a generator. A nil logger uses slog.Default().
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{logger: logger}
}

// Generate creates or refreshes every command file and the config file of
// d under root. It returns the project-relative paths it wrote.
func (g *Generator) Generate(root string, d Descriptor) ([]string, error) {
	var written []string
	for _, cmd := range Commands() {
		rel := d.Path(cmd)
		abs := filepath.Join(root, filepath.FromSlash(rel))
		exists, err := fsutil.Exists(abs)
		if err != nil {
			return written, err
		}
		if exists {
			if err := g.refresh(abs, cmd); err != nil {
				return written, err
			}
		} else if err := fsutil.WriteFileAtomic(abs, []byte(Render(d, cmd)), 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", rel, err)
		}
		written = append(written, rel)
	}

	if d.ConfigFile != "" {
		if err := g.upsertConfig(root, d.ConfigFile); err != nil {
			return written, err
		}
		written = append(written, d.ConfigFile)
	}
	g.logger.Debug("tool configured", "tool", d.ID, "files", len(written))
	return written, nil
}

// Refresh rewrites the managed blocks of files that already exist and
// never creates new ones.
func (g *Generator) Refresh(root string, d Descriptor) ([]string, error) {
	var updated []string
	for _, cmd := range Commands() {
		rel := d.Path(cmd)
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if ok, err := fsutil.Exists(abs); err != nil {
			return updated, err
		} else if !ok {
			continue
		}
		if err := g.refresh(abs, cmd); err != nil {
			return updated, err
		}
		updated = append(updated, rel)
	}

	if d.ConfigFile != "" {
		abs := filepath.Join(root, d.ConfigFile)
		if ok, _ := fsutil.Exists(abs); ok {
			if err := g.upsertConfig(root, d.ConfigFile); err != nil {
				return updated, err
			}
			updated = append(updated, d.ConfigFile)
		}
	}
	return updated, nil
}

// Configured reports whether any command file of d exists under root.
func (g *Generator) Configured(root string, d Descriptor) bool {
	for _, cmd := range Commands() {
		if ok, _ := fsutil.Exists(filepath.Join(root, filepath.FromSlash(d.Path(cmd)))); ok {
			return true
		}
	}
	return false
}

func (g *Generator) refresh(abs string, cmd CommandID) error {
	data, err := os.ReadFile(abs)
	if err != nil {
		return err
	}
	updated, err := ReplaceMarkedBlock(string(data), Body(cmd))
	if err != nil {
		return fmt.Errorf("%s: %w", abs, err)
	}
	return fsutil.WriteFileAtomic(abs, []byte(updated), 0o644)
}

func (g *Generator) upsertConfig(root, name string) error {
	abs := filepath.Join(root, name)
	existing, err := fsutil.ReadOptional(abs)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(abs, []byte(UpsertMarkedBlock(existing, RootStub())), 0o644)
}
