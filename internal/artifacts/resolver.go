package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrSchemaNotFound matches any NotFoundError via errors.Is.
var ErrSchemaNotFound = errors.New("schema not found")

// NotFoundError is returned when neither an override nor a built-in schema
// matches the requested name.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Schema '%s' not found. Available schemas: %s", e.Name, strings.Join(e.Available, ", "))
}

// Is reports whether target is ErrSchemaNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrSchemaNotFound
}

// Source says where a resolved schema came from.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceUser    Source = "user"
)

// Info summarizes a resolvable schema.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Artifacts   []string `json:"artifacts"`
	Source      Source   `json:"source"`
}

// Resolver looks up schemas, user overrides first.
type Resolver struct {
	// dataDir is the global data directory; overrides live in
	// <dataDir>/openspec/schemas.
	dataDir string
}

// NewResolver creates a resolver rooted at the global data directory.
// An empty dataDir disables overrides.
func NewResolver(dataDir string) *Resolver {
	return &Resolver{dataDir: dataDir}
}

// SchemasDir returns the user override directory.
func (r *Resolver) SchemasDir() string {
	if r.dataDir == "" {
		return ""
	}
	return filepath.Join(r.dataDir, "openspec", "schemas")
}

// Resolve returns the named schema. Override files are parsed as-is and not
// checked for shape; built-ins are known good.
func (r *Resolver) Resolve(name string) (*Schema, error) {
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")

	if dir := r.SchemasDir(); dir != "" {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("reading schema override %s: %w", path, err)
			}
			var s Schema
			if err := yaml.Unmarshal(data, &s); err != nil {
				return nil, fmt.Errorf("parsing schema override %s: %w", path, err)
			}
			return &s, nil
		}
	}

	if s, ok := builtins()[name]; ok {
		return s, nil
	}
	return nil, &NotFoundError{Name: name, Available: r.Names()}
}

// Names lists every resolvable schema name, sorted and deduplicated.
func (r *Resolver) Names() []string {
	seen := map[string]bool{}
	for _, n := range BuiltinNames() {
		seen[n] = true
	}
	for _, n := range r.overrideNames() {
		seen[n] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// List describes every resolvable schema. Overrides that cannot be parsed
// are skipped.
func (r *Resolver) List() []Info {
	overrides := map[string]bool{}
	for _, n := range r.overrideNames() {
		overrides[n] = true
	}

	var out []Info
	for _, name := range r.Names() {
		s, err := r.Resolve(name)
		if err != nil {
			continue
		}
		src := SourceBuiltin
		if overrides[name] {
			src = SourceUser
		}
		out = append(out, Info{Name: name, Description: s.Description, Artifacts: s.IDs(), Source: src})
	}
	return out
}

func (r *Resolver) overrideNames() []string {
	dir := r.SchemasDir()
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	return names
}
