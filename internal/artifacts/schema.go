// Package artifacts resolves workflow schemas into artifact dependency
// graphs and computes which artifacts of a change are done, ready, or
// blocked.
package artifacts

// Artifact is one deliverable in a workflow schema.
type Artifact struct {
	ID          string   `yaml:"id" json:"id"`
	Generates   string   `yaml:"generates" json:"generates"`
	Description string   `yaml:"description" json:"description"`
	Template    string   `yaml:"template" json:"template"`
	Requires    []string `yaml:"requires" json:"requires"`
}

// Schema is a named workflow: an ordered list of artifacts whose requires
// lists form a DAG.
type Schema struct {
	Name        string     `yaml:"name" json:"name"`
	Version     int        `yaml:"version" json:"version"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Artifacts   []Artifact `yaml:"artifacts" json:"artifacts"`
}

// Artifact returns the artifact with the given id.
func (s *Schema) Artifact(id string) (Artifact, bool) {
	for _, a := range s.Artifacts {
		if a.ID == id {
			return a, true
		}
	}
	return Artifact{}, false
}

// IDs returns artifact ids in declared order.
func (s *Schema) IDs() []string {
	ids := make([]string, len(s.Artifacts))
	for i, a := range s.Artifacts {
		ids[i] = a.ID
	}
	return ids
}

// CompletedSet holds the ids of artifacts already produced for a change.
type CompletedSet map[string]bool

// Sorted returns the members in the schema's declared order.
func (c CompletedSet) Sorted(s *Schema) []string {
	var out []string
	for _, a := range s.Artifacts {
		if c[a.ID] {
			out = append(out, a.ID)
		}
	}
	return out
}

// Builtin schema names.
const (
	SpecDriven = "spec-driven"
	TDD        = "tdd"
)

// builtins returns fresh copies so callers can never mutate the table.
func builtins() map[string]*Schema {
	return map[string]*Schema{
		SpecDriven: {
			Name:        SpecDriven,
			Version:     1,
			Description: "Default OpenSpec workflow - proposal → specs → design → tasks",
			Artifacts: []Artifact{
				{ID: "proposal", Generates: "proposal.md", Description: "Initial proposal document outlining the change", Template: "templates/proposal.md", Requires: []string{}},
				{ID: "specs", Generates: "specs/**/*.md", Description: "Detailed specifications for the change", Template: "templates/spec.md", Requires: []string{"proposal"}},
				{ID: "design", Generates: "design.md", Description: "Technical design document with implementation details", Template: "templates/design.md", Requires: []string{"proposal"}},
				{ID: "tasks", Generates: "tasks.md", Description: "Implementation tasks derived from specs and design", Template: "templates/tasks.md", Requires: []string{"specs", "design"}},
			},
		},
		TDD: {
			Name:        TDD,
			Version:     1,
			Description: "Test-driven development workflow - tests → implementation → docs",
			Artifacts: []Artifact{
				{ID: "spec", Generates: "spec.md", Description: "Feature specification defining requirements", Template: "templates/spec.md", Requires: []string{}},
				{ID: "tests", Generates: "tests/**/*_test.*", Description: "Test files written before implementation", Template: "templates/test.md", Requires: []string{"spec"}},
				{ID: "implementation", Generates: "src/**/*", Description: "Implementation code to pass the tests", Template: "templates/implementation.md", Requires: []string{"tests"}},
				{ID: "docs", Generates: "docs/**/*.md", Description: "Documentation for the implemented feature", Template: "templates/docs.md", Requires: []string{"implementation"}},
			},
		},
	}
}

// BuiltinNames lists the built-in schemas in a stable order.
func BuiltinNames() []string {
	return []string{SpecDriven, TDD}
}
