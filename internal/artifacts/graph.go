package artifacts

import (
	"container/heap"
	"fmt"
	"strings"
)

// Blocked maps each artifact with an unmet prerequisite to the missing ids.
// Only direct requires edges are checked; an artifact behind a blocked
// artifact is reported with its own missing prerequisite, not transitively.
func Blocked(s *Schema, completed CompletedSet) map[string][]string {
	out := map[string][]string{}
	for _, a := range s.Artifacts {
		var missing []string
		for _, req := range a.Requires {
			if !completed[req] {
				missing = append(missing, req)
			}
		}
		if len(missing) > 0 {
			out[a.ID] = missing
		}
	}
	return out
}

// Ready returns the artifacts, in declared order, that are not yet complete
// and whose prerequisites all are.
func Ready(s *Schema, completed CompletedSet) []string {
	blocked := Blocked(s, completed)
	var out []string
	for _, a := range s.Artifacts {
		if completed[a.ID] {
			continue
		}
		if _, ok := blocked[a.ID]; !ok {
			out = append(out, a.ID)
		}
	}
	return out
}

// State is the planning status of one artifact.
type State string

const (
	StateDone    State = "done"
	StateReady   State = "ready"
	StateBlocked State = "blocked"
)

// ArtifactStatus is one row of a change's artifact status.
type ArtifactStatus struct {
	ID          string   `json:"id"`
	OutputPath  string   `json:"outputPath"`
	State       State    `json:"status"`
	MissingDeps []string `json:"missingDeps,omitempty"`
}

// Statuses reports every artifact in build order. A schema whose order
// cannot be computed falls back to declared order.
func Statuses(s *Schema, completed CompletedSet) []ArtifactStatus {
	order, err := BuildOrder(s)
	if err != nil {
		order = s.IDs()
	}
	blocked := Blocked(s, completed)

	out := make([]ArtifactStatus, 0, len(order))
	for _, id := range order {
		a, _ := s.Artifact(id)
		st := ArtifactStatus{ID: id, OutputPath: a.Generates, State: StateReady}
		switch {
		case completed[id]:
			st.State = StateDone
		case len(blocked[id]) > 0:
			st.State = StateBlocked
			st.MissingDeps = blocked[id]
		}
		out = append(out, st)
	}
	return out
}

// BuildOrder returns a topological order of artifact ids. Ties are broken
// by declared order so the result is stable. Unknown requires ids and
// cycles are errors.
func BuildOrder(s *Schema) ([]string, error) {
	index := make(map[string]int, len(s.Artifacts))
	for i, a := range s.Artifacts {
		if _, dup := index[a.ID]; dup {
			return nil, fmt.Errorf("schema %q: duplicate artifact id %q", s.Name, a.ID)
		}
		index[a.ID] = i
	}

	indeg := make([]int, len(s.Artifacts))
	outgoing := make([][]int, len(s.Artifacts))
	for i, a := range s.Artifacts {
		for _, req := range a.Requires {
			j, ok := index[req]
			if !ok {
				return nil, fmt.Errorf("schema %q: artifact %q requires unknown artifact %q", s.Name, a.ID, req)
			}
			outgoing[j] = append(outgoing[j], i)
			indeg[i]++
		}
	}

	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}
	order := make([]string, 0, len(s.Artifacts))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		order = append(order, s.Artifacts[n].ID)
		for _, m := range outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}

	if len(order) != len(s.Artifacts) {
		return nil, fmt.Errorf("schema %q: dependency cycle: %s", s.Name, strings.Join(findCycle(s, index), " -> "))
	}
	return order, nil
}

// findCycle returns one cycle as artifact ids, first id repeated at the end.
func findCycle(s *Schema, index map[string]int) []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(s.Artifacts))
	var stack []int
	var cycle []string

	var visit func(u int) bool
	visit = func(u int) bool {
		color[u] = gray
		stack = append(stack, u)
		for _, req := range s.Artifacts[u].Requires {
			v := index[req]
			if color[v] == gray {
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == v {
						for _, n := range stack[i:] {
							cycle = append(cycle, s.Artifacts[n].ID)
						}
						cycle = append(cycle, s.Artifacts[v].ID)
						return true
					}
				}
			}
			if color[v] == white && visit(v) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
		return false
	}
	for i := range s.Artifacts {
		if color[i] == white && visit(i) {
			break
		}
	}
	return cycle
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
