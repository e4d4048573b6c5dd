package workflow

import (
	"errors"
	"fmt"
)

// Status reports the active change's phase, task progress, blockers for
// the next transition, and what to do next. With no active change it
// returns a Status with an empty phase and no error.
func (e *Engine) Status() (*Status, error) {
	c, err := e.Active()
	if errors.Is(err, ErrNoActiveChange) {
		return &Status{
			Blockers:   []string{},
			NextAction: "Run `openspec workflow create \"<title>\"` to start a new change.",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	phase := c.Meta.CurrentPhaseID
	st := &Status{
		ActiveChangeID: c.Meta.ID,
		Title:          c.Meta.Title,
		Phase:          phase,
		Blockers:       e.blockers(phase, c),
	}
	if st.Blockers == nil {
		st.Blockers = []string{}
	}
	if len(c.Tasks) > 0 {
		p := countTasks(c.Tasks)
		st.TaskProgress = &p
	}
	if phase == PhaseImplement {
		st.NextTask = NextTask(c.Tasks)
	}
	st.NextAction = nextAction(phase, st.NextTask, st.Blockers)
	return st, nil
}

// NextTask prefers a task in progress over a pending one.
func NextTask(tasks []Task) *Task {
	for _, want := range []TaskStatus{StatusInProgress, StatusPending} {
		for i := range tasks {
			if tasks[i].Status == want {
				t := tasks[i]
				return &t
			}
		}
	}
	return nil
}

func countTasks(tasks []Task) Progress {
	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			p.Pending++
		case StatusInProgress:
			p.InProgress++
		case StatusComplete:
			p.Complete++
		case StatusBlocked:
			p.Blocked++
		}
	}
	return p
}

func nextAction(phase Phase, next *Task, blockers []string) string {
	switch phase {
	case PhaseDone:
		return "Change is complete. Archive or start a new change."
	case PhaseDraft:
		if len(blockers) > 0 {
			return "Create plan.md with your proposal, then run `openspec workflow advance`."
		}
		return "Run `openspec workflow advance` to move to plan phase."
	case PhasePlan:
		if len(blockers) > 0 {
			return "Add tasks with acceptance criteria, then run `openspec workflow advance`."
		}
		return "Run `openspec workflow advance` to move to implement phase."
	case PhaseImplement:
		if next != nil {
			if next.Status == StatusPending {
				return fmt.Sprintf("Start task %q: %s", next.ID, next.Title)
			}
			return fmt.Sprintf("Continue task %q: %s", next.ID, next.Title)
		}
		if len(blockers) == 0 {
			return "All tasks complete! Run `openspec workflow advance` to finish."
		}
		return "Fix blockers above to advance to done."
	}
	return "Unknown state."
}
