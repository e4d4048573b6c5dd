package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Progress
	}{
		{"mixed", "- [x] a\n- [ ] b\n- [X] c", Progress{Total: 3, Completed: 2}},
		{"no checkboxes", "# Tasks\n\nNothing yet.\n- plain bullet", Progress{}},
		{"empty", "", Progress{}},
		{"star bullets and indent", "  * [ ] a\n\t- [x] b", Progress{Total: 2, Completed: 1}},
		{"malformed boxes ignored", "- [] a\n- [y] b\n-[x] c", Progress{}},
		{"crlf", "- [x] a\r\n- [ ] b\r\n", Progress{Total: 2, Completed: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Count(tt.content))
		})
	}
}

func TestProgressStates(t *testing.T) {
	assert.True(t, Progress{}.Draft())
	assert.False(t, Progress{}.Done())
	assert.False(t, Progress{Total: 2, Completed: 1}.Done())
	assert.True(t, Progress{Total: 2, Completed: 2}.Done())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "No tasks", Format(Progress{}))
	assert.Equal(t, "3/5 complete", Format(Progress{Total: 5, Completed: 3}))
}

const sampleTasks = `# Tasks

## 1. Backend
- [x] 1.1 Add model
- [ ] 1.2 Add endpoint (in progress)

## Frontend
- [ ] Wire form [blocked]
- [ ] Style form
`

func TestParse(t *testing.T) {
	got := Parse(sampleTasks)
	require.Len(t, got, 4)

	assert.Equal(t, Task{ID: "1.1", Section: "1. Backend", Title: "Add model", Status: StatusComplete, Line: 3}, got[0])
	assert.Equal(t, "1.2", got[1].ID)
	assert.Equal(t, "Add endpoint", got[1].Title)
	assert.Equal(t, StatusInProgress, got[1].Status)
	assert.Equal(t, "2.1", got[2].ID)
	assert.Equal(t, StatusBlocked, got[2].Status)
	assert.Equal(t, "Wire form", got[2].Title)
	assert.Equal(t, "2.2", got[3].ID)
	assert.Equal(t, StatusPending, got[3].Status)
}

func TestSetComplete(t *testing.T) {
	out, err := SetComplete(sampleTasks, "2.2", true)
	require.NoError(t, err)
	assert.Contains(t, out, "- [x] Style form")
	assert.Equal(t, Progress{Total: 4, Completed: 2}, Count(out))

	out, err = SetComplete(out, "1.1", false)
	require.NoError(t, err)
	assert.Contains(t, out, "- [ ] 1.1 Add model")

	_, err = SetComplete(sampleTasks, "9.9", true)
	assert.Error(t, err)
}

func TestSetComplete_PreservesCRLF(t *testing.T) {
	out, err := SetComplete("- [ ] a\r\n- [ ] b\r\n", "1.2", true)
	require.NoError(t, err)
	assert.Equal(t, "- [ ] a\r\n- [x] b\r\n", out)
}
