package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// setCommand assigns a value to a shared counter and restores the previous one on undo.
type setCommand struct {
	target *int
	value  int
	prev   int
	log    *[]string
	name   string
}

func (c *setCommand) Execute() {
	c.prev = *c.target
	*c.target = c.value
	if c.log != nil {
		*c.log = append(*c.log, "exec:"+c.name)
	}
}

func (c *setCommand) Undo() {
	*c.target = c.prev
	if c.log != nil {
		*c.log = append(*c.log, "undo:"+c.name)
	}
}

func TestHistory_ExecuteUndoRedo(t *testing.T) {
	assert := assert.New(t)

	var v int
	m := New()
	m.Execute(&setCommand{target: &v, value: 1})
	m.Execute(&setCommand{target: &v, value: 2})
	assert.Equal(2, v)
	assert.True(m.CanUndo())
	assert.False(m.CanRedo())

	m.Undo()
	assert.Equal(1, v)
	assert.True(m.CanRedo())

	m.Redo()
	assert.Equal(2, v)
	assert.False(m.CanRedo())

	m.Undo()
	m.Undo()
	assert.Equal(0, v)
	assert.False(m.CanUndo())

	// No-ops on empty stacks.
	m.Undo()
	assert.Equal(0, v)
	m.Redo()
	m.Redo()
	m.Redo()
	assert.Equal(2, v)
}

func TestHistory_ExecuteClearsRedo(t *testing.T) {
	assert := assert.New(t)

	var v int
	m := New()
	m.Execute(&setCommand{target: &v, value: 1})
	m.Undo()
	assert.True(m.CanRedo())

	m.Execute(&setCommand{target: &v, value: 5})
	assert.False(m.CanRedo())
	assert.Equal(5, v)
}

func TestHistory_SkipHistory(t *testing.T) {
	assert := assert.New(t)

	var v int
	m := New()
	m.Execute(&setCommand{target: &v, value: 1}, true)
	assert.Equal(1, v)
	assert.False(m.CanUndo())
}

func TestHistory_Batch(t *testing.T) {
	assert := assert.New(t)

	var (
		a, b  int
		trace []string
	)
	m := New()
	m.StartBatch()
	m.StartBatch()
	assert.True(m.Batching())

	m.Execute(&setCommand{target: &a, value: 20, log: &trace, name: "a"})
	m.Execute(&setCommand{target: &b, value: 10, log: &trace, name: "b"})
	m.Execute(&setCommand{target: &a, value: 30, log: &trace, name: "c"})
	assert.Equal(3, m.BatchLen())
	assert.False(m.CanUndo())

	m.EndBatch()
	assert.False(m.Batching())
	undo, _ := m.Len()
	assert.Equal(1, undo)

	trace = nil
	m.Undo()
	assert.Equal(0, a)
	assert.Equal(0, b)
	assert.Equal([]string{"undo:c", "undo:b", "undo:a"}, trace)

	trace = nil
	m.Redo()
	assert.Equal(30, a)
	assert.Equal(10, b)
	assert.Equal([]string{"exec:a", "exec:b", "exec:c"}, trace)
}

func TestHistory_EmptyBatch(t *testing.T) {
	assert := assert.New(t)

	m := New()
	m.StartBatch()
	m.EndBatch()
	assert.True(m.CanUndo())

	m.StartBatch()
	m.DiscardBatch()
	undo, _ := m.Len()
	assert.Equal(1, undo)
	assert.False(m.Batching())

	// Closing a batch which was never opened is a no-op.
	m.EndBatch()
	undo, _ = m.Len()
	assert.Equal(1, undo)
}

func TestHistory_Limit(t *testing.T) {
	assert := assert.New(t)

	var v int
	m := New(WithLimit(3))
	for i := 1; i <= 5; i++ {
		m.Execute(&setCommand{target: &v, value: i})
	}
	undo, _ := m.Len()
	assert.Equal(3, undo)

	for m.CanUndo() {
		m.Undo()
	}
	// The two oldest entries were dropped.
	assert.Equal(2, v)
}

func TestHistory_Listener(t *testing.T) {
	assert := assert.New(t)

	type change struct{ undo, redo bool }
	var changes []change

	var v int
	m := New(WithListener(func(canUndo, canRedo bool) {
		changes = append(changes, change{canUndo, canRedo})
	}))

	m.Execute(&setCommand{target: &v, value: 1})
	m.Execute(&setCommand{target: &v, value: 2}, true)
	m.StartBatch()
	m.Execute(&setCommand{target: &v, value: 3})
	m.EndBatch()
	m.Undo()
	m.Undo()
	m.Redo()

	assert.Equal([]change{
		{true, false},
		{true, false},
		{true, true},
		{false, true},
		{true, true},
	}, changes)
}
