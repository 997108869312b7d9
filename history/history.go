// Package history implements a command based undo/redo manager.
//
// Every reversible edit is a Command. Commands run through a Manager,
// which records them on an undo stack. Several commands can be grouped
// into a Batch, which is then undone and redone as a single step.
package history

import (
	"github.com/esimov/retouch/utils"
)

// DefaultLimit is the default number of entries kept on the undo stack.
const DefaultLimit = 50

// Command is a reversible operation.
type Command interface {
	Execute()
	Undo()
}

// Batch groups commands into one history entry. The commands are executed
// in insertion order and undone in strict reverse order.
type Batch struct {
	commands []Command
}

// Add appends a command to the batch without executing it.
func (b *Batch) Add(cmd Command) {
	b.commands = append(b.commands, cmd)
}

// Len returns the number of commands held by the batch.
func (b *Batch) Len() int {
	return len(b.commands)
}

// Execute runs every command in forward order.
func (b *Batch) Execute() {
	for _, cmd := range b.commands {
		cmd.Execute()
	}
}

// Undo reverts every command in reverse order.
func (b *Batch) Undo() {
	for i := len(b.commands) - 1; i >= 0; i-- {
		b.commands[i].Undo()
	}
}

// Listener is notified after every operation which mutates the history.
type Listener func(canUndo, canRedo bool)

// Option configures a Manager.
type Option func(*Manager)

// WithLimit bounds the undo stack. Once exceeded, the oldest entries are dropped.
// A non positive limit disables trimming.
func WithLimit(n int) Option {
	return func(m *Manager) {
		m.limit = n
	}
}

// WithListener registers the change listener.
func WithListener(fn Listener) Option {
	return func(m *Manager) {
		m.listener = fn
	}
}

// Manager holds the undo and redo stacks. It is not safe for concurrent use:
// all the calls are expected to come from the goroutine driving the editor.
type Manager struct {
	undo     []Command
	redo     []Command
	batch    *Batch
	limit    int
	listener Listener
}

// New creates a Manager with the provided options.
func New(opts ...Option) *Manager {
	m := &Manager{limit: DefaultLimit}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetListener replaces the change listener.
func (m *Manager) SetListener(fn Listener) {
	m.listener = fn
}

// Execute runs the command immediately. While a batch is open the command
// is appended to it, otherwise it is pushed to the undo stack, unless
// skipHistory is set, and the redo stack is invalidated.
func (m *Manager) Execute(cmd Command, skipHistory ...bool) {
	cmd.Execute()

	if m.batch != nil {
		m.batch.Add(cmd)
		return
	}
	if len(skipHistory) > 0 && skipHistory[0] {
		return
	}
	m.push(cmd)
	m.redo = nil
	m.notify()
}

// StartBatch opens a batch. It is a no-op when a batch is already open.
func (m *Manager) StartBatch() {
	if m.batch != nil {
		return
	}
	m.batch = &Batch{}
}

// EndBatch closes the open batch and records it as a single undo entry,
// even if it holds no command.
func (m *Manager) EndBatch() {
	if m.batch == nil {
		return
	}
	b := m.batch
	m.batch = nil

	m.push(b)
	m.redo = nil
	m.notify()
}

// DiscardBatch closes the open batch without recording it.
// The commands already executed by the batch stay applied.
func (m *Manager) DiscardBatch() {
	m.batch = nil
}

// Batching reports whether a batch is open.
func (m *Manager) Batching() bool {
	return m.batch != nil
}

// BatchLen returns the number of commands collected by the open batch.
func (m *Manager) BatchLen() int {
	if m.batch == nil {
		return 0
	}
	return m.batch.Len()
}

// Undo reverts the most recent entry and moves it to the redo stack.
func (m *Manager) Undo() {
	if len(m.undo) == 0 {
		return
	}
	cmd := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]

	cmd.Undo()
	m.redo = append(m.redo, cmd)
	m.notify()
}

// Redo re-executes the most recently undone entry and moves it back to the undo stack.
func (m *Manager) Redo() {
	if len(m.redo) == 0 {
		return
	}
	cmd := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]

	cmd.Execute()
	m.push(cmd)
	m.notify()
}

// CanUndo reports whether the undo stack holds any entry.
func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether the redo stack holds any entry.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// Len returns the depth of the undo and redo stacks.
func (m *Manager) Len() (undo, redo int) {
	return len(m.undo), len(m.redo)
}

// Clear drops both stacks and any open batch.
func (m *Manager) Clear() {
	m.undo, m.redo, m.batch = nil, nil, nil
	m.notify()
}

func (m *Manager) push(cmd Command) {
	m.undo = append(m.undo, cmd)
	if m.limit > 0 && len(m.undo) > m.limit {
		drop := len(m.undo) - m.limit
		utils.Logger().Debug("history limit reached", "dropped", drop, "limit", m.limit)
		// Release the references held by the dropped entries.
		for i := 0; i < drop; i++ {
			m.undo[i] = nil
		}
		m.undo = m.undo[drop:]
	}
}

func (m *Manager) notify() {
	if m.listener != nil {
		m.listener(m.CanUndo(), m.CanRedo())
	}
}
