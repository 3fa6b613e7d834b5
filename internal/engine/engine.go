// Package engine implements the key-driven state machine of a pocket
// calculator: operand entry, pending-operator resolution, chained
// evaluation and result formatting.
//
// An Engine is not safe for concurrent use. Callers that share one across
// goroutines must serialise Press calls.
package engine

// HistoryLimit is the number of completed evaluations an Engine remembers.
const HistoryLimit = 20

// Entry is one completed "=" evaluation.
type Entry struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

// Engine owns one calculator's state.
type Engine struct {
	state   State
	history []Entry
}

func New() *Engine {
	return &Engine{state: Idle()}
}

// Press applies a key label. Unknown labels are ignored and reported as
// false.
func (e *Engine) Press(key string) bool {
	t, ok := ParseToken(key)
	if !ok {
		return false
	}
	e.PressToken(t)
	return true
}

// PressToken applies t and returns the computation failure it caused, if
// any. Keys pressed while the error marker is already shown return nil.
func (e *Engine) PressToken(t Token) error {
	prev := e.state
	e.state = Apply(prev, t)

	if prev.Err != nil {
		return nil
	}
	if e.state.Err != nil {
		return e.state.Err
	}

	if t.Kind == KindEquals && prev.Pending != OpNone && prev.Previous != "" {
		e.record(Entry{Expression: e.state.Expression, Result: e.state.Result})
	}
	return nil
}

func (e *Engine) record(entry Entry) {
	e.history = append(e.history, entry)
	if len(e.history) > HistoryLimit {
		e.history = e.history[len(e.history)-HistoryLimit:]
	}
}

func (e *Engine) View() View {
	return e.state.View()
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.state
}

// Err reports the failure behind the error marker, if any.
func (e *Engine) Err() error {
	return e.state.Err
}

// History returns completed evaluations, oldest first.
func (e *Engine) History() []Entry {
	out := make([]Entry, len(e.history))
	copy(out, e.history)
	return out
}
