// Package lifecycle implements the NotInitialized -> Initialized ->
// Destroyed state machine shared by every engine and the dispatcher.
// Self-transitions and operating outside Initialized are precondition
// violations: they panic rather than return an error, since Go has no
// separate debug/release build mode to assert in.
package lifecycle

// State is one point in an allocator instance's life.
type State int32

const (
	NotInitialized State = iota
	Initialized
	Destroyed
)

func (s State) String() string {
	switch s {
	case NotInitialized:
		return "NotInitialized"
	case Initialized:
		return "Initialized"
	case Destroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// Machine tracks one instance's lifecycle state. The zero value starts
// at NotInitialized.
type Machine struct {
	state State
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Init transitions NotInitialized|Destroyed -> Initialized. Panics on
// double-init.
func (m *Machine) Init() {
	if m.state == Initialized {
		panic("alloc: double init")
	}
	m.state = Initialized
}

// Destroy transitions any non-Destroyed state -> Destroyed. Panics on
// double-destroy.
func (m *Machine) Destroy() {
	if m.state == Destroyed {
		panic("alloc: double destroy")
	}
	m.state = Destroyed
}

// RequireInitialized panics unless the machine is in Initialized.
// Callers invoke this at the top of every Alloc/Free.
func (m *Machine) RequireInitialized() {
	if m.state != Initialized {
		panic("alloc: operation requires an Initialized instance, got " + m.state.String())
	}
}
