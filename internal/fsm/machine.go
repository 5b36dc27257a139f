// Package fsm is the operational state machine of the rig. It is pure: no
// clocks, no logging, no hardware: callers feed it events and observe the
// outcome. Transitions are a total function over a fixed table; every
// (state, event) pair not in the table is rejected and leaves the current
// state untouched.
package fsm

import (
	"fmt"
	"sync"
)

// State is the rig's operational state. Exactly one is current at any instant.
type State string

const (
	StateIdle              State = "idle"
	StateRunning           State = "running"
	StatePaused            State = "paused"
	StateDoorOpenInterrupt State = "door_open_interrupt"
	StateChildLocked       State = "child_locked"
	StateCompleted         State = "completed"
	StateFaulted           State = "faulted"
)

// Event is a command or hardware condition fed into the machine.
type Event string

const (
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventPause       Event = "pause"
	EventResume      Event = "resume"
	EventDoorOpen    Event = "door_open"
	EventDoorClose   Event = "door_close"
	EventFinish      Event = "finish"
	EventDeviceError Event = "device_error"
	EventLock        Event = "lock"
	EventUnlock      Event = "unlock"
	EventReset       Event = "reset"
)

// IllegalTransitionError reports a rejected event. The machine's state is
// guaranteed unchanged when this is returned.
type IllegalTransitionError struct {
	State  State
	Event  Event
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("illegal transition: %s in state %s: %s", e.Event, e.State, e.Reason)
	}
	return fmt.Sprintf("illegal transition: %s in state %s", e.Event, e.State)
}

// transitions is the complete legal transition table. Door close lands in
// Paused, never directly back in Running: continuing after an interruption
// always takes an explicit resume.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStart:       StateRunning,
		EventLock:        StateChildLocked,
		EventDeviceError: StateFaulted,
	},
	StateRunning: {
		EventPause:       StatePaused,
		EventDoorOpen:    StateDoorOpenInterrupt,
		EventFinish:      StateCompleted,
		EventStop:        StateCompleted,
		EventDeviceError: StateFaulted,
	},
	StatePaused: {
		EventResume:      StateRunning,
		EventStop:        StateCompleted,
		EventDeviceError: StateFaulted,
	},
	StateDoorOpenInterrupt: {
		EventDoorClose:   StatePaused,
		EventStop:        StateCompleted,
		EventDeviceError: StateFaulted,
	},
	StateChildLocked: {
		EventUnlock:      StateIdle,
		EventDeviceError: StateFaulted,
	},
	StateCompleted: {
		EventReset:       StateIdle,
		EventDeviceError: StateFaulted,
	},
	StateFaulted: {
		EventReset:       StateIdle,
		EventDeviceError: StateFaulted,
	},
}

// Machine holds the current state. Safe for concurrent use.
type Machine struct {
	mu    sync.Mutex
	state State
}

func New() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire applies ev. On success it returns the new state; on a rejected event
// it returns an *IllegalTransitionError and the state is unchanged.
func (m *Machine) Fire(ev Event) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := transitions[m.state][ev]
	if !ok {
		reason := ""
		if m.state == StateChildLocked && ev == EventStart {
			reason = "child lock engaged; unlock before starting"
		}
		return m.state, &IllegalTransitionError{State: m.state, Event: ev, Reason: reason}
	}
	m.state = next
	return m.state, nil
}

// Is reports whether the current state equals s.
func (m *Machine) Is(s State) bool {
	return m.State() == s
}
