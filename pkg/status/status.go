// Package status tracks the lifecycle of the single in-flight question.
package status

import "sync"

type Status int

const (
	Idle Status = iota
	Pending
	Completed
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

type Trigger string

const (
	Submit            Trigger = "submit"
	DeliveryCompleted Trigger = "delivery-completed"
	DeliveryFailed    Trigger = "delivery-error"
	SendFailed        Trigger = "send-failed"
	DecodeFailed      Trigger = "decode-failed"
)

// next returns the state reached from s on t, or false if t is not allowed in s.
// Nothing returns to Idle; Submit is the only way out of Completed and Error.
func next(s Status, t Trigger) (Status, bool) {
	switch t {
	case Submit:
		if s == Pending {
			return s, false
		}
		return Pending, true
	case DeliveryCompleted:
		if s == Pending {
			return Completed, true
		}
	case DeliveryFailed, SendFailed, DecodeFailed:
		if s == Pending {
			return Error, true
		}
	}
	return s, false
}

// Machine holds the current delivery status.
type Machine struct {
	mu       sync.Mutex
	current  Status
	onChange func(from, to Status, t Trigger)
}

func NewMachine() *Machine {
	return &Machine{current: Idle}
}

// OnChange installs a callback run after every accepted transition.
func (m *Machine) OnChange(fn func(from, to Status, t Trigger)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Machine) Current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Fire applies t and reports whether the status changed.
func (m *Machine) Fire(t Trigger) (Status, bool) {
	m.mu.Lock()
	from := m.current
	to, ok := next(from, t)
	if ok {
		m.current = to
	}
	cb := m.onChange
	m.mu.Unlock()

	if ok && cb != nil {
		cb(from, to, t)
	}
	return to, ok
}

// CanSubmit is false while a question is pending.
func (m *Machine) CanSubmit() bool {
	return m.Current() != Pending
}

// AwaitingAnswer gates the provisional "awaiting answer" placeholder.
func (m *Machine) AwaitingAnswer() bool {
	return m.Current() == Pending
}

// Reset puts the machine back to Idle. Used when a session ends.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.current = Idle
	m.mu.Unlock()
}
