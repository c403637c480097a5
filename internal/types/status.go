package types

// State is a node of the console status machine.
type State string

const (
	StateDisconnected  State = "Disconnected"
	StateConnecting    State = "Connecting"
	StateReady         State = "Ready"
	StateProcessing    State = "Processing"
	StateAwaitingInput State = "Awaiting for user input"
	StateError         State = "Error"
)

// Status is the current state plus the "current task" detail line.
type Status struct {
	State  State
	Detail string
}

// DetailNone is shown when there is no current task.
const DetailNone = "None"

// Busy reports whether an outbound request is in flight.
func (s Status) Busy() bool {
	return s.State == StateProcessing || s.State == StateConnecting
}
