// Package ipc is the control socket of a running assistant: one JSON
// request line in, one JSON response line out.
package ipc

// Control commands understood by the running assistant.
const (
	CommandStatus  = "status"
	CommandStop    = "stop"
	CommandGesture = "gesture"
)

type Request struct {
	Command string `json:"command"`
	// Arg carries the command argument, such as a gesture name.
	Arg string `json:"arg,omitempty"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	// Tasks is the number of background tasks running.
	Tasks int `json:"tasks,omitempty"`
}
