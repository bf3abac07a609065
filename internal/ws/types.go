package ws

// OpCode tells browsers how to read a feed frame.
type OpCode int

// ProtocolVersion changes only when a browser built for the old feed would
// misread frames.
const ProtocolVersion = 1

const (
	OpDispatch OpCode = 0 // event frame, carries t and s
	OpHello    OpCode = 1 // first frame on every connection
)

// Dispatch event types.
const (
	EventInfoUpdate  = "INFO_UPDATE"
	EventStreamState = "STREAM_STATE"
)

// replayOrder lists the events a new client receives after HELLO.
var replayOrder = []string{EventStreamState, EventInfoUpdate}

type WSMessage struct {
	Op   OpCode `json:"op"`
	Type string `json:"t,omitempty"`
	Data any    `json:"d,omitempty"`
	Seq  *int64 `json:"s,omitempty"`
}

type HelloPayload struct {
	ProtocolVersion int `json:"protocol_version"`
	// PingIntervalMS lets browsers detect a dead feed without their own pings.
	PingIntervalMS int64 `json:"ping_interval_ms"`
}

// StreamStatePayload reports whether the portal is receiving live updates
// from the verification backend.
type StreamStatePayload struct {
	Connected bool `json:"connected"`
}
