package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	// MaxQueue bounds the frames buffered for a slow client.
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	SessionID       string       `json:"session_id"`
	SphereParams    SphereParams `json:"sphere_params"`
}

type SphereParams struct {
	SphereID            string     `json:"sphere_id"`
	TickRateHz          int        `json:"tick_rate_hz"`
	Radius              float64    `json:"radius"`
	Position            [3]float64 `json:"position"`
	RotationAxis        [3]float64 `json:"rotation_axis"`
	RotationAngle       float64    `json:"rotation_angle"`
	SubdivideDistance   float64    `json:"subdivide_distance"`
	UnsubdivideDistance float64    `json:"unsubdivide_distance"`
	LevelScale          float64    `json:"level_scale"`
	MaxLevel            int        `json:"max_level"`
	RootCount           int        `json:"root_count"`
}

// VIEWPOINT (client -> server). The latest one received before a tick wins.
type ViewpointMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Pos             [3]float64 `json:"pos"`
}

// FRAME (server -> client), sent after a tick that changed the leaf set.
type FrameMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	Digest          string      `json:"digest"`
	Leaves          []LeafPatch `json:"leaves"`
}

// LeafPatch is one renderable triangle. Corners are world-space positions in
// top, bottom-left, bottom-right order.
type LeafPatch struct {
	Path    string        `json:"path"`
	Level   int           `json:"level"`
	Corners [3][3]float64 `json:"corners"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
