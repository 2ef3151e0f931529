package observerproto

import "geosphere.ai/internal/protocol"

// Version is the debug observer protocol version (separate from the viewer WS protocol).
const Version = "0.1"

// Message types.
const (
	TypeSubscribe = "SUBSCRIBE"
	TypeDebug     = "DEBUG"
	TypeTagResult = "TAG_RESULT"
)

// Client -> Server. First message on the observer WS connection. Later
// SUBSCRIBE messages may carry Tag to toggle the debug-draw tag on a node.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// IncludeLeaves adds the full leaf set to every DEBUG frame.
	IncludeLeaves bool `json:"include_leaves,omitempty"`

	Tag *TagRequest `json:"tag,omitempty"`
}

type TagRequest struct {
	Path string `json:"path"`
	On   bool   `json:"on"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string                `json:"protocol_version"`
	SphereID        string                `json:"sphere_id"`
	Tick            uint64                `json:"tick"`
	SphereParams    protocol.SphereParams `json:"sphere_params"`
	Metrics         any                   `json:"metrics,omitempty"`
}

// Server -> Client. Sent every tick.
type DebugMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Digest          string `json:"digest"`

	Nodes  int `json:"nodes"`
	Leaves int `json:"leaves"`

	Splits     int `json:"splits"`
	Collapses  int `json:"collapses"`
	Forced     int `json:"forced"`
	Iterations int `json:"iterations"`

	// Tagged lists every node carrying the debug-draw tag, leaf or not.
	Tagged  []DebugNode          `json:"tagged"`
	LeafSet []protocol.LeafPatch `json:"leaf_set,omitempty"`
	Audits  []AuditEntry         `json:"audits,omitempty"`
}

type DebugNode struct {
	Path    string        `json:"path"`
	Level   int           `json:"level"`
	Leaf    bool          `json:"leaf"`
	Corners [3][3]float64 `json:"corners"`
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Action string `json:"action"`
	Path   string `json:"path"`
	Level  int    `json:"level"`
	Reason string `json:"reason,omitempty"`
}

// Server -> Client. Reply to a SUBSCRIBE carrying a tag request.
type TagResult struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Path            string `json:"path"`
	On              bool   `json:"on"`
	Error           string `json:"error,omitempty"`
}
