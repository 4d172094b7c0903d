package stream

import (
	"encoding/json"

	"github.com/apexsim/raceline/pkg/core"
)

// Message types exchanged with the live viewer.
const (
	TypeHello     = "hello"
	TypeGoodbye   = "goodbye"
	TypeFrame     = "frame"
	TypePathSaved = "path_saved"
)

// Envelope wraps every message sent over the wire.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage is the server's acknowledgement of a handshake message.
type AckMessage struct {
	Type string `json:"type"`
	For  string `json:"for"`
}

// HelloPayload announces a playback session to the viewer: which paths
// exist and how fast the simulation ticks.
type HelloPayload struct {
	Session  string   `json:"session"`
	Paths    []string `json:"paths"`
	TickRate int      `json:"tickRate"`
}

// AgentPose is one agent's pose within a frame.
type AgentPose struct {
	Name     string      `json:"name"`
	Position core.Point3 `json:"position"`
	Progress float64     `json:"progress"`
	Speed    float64     `json:"speed"`
	Done     bool        `json:"done"`
}

// Frame is a single tick's worth of agent poses.
type Frame struct {
	Time   float64     `json:"time"`
	Agents []AgentPose `json:"agents"`
}

// PathSavedPayload notifies the viewer that a path was written to the
// store so it can refresh its overlay.
type PathSavedPayload struct {
	Name   string         `json:"name"`
	Points core.PointList `json:"points"`
}
