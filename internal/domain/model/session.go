package model

// SessionStatus describes the state of a client connection session.
type SessionStatus string

const (
	SessionConnecting   SessionStatus = "CONNECTING"
	SessionConnected    SessionStatus = "CONNECTED"
	SessionReconnecting SessionStatus = "RECONNECTING"
	SessionDisconnected SessionStatus = "DISCONNECTED"
)

// Status is the read-only view of a session exposed to the UI layer.
type Status struct {
	Connected  bool `json:"connected"`
	RetryCount int  `json:"retry_count"`
}
