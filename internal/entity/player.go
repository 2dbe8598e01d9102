package entity

// Player is a connected peer seated in a session.
type Player struct {
	ID        string `json:"id"`
	Symbol    Symbol `json:"symbol,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}
