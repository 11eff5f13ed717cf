package models

import "time"

// ProcessEvent is one log line that matched the trace grammar.
type ProcessEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}
