package models

import "time"

// LoginHistory is an append-only record of a login-related interaction
type LoginHistory struct {
	ID                  int64     `json:"id"`
	UserInteractionID   int       `json:"userInteractionId"`
	UserID              int64     `json:"userId"`
	Timestamp           time.Time `json:"timeStamp"`
	DetailedDescription string    `json:"detailedDescription"`
	Browser             string    `json:"browser"`
	OS                  string    `json:"os"`
	Device              string    `json:"device"`
	IPAddress           string    `json:"ipAddress"`
	CorrelationID       string    `json:"correlationId"`
}

// Interaction types recorded in login history
const (
	InteractionLogin  = 1
	InteractionLogout = 2
)

// DeviceInfo is the parsed form of a user-agent string
type DeviceInfo struct {
	Browser     string
	OS          string
	Device      string
	Description string
}

// ClientContext is what the transport knows about the caller of a request
type ClientContext struct {
	IPAddress     string
	UserAgent     string
	CorrelationID string
}
