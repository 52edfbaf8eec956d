package models

import "time"

// LogMessage represents a syslog datagram after the receiver has parsed
// the routing fields and rendered the output line.
type LogMessage struct {
	// Basic information
	ReceivedAt time.Time `json:"received_at"` // When the datagram arrived

	// Source information
	Host    string `json:"host"`    // Hostname as supplied by the sender
	Program string `json:"program"` // Program name from the syslog tag

	// Routing information
	Context  string `json:"context"`  // Context named by the message body, "" when none
	Facility int    `json:"facility"` // Syslog facility code
	Severity int    `json:"severity"` // Syslog severity code

	// Line is the fully rendered output line without the trailing
	// newline. This is the byte string handed to the output writers.
	Line string `json:"line"`
}
