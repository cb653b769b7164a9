package models

import "time"

// Severity represents how urgent an alert is
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is raised when a current or forecast value crosses a threshold
type Alert struct {
	Severity  Severity  `json:"severity"`
	Metric    Metric    `json:"resource"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Predicted bool      `json:"predicted"`
	StepsAway int       `json:"steps_away,omitempty"` // forecast step that crossed, 1-based
	RaisedAt  time.Time `json:"timestamp"`
}
