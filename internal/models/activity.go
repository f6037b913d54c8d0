package models

// ActivityType identifies the kind of an activity item.
type ActivityType string

const (
	ActivityBuilderRegistered ActivityType = "builder_registered"
	ActivityExecutionCreated  ActivityType = "execution_created"
	ActivityLog               ActivityType = "log"
)

// ActivityItem is a log-like event record shown in the activity feed.
// Optional fields are populated according to Type.
type ActivityItem struct {
	Type        ActivityType `json:"type"`
	Timestamp   float64      `json:"timestamp"`
	Name        string       `json:"name,omitempty"`
	BuilderID   string       `json:"builder_id,omitempty"`
	ExecutionID string       `json:"execution_id,omitempty"`
	Message     string       `json:"message,omitempty"`
}
