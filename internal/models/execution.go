package models

// ExecutionStatus is the lifecycle state of an execution.
type ExecutionStatus string

const (
	ExecutionStatusQueued    ExecutionStatus = "queued"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusSucceeded ExecutionStatus = "succeeded"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Execution is one invocation of a builder.
type Execution struct {
	ID        string          `json:"id"`
	BuilderID string          `json:"builder_id"`
	Status    ExecutionStatus `json:"status"`
	CreatedAt float64         `json:"created_at"`
	UpdatedAt float64         `json:"updated_at"`
	Logs      []string        `json:"logs"`
	Metadata  map[string]any  `json:"metadata"`
}

// Clone returns a deep-enough copy for handing out of a store: the log slice and
// metadata map are not shared with the receiver.
func (e *Execution) Clone() *Execution {
	c := *e
	c.Logs = append([]string(nil), e.Logs...)
	if c.Logs == nil {
		c.Logs = []string{}
	}
	c.Metadata = make(map[string]any, len(e.Metadata))
	for k, v := range e.Metadata {
		c.Metadata[k] = v
	}
	return &c
}
