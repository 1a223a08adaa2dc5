package catalog

import "time"

// Status represents the lifecycle state of a generation run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	// StatusFailed marks runs that broke inside the pipeline or an external tool.
	StatusFailed Status = "failed"
	// StatusRejected marks runs refused because of bad input or configuration.
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether the run can no longer change state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRejected:
		return true
	default:
		return false
	}
}

// Run is a persisted generation request.
type Run struct {
	ID            int64
	RequestID     string
	Mode          string
	ReferencePath string
	DriverPath    string
	OutputPath    string
	Status        Status
	ErrorKind     string
	ErrorMessage  string
	Width         int
	Height        int
	Frames        int
	FPS           float64
	Seed          int64
	CFG           float64
	Steps         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Template is a pose template written by `pose extract`.
type Template struct {
	ID          int64
	Path        string
	SourceVideo string
	Frames      int
	FPS         float64
	CreatedAt   time.Time
}
