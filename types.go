package printwatch

import "time"

// Event types recorded in the history log.
const (
	EventStatusChange = "STATUS_CHANGE"
	EventPrintStarted = "PRINT_STARTED"
	EventUpload       = "UPLOAD"
	EventConnection   = "CONNECTION"
	EventError        = "ERROR"
)

// PrintEvent is a single history log entry.
type PrintEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // STATUS_CHANGE | PRINT_STARTED | UPLOAD | CONNECTION | ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

// PrintJob is an uploaded G-code file known to the service, together with the
// slicer metadata scraped from it. StartedAt is zero until a print of this job
// is started.
type PrintJob struct {
	JobID            string    `json:"job_id"`
	Filename         string    `json:"filename"`
	SizeBytes        int64     `json:"size_bytes"`
	EstimatedSeconds int       `json:"estimated_seconds"`
	FilamentGrams    float64   `json:"filament_grams,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
	StartedAt        time.Time `json:"started_at,omitempty"`
}

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don’t expose hash
}
