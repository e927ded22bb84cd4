// Package observer carries best-effort progress events out of a research run.
// Delivery is fire-and-forget: the pipeline never blocks on, or fails
// because of, a slow or absent observer.
package observer

// StatusEvent is one progress notification for a job.
type StatusEvent struct {
	JobID   string         `json:"job_id"`
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Payload map[string]any `json:"result,omitempty"`
}

// Statuses emitted by the pipeline.
const (
	StatusProcessing  = "processing"
	StatusReportChunk = "report_chunk"
	StatusFailed      = "failed"
	StatusCompleted   = "completed"
)

// Notifier is a write-only sink for status events. A nil Notifier is legal
// and means nobody is watching.
type Notifier interface {
	Notify(event StatusEvent)
}

// Notify sends an event through n if one is attached. The nil check lives
// here so call sites stay one line.
func Notify(n Notifier, event StatusEvent) {
	if n == nil {
		return
	}
	n.Notify(event)
}
