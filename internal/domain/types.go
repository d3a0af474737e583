package domain

import "time"

// Entry is one confirmed sample label recorded against a box coordinate.
type Entry struct {
	Coordinate  string    `json:"coordinate"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type MediaKind int

const (
	MediaImage MediaKind = iota
	MediaVideoFrame
	MediaVideo
)

func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideoFrame:
		return "video_frame"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Media is an uploaded image or video held in memory for a single request.
type Media struct {
	Name     string
	MIMEType string
	Kind     MediaKind
	Data     []byte
}

// Observation is the OCR outcome for one uploaded image or frame. It lives
// only for the duration of a recognition request.
type Observation struct {
	SourceIndex int    `json:"source_index"`
	RawText     string `json:"raw_text"`
	Text        string `json:"text"`
	HasText     bool   `json:"has_text"`
}

type CallOutcome string

const (
	OutcomeText    CallOutcome = "text"
	OutcomeNoText  CallOutcome = "no_text"
	OutcomeError   CallOutcome = "error"
	OutcomeTimeout CallOutcome = "timeout"
)

// AnnotationCall is the call-log record of one annotation request. It holds
// metadata only; recognized text is never stored.
type AnnotationCall struct {
	ID        int64         `json:"id"`
	Backend   string        `json:"backend"`
	MediaKind string        `json:"media_kind"`
	Bytes     int           `json:"bytes"`
	Outcome   CallOutcome   `json:"outcome"`
	Fragments int           `json:"fragments"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// BackendStats aggregates the call log for one annotation backend.
type BackendStats struct {
	Backend     string        `json:"backend"`
	Calls       int           `json:"calls"`
	WithText    int           `json:"with_text"`
	NoText      int           `json:"no_text"`
	Errors      int           `json:"errors"`
	Timeouts    int           `json:"timeouts"`
	AvgDuration time.Duration `json:"avg_duration_ns"`
	LastCallAt  time.Time     `json:"last_call_at"`
}
