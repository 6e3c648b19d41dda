package domain

const (
	ImageMIMEType = "image/jpeg"
	VideoMIMEType = "video/mp4"
)

// GenerationRequest is built when Generate is invoked and consumed once.
type GenerationRequest struct {
	Prompt      string
	AspectRatio AspectRatio
}

// GeneratedImage is the encoded image returned by the backend.
type GeneratedImage struct {
	Data     []byte
	MIMEType string
}

// GeneratedVideo is the encoded video produced by a finished AnimationJob. Key
// is set once the bytes are stored somewhere addressable for playback.
type GeneratedVideo struct {
	Data      []byte
	MIMEType  string
	SourceURI string
	Key       string
}

type JobState string

const (
	JobSubmitted JobState = "submitted"
	JobPending   JobState = "pending"
	JobDone      JobState = "done"
	JobFailed    JobState = "failed"
)

// AnimationJob describes a long-running video operation as seen by the poll
// loop.
type AnimationJob struct {
	Name   string   `json:"name"`
	State  JobState `json:"state"`
	Checks int      `json:"checks"`
}

// JobObserver receives the animation job state after submission and after
// every status check. It may be nil.
type JobObserver func(AnimationJob)

func (j AnimationJob) Terminal() bool {
	return j.State == JobDone || j.State == JobFailed
}
