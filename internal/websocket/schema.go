package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPresence   Action = "presence"
	ActionFullscreen Action = "fullscreen"
	ActionVisibility Action = "visibility"
	ActionStart      Action = "start"
	ActionAnswer     Action = "answer"
	ActionNext       Action = "next"
	ActionPrevious   Action = "previous"
	ActionSubmit     Action = "submit"
	ActionPing       Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// PresenceRequest carries one client-side face detection observation.
// Failure is empty when a face is visible, otherwise one of
// "device-unavailable", "model-load-failed" or "detection-failed".
type PresenceRequest struct {
	Action  Action `json:"action"`
	Present bool   `json:"present"`
	Failure string `json:"failure,omitempty"`
}

// FullscreenRequest reports the host's fullscreen state. The client must
// enter fullscreen from a user gesture before sending start.
type FullscreenRequest struct {
	Action Action `json:"action"`
	Active bool   `json:"active"`
}

// VisibilityRequest reports whether the exam tab is in the foreground.
type VisibilityRequest struct {
	Action  Action `json:"action"`
	Visible bool   `json:"visible"`
}

// StartRequest moves the session from camera setup into the exam.
type StartRequest struct {
	Action Action `json:"action"`
}

// AnswerRequest selects an option for the current question.
type AnswerRequest struct {
	Action Action `json:"action"`
	Option string `json:"option"`
}

// NavRequest covers next and previous.
type NavRequest struct {
	Action Action `json:"action"`
}

// SubmitRequest finishes the exam from the last question.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState      Event = "state"
	EventRelease    Event = "release"
	EventGraded     Event = "graded"
	EventTerminated Event = "terminated"
	EventError      Event = "error"
	EventPong       Event = "pong"
)

// StateResponse pushes the full session snapshot. Each push is complete
// on its own so the client never has to replay intermediate states.
type StateResponse struct {
	Event    Event       `json:"event"`
	Snapshot interface{} `json:"snapshot"`
}

// ReleaseResponse asks the host to exit fullscreen and stop the camera.
type ReleaseResponse struct {
	Event Event `json:"event"`
}

// GradedScore is one per-group result line.
type GradedScore struct {
	GroupID string `json:"group_id"`
	Total   int    `json:"total"`
	Correct int    `json:"correct"`
}

// GradedResponse is sent once after a completed submission.
type GradedResponse struct {
	Event  Event         `json:"event"`
	Status string        `json:"status"`
	Scores []GradedScore `json:"scores"`
}

// TerminatedResponse is sent once when a guard or the presence grace
// window ends the session.
type TerminatedResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
