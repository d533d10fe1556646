// Package event implements the internal event system of the automeet daemon.
// Components publish what happened (a target attached, a redirect was
// performed, an utterance was requested) and any other component, such as the
// speech service or the API event stream, can subscribe without the publisher
// knowing about it.
package event

// Type represents the different event types emitted by the daemon.
type Type string

const (
	// TargetAttached is emitted when the supervisor attaches an agent to a
	// Google Meet page target.
	TargetAttached Type = "targetAttached"
	// TargetDetached is emitted when an attached target goes away.
	TargetDetached Type = "targetDetached"
	// RedirectPerformed is emitted after the PWA navigated to a pending
	// meeting.
	RedirectPerformed Type = "redirectPerformed"
	// MeetingJoined is emitted after the auto-joiner clicked a join control.
	MeetingJoined Type = "meetingJoined"
	// CountdownCancelled is emitted when a running auto-join countdown was
	// cancelled before it elapsed.
	CountdownCancelled Type = "countdownCancelled"
	// SpeakRequested carries a speech.Request-shaped payload for the TTS
	// relay.
	SpeakRequested Type = "speakRequested"
	// Exit is emitted when the daemon is about to shut down.
	Exit Type = "exit"
)

// Event is a single daemon event with an optional payload.
type Event struct {
	Type Type
	Data any
}

// TargetData is the payload of target-scoped events: attachments, redirects,
// joins and countdown cancellations.
type TargetData struct {
	// TargetID identifies the browser target the event happened on.
	TargetID string `json:"targetId"`
	// Code is the meeting code involved, when known.
	Code string `json:"code,omitempty"`
	// URL is the destination of a performed redirect.
	URL string `json:"url,omitempty"`
}
