package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Keys of the shared record. Settings keys hold the JSON encoding of the
// corresponding preference value; coordination keys hold JSON documents.
const (
	KeyDisableMic        = "disableMic"
	KeyDisableVideo      = "disableVideo"
	KeyAutoJoin          = "autoJoin"
	KeyCountdownDuration = "countdownDuration"
	KeyAnnounceInterval  = "ttsAnnouncementInterval"
	KeyPendingMeeting    = "pendingMeeting"
	KeyMeetingOutcome    = "meetingOutcome"
	KeyAutoJoinOverride  = "autoJoinOverride"
)

// Sources of a pending meeting request.
const (
	SourceTab = "tab" // an ordinary browser tab landed on a meeting URL
	SourcePWA = "pwa" // the installed app itself navigated to a meeting
	SourceAPI = "api" // an open request arrived over the REST API
)

// PendingMeeting is the cross-target handoff record. A zero value means no
// meeting is pending; resets write the zero value rather than deleting the
// key, so watchers can tell a reset apart from a missing record.
type PendingMeeting struct {
	// ID identifies one handoff. WritePendingMeeting stamps a fresh one on
	// every publish, and outcome records echo it, so a response to an older
	// handoff can never be mistaken for a response to the current one.
	ID string `json:"id"`
	// Target is the normalized meeting URL the installed app should open.
	Target string `json:"target"`
	// OriginTab identifies the browser target that requested the redirect,
	// empty when the request did not come from an ordinary tab.
	OriginTab string `json:"originTab"`
	Source    string `json:"source"`
}

// IsZero reports whether no meeting is pending.
func (p PendingMeeting) IsZero() bool { return p == PendingMeeting{} }

// MeetingOutcome carries the installed app's responses back to the
// originating tab. Timestamps are unix milliseconds; zero means the event has
// not happened for the current pending meeting.
type MeetingOutcome struct {
	// PendingID names the handoff this outcome responds to.
	PendingID string `json:"pendingId"`
	// CloseRequestedAt is set once the app has taken over the meeting and the
	// originating tab may close itself.
	CloseRequestedAt int64 `json:"closeRequestedAt"`
	// DeclinedAt is set when the user dismissed the switch prompt, telling
	// the originating tab to drop its redirect notice.
	DeclinedAt int64 `json:"declinedAt"`
}

// IsZero reports whether neither response has been recorded.
func (o MeetingOutcome) IsZero() bool { return o == MeetingOutcome{} }

func readRecord(ctx context.Context, s Store, key string, out any) error {
	values, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	raw, ok := values[key]
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("malformed %s record: %w", key, err)
	}
	return nil
}

func writeRecord(ctx context.Context, s Store, key string, in any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return s.Set(ctx, map[string]string{key: string(raw)})
}

// ReadPendingMeeting returns the pending meeting record, or the zero value
// when none has ever been written.
func ReadPendingMeeting(ctx context.Context, s Store) (PendingMeeting, error) {
	var p PendingMeeting
	err := readRecord(ctx, s, KeyPendingMeeting, &p)
	return p, err
}

// WritePendingMeeting stamps a fresh handoff ID on the record, clears any
// previous outcome and publishes the pending meeting, so stale close requests
// never apply to the new handoff.
func WritePendingMeeting(ctx context.Context, s Store, p PendingMeeting) error {
	p.ID = uuid.NewString()
	if err := writeRecord(ctx, s, KeyMeetingOutcome, MeetingOutcome{}); err != nil {
		return err
	}
	return writeRecord(ctx, s, KeyPendingMeeting, p)
}

// ResetPendingMeeting overwrites the record with the zero value.
func ResetPendingMeeting(ctx context.Context, s Store) error {
	return writeRecord(ctx, s, KeyPendingMeeting, PendingMeeting{})
}

// DecodePendingMeeting parses the raw store value carried by a Change. An
// empty value decodes to the zero record.
func DecodePendingMeeting(raw string) (PendingMeeting, error) {
	var p PendingMeeting
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return PendingMeeting{}, fmt.Errorf("malformed %s record: %w", KeyPendingMeeting, err)
	}
	return p, nil
}

// ReadMeetingOutcome returns the current outcome record, or the zero value
// when none has ever been written.
func ReadMeetingOutcome(ctx context.Context, s Store) (MeetingOutcome, error) {
	var o MeetingOutcome
	err := readRecord(ctx, s, KeyMeetingOutcome, &o)
	return o, err
}

// RequestTabClose records that the originating tab may close itself. Any
// recorded response to a different handoff is discarded rather than merged.
func RequestTabClose(ctx context.Context, s Store, pendingID string, unixMilli int64) error {
	o, err := ReadMeetingOutcome(ctx, s)
	if err != nil {
		return err
	}
	if o.PendingID != pendingID {
		o = MeetingOutcome{PendingID: pendingID}
	}
	o.CloseRequestedAt = unixMilli
	return writeRecord(ctx, s, KeyMeetingOutcome, o)
}

// MarkDeclined records that the user dismissed the switch prompt.
func MarkDeclined(ctx context.Context, s Store, pendingID string, unixMilli int64) error {
	o, err := ReadMeetingOutcome(ctx, s)
	if err != nil {
		return err
	}
	if o.PendingID != pendingID {
		o = MeetingOutcome{PendingID: pendingID}
	}
	o.DeclinedAt = unixMilli
	return writeRecord(ctx, s, KeyMeetingOutcome, o)
}

// DecodeMeetingOutcome parses the raw store value carried by a Change.
func DecodeMeetingOutcome(raw string) (MeetingOutcome, error) {
	var o MeetingOutcome
	if raw == "" {
		return o, nil
	}
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return MeetingOutcome{}, fmt.Errorf("malformed %s record: %w", KeyMeetingOutcome, err)
	}
	return o, nil
}

// ReadAutoJoinOverride reports whether a one-shot join override is armed.
func ReadAutoJoinOverride(ctx context.Context, s Store) (bool, error) {
	var v bool
	err := readRecord(ctx, s, KeyAutoJoinOverride, &v)
	return v, err
}

// SetAutoJoinOverride arms or clears the one-shot join override. Consumers
// clear it as soon as they act on it.
func SetAutoJoinOverride(ctx context.Context, s Store, armed bool) error {
	return writeRecord(ctx, s, KeyAutoJoinOverride, armed)
}
