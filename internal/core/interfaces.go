package core

import (
	"context"

	"github.com/vitalia/teleconsulta/internal/domain"
)

// Frame is a serialized outbound message.
type Frame []byte

type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// ChannelSession is the per-connection metadata recorded on join and
// replaced wholesale on rejoin. It dies with the connection.
type ChannelSession struct {
	RoomID    domain.RoomID
	Role      string
	PatientID string
}

// StreamConfig describes the audio format for a recognition stream.
type StreamConfig struct {
	SampleRate int
	Language   string
}

// StreamCallbacks receives recognition output. OnResult fires for every
// partial and final segment; OnError fires at most once, for failures that
// end the stream abnormally. A stream closed by its context is not an error.
type StreamCallbacks struct {
	OnResult func(text string, isPartial bool)
	OnError  func(err error)
}

// Transcriber opens streaming speech-to-text sessions against a provider.
// Audio chunks are consumed from the channel in order; a nil chunk or
// context cancellation makes the provider observe end-of-stream and finish
// its receive loop normally.
type Transcriber interface {
	StartStream(ctx context.Context, cfg StreamConfig, audio <-chan []byte, cb StreamCallbacks)
}

// AgentInvoker runs one inference round against the clinical agent and
// returns its raw textual answer.
type AgentInvoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// HistoryProvider looks up a patient's prior-history summary. Unknown ids
// yield a generic fallback record, never an error.
type HistoryProvider interface {
	Lookup(patientID string) domain.PatientHistorySummary
}

// MeetingProvider wraps the external conferencing service.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, externalID string) (domain.CreateMeetingResult, error)
	GetMeeting(meetingID string) (domain.MeetingInfo, bool)
	CreateAttendee(ctx context.Context, meetingID, externalUserID string) (domain.AttendeeInfo, error)
	DeleteMeeting(ctx context.Context, meetingID string) error
}
