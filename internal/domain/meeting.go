package domain

// MediaPlacement carries the conferencing endpoints a client needs to join.
type MediaPlacement struct {
	AudioHostURL     string `json:"audioHostUrl"`
	AudioFallbackURL string `json:"audioFallbackUrl"`
	SignalingURL     string `json:"signalingUrl"`
	TurnControlURL   string `json:"turnControlUrl"`
}

// MeetingInfo is the session descriptor returned by the conferencing
// provider and cached for later joiners.
type MeetingInfo struct {
	MeetingID      string         `json:"meetingId"`
	MediaPlacement MediaPlacement `json:"mediaPlacement"`
	MediaRegion    string         `json:"mediaRegion"`
}

// AttendeeInfo is a per-participant join credential.
type AttendeeInfo struct {
	AttendeeID     string `json:"attendeeId"`
	JoinToken      string `json:"joinToken"`
	ExternalUserID string `json:"externalUserId,omitempty"`
}

// CreateMeetingResult pairs the descriptor with the ids the frontend uses.
type CreateMeetingResult struct {
	Meeting           MeetingInfo `json:"meeting"`
	MeetingID         string      `json:"meetingId"`
	ExternalMeetingID string      `json:"externalMeetingId"`
}
