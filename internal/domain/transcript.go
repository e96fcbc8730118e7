package domain

type RoomID string

// Participant labels one side of the consultation.
type Participant string

const (
	ParticipantClinician Participant = "medico"
	ParticipantPatient   Participant = "paciente"
)

// TranscriptSegment is one unit of recognized speech. Partial segments may
// be superseded by later segments for the same utterance but are never
// mutated; receivers apply replace-by-recency.
type TranscriptSegment struct {
	Text        string      `json:"text"`
	IsPartial   bool        `json:"isPartial"`
	Participant Participant `json:"participant,omitempty"`
	Timestamp   int64       `json:"timestamp,omitempty"`
}
