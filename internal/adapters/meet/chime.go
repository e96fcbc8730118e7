// Package meet adapts the Amazon Chime SDK Meetings service to the
// core.MeetingProvider interface. The frontend joins with the returned
// descriptors and credentials; no media touches this process.
package meet

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/domain"
)

type Service struct {
	client *chimesdkmeetings.Client
	region string

	mu       sync.RWMutex
	meetings map[string]domain.MeetingInfo
}

func New(cfg aws.Config) *Service {
	return &Service{
		client:   chimesdkmeetings.NewFromConfig(cfg),
		region:   cfg.Region,
		meetings: make(map[string]domain.MeetingInfo),
	}
}

// CreateMeeting creates a remote meeting and caches its descriptor so later
// joiners can fetch it by id. An empty externalID gets a generated one.
func (s *Service) CreateMeeting(ctx context.Context, externalID string) (domain.CreateMeetingResult, error) {
	if externalID == "" {
		externalID = "video-consulta-" + uuid.NewString()
	}
	out, err := s.client.CreateMeeting(ctx, &chimesdkmeetings.CreateMeetingInput{
		ClientRequestToken: aws.String(uuid.NewString()),
		ExternalMeetingId:  aws.String(externalID),
		MediaRegion:        aws.String(s.region),
	})
	if err != nil {
		return domain.CreateMeetingResult{}, fmt.Errorf("create meeting: %w", err)
	}
	meeting := out.Meeting
	if meeting == nil || meeting.MeetingId == nil || meeting.MediaPlacement == nil {
		return domain.CreateMeetingResult{}, fmt.Errorf("create meeting: provider returned incomplete response")
	}

	info := domain.MeetingInfo{
		MeetingID: aws.ToString(meeting.MeetingId),
		MediaPlacement: domain.MediaPlacement{
			AudioHostURL:     aws.ToString(meeting.MediaPlacement.AudioHostUrl),
			AudioFallbackURL: aws.ToString(meeting.MediaPlacement.AudioFallbackUrl),
			SignalingURL:     aws.ToString(meeting.MediaPlacement.SignalingUrl),
			TurnControlURL:   aws.ToString(meeting.MediaPlacement.TurnControlUrl),
		},
		MediaRegion: aws.ToString(meeting.MediaRegion),
	}
	if info.MediaRegion == "" {
		info.MediaRegion = s.region
	}

	s.mu.Lock()
	s.meetings[info.MeetingID] = info
	s.mu.Unlock()
	log.Info().Str("module", "adapters.meet").Str("meeting_id", info.MeetingID).Str("external_id", externalID).Msg("meeting created")

	return domain.CreateMeetingResult{
		Meeting:           info,
		MeetingID:         info.MeetingID,
		ExternalMeetingID: externalID,
	}, nil
}

// GetMeeting returns a cached descriptor; absent means unknown or expired.
func (s *Service) GetMeeting(meetingID string) (domain.MeetingInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.meetings[meetingID]
	return info, ok
}

func (s *Service) CreateAttendee(ctx context.Context, meetingID, externalUserID string) (domain.AttendeeInfo, error) {
	out, err := s.client.CreateAttendee(ctx, &chimesdkmeetings.CreateAttendeeInput{
		MeetingId:      aws.String(meetingID),
		ExternalUserId: aws.String(externalUserID),
	})
	if err != nil {
		return domain.AttendeeInfo{}, fmt.Errorf("create attendee: %w", err)
	}
	att := out.Attendee
	if att == nil || att.AttendeeId == nil || att.JoinToken == nil {
		return domain.AttendeeInfo{}, fmt.Errorf("create attendee: provider returned incomplete response")
	}
	return domain.AttendeeInfo{
		AttendeeID:     aws.ToString(att.AttendeeId),
		JoinToken:      aws.ToString(att.JoinToken),
		ExternalUserID: externalUserID,
	}, nil
}

func (s *Service) DeleteMeeting(ctx context.Context, meetingID string) error {
	if _, err := s.client.DeleteMeeting(ctx, &chimesdkmeetings.DeleteMeetingInput{
		MeetingId: aws.String(meetingID),
	}); err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	s.mu.Lock()
	delete(s.meetings, meetingID)
	s.mu.Unlock()
	log.Info().Str("module", "adapters.meet").Str("meeting_id", meetingID).Msg("meeting deleted")
	return nil
}
