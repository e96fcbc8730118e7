// Package transcribe adapts Amazon Transcribe streaming to the
// core.Transcriber interface: a push-fed audio channel on one side, the
// provider's bidirectional event stream on the other.
package transcribe

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"
	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/core"
)

type Service struct {
	client *transcribestreaming.Client
}

func New(cfg aws.Config) *Service {
	return &Service{client: transcribestreaming.NewFromConfig(cfg)}
}

// StartStream opens a provider stream and returns immediately; results and
// errors flow through the callbacks until the audio channel yields nil or
// the context ends.
func (s *Service) StartStream(ctx context.Context, cfg core.StreamConfig, audio <-chan []byte, cb core.StreamCallbacks) {
	go s.run(ctx, cfg, audio, cb)
}

func (s *Service) run(ctx context.Context, cfg core.StreamConfig, audio <-chan []byte, cb core.StreamCallbacks) {
	out, err := s.client.StartStreamTranscription(ctx, &transcribestreaming.StartStreamTranscriptionInput{
		LanguageCode:         types.LanguageCode(cfg.Language),
		MediaEncoding:        types.MediaEncodingPcm,
		MediaSampleRateHertz: aws.Int32(int32(cfg.SampleRate)),
	})
	if err != nil {
		if ctx.Err() == nil && cb.OnError != nil {
			cb.OnError(err)
		}
		return
	}

	stream := out.GetStream()
	go s.pumpAudio(ctx, stream, audio)

	for event := range stream.Events() {
		te, ok := event.(*types.TranscriptResultStreamMemberTranscriptEvent)
		if !ok || te.Value.Transcript == nil {
			continue
		}
		for _, result := range te.Value.Transcript.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			text := aws.ToString(result.Alternatives[0].Transcript)
			if text == "" {
				continue
			}
			if cb.OnResult != nil {
				cb.OnResult(text, result.IsPartial)
			}
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Str("module", "adapters.transcribe").Msg("transcript stream failed")
		if cb.OnError != nil {
			cb.OnError(err)
		}
	}
}

// pumpAudio forwards chunks to the provider in receipt order. A nil chunk
// or context end terminates with an empty audio event so the provider
// finishes the stream normally. Zero-length chunks are connection
// keep-alives and are not forwarded.
func (s *Service) pumpAudio(ctx context.Context, stream *transcribestreaming.StartStreamTranscriptionEventStream, audio <-chan []byte) {
	defer func() {
		if err := stream.Close(); err != nil {
			log.Debug().Err(err).Str("module", "adapters.transcribe").Msg("stream close")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.sendChunk(stream, nil)
			return
		case chunk := <-audio:
			if chunk == nil {
				s.sendChunk(stream, nil)
				return
			}
			if len(chunk) == 0 {
				continue
			}
			if err := s.sendChunk(stream, chunk); err != nil {
				return
			}
		}
	}
}

func (s *Service) sendChunk(stream *transcribestreaming.StartStreamTranscriptionEventStream, chunk []byte) error {
	// The terminating send runs after ctx is already cancelled.
	err := stream.Send(context.Background(), &types.AudioStreamMemberAudioEvent{
		Value: types.AudioEvent{AudioChunk: chunk},
	})
	if err != nil {
		log.Debug().Err(err).Str("module", "adapters.transcribe").Msg("audio send")
	}
	return err
}
