// Package bedrock adapts the Bedrock agent runtime to core.AgentInvoker and
// maps its error surface onto the core taxonomy.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vitalia/teleconsulta/internal/core"
)

type Invoker struct {
	client       *bedrockagentruntime.Client
	agentID      string
	agentAliasID string
}

func New(cfg aws.Config, agentID, agentAliasID string) *Invoker {
	return &Invoker{
		client:       bedrockagentruntime.NewFromConfig(cfg),
		agentID:      agentID,
		agentAliasID: agentAliasID,
	}
}

// Invoke runs the agent and concatenates its completion chunks. Returns
// core.ErrAgentNotConfigured when no agent id is set.
func (i *Invoker) Invoke(ctx context.Context, prompt string) (string, error) {
	if i.agentID == "" {
		return "", core.ErrAgentNotConfigured
	}

	sessionID := "session-" + uuid.NewString()
	out, err := i.client.InvokeAgent(ctx, &bedrockagentruntime.InvokeAgentInput{
		AgentId:      aws.String(i.agentID),
		AgentAliasId: aws.String(i.agentAliasID),
		SessionId:    aws.String(sessionID),
		InputText:    aws.String(prompt),
	})
	if err != nil {
		return "", classify(err)
	}

	var b strings.Builder
	stream := out.GetStream()
	defer stream.Close()
	for event := range stream.Events() {
		if chunk, ok := event.(*types.ResponseStreamMemberChunk); ok {
			b.Write(chunk.Value.Bytes)
		}
	}
	if err := stream.Err(); err != nil {
		return "", classify(err)
	}
	log.Debug().Str("module", "adapters.bedrock").Str("session_id", sessionID).Int("bytes", b.Len()).Msg("agent completion received")
	return b.String(), nil
}

// classify maps provider errors onto the core taxonomy; anything
// unrecognized passes through as a transient failure.
func classify(err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", core.ErrUpstreamNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
		return fmt.Errorf("%w: %v", core.ErrUpstreamNotFound, err)
	}
	return err
}
