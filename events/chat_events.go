package events

import (
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/barachat/domain/chat"
)

// MessageBroadcastEvent is emitted by the gateway after an envelope has been
// fanned out to a room. Consumers append it to the message store.
type MessageBroadcastEvent struct {
	MessageID string        `json:"message_id"`
	Envelope  chat.Envelope `json:"envelope"`
}

// MessageBroadcastV1 is the event definition for broadcast envelopes.
var MessageBroadcastV1 = helper.EventDefinition[MessageBroadcastEvent](
	"gateway",
	"MessageBroadcast",
	"v1",
)
