package domain

import (
	"errors"

	"github.com/google/uuid"
)

// Notification is the user-visible part of a push message.
type Notification struct {
	Title string
	Body  string
}

// PushMessage is what gets handed to the push backend.
type PushMessage struct {
	Data         Payload
	Notification *Notification
}

// RunID returns the run id tagged in the message data, if any.
func (m PushMessage) RunID() string {
	return m.Data[RunIDField]
}

// Recipient addresses a direct push. Exactly one field is set.
type Recipient struct {
	DeviceID uuid.UUID
	ClientID string
}

// Validate checks that exactly one addressing mode is used.
func (r Recipient) Validate() error {
	hasDevice := r.DeviceID != uuid.Nil
	hasClient := r.ClientID != ""
	if hasDevice == hasClient {
		return errors.New("recipient must name exactly one of deviceId or clientId")
	}
	return nil
}

// ChannelName returns the push test channel for a run.
func ChannelName(runID string) string {
	return "push:test_push_channel_" + runID
}
