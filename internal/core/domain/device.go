package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivationState mirrors the push activation state machine of the device.
type ActivationState string

const (
	ActivationNotActivated           ActivationState = "not_activated"
	ActivationWaitingForRegistration ActivationState = "waiting_for_registration"
	ActivationActivated              ActivationState = "activated"
	ActivationDeactivated            ActivationState = "deactivated"
)

// Device is the local push target registered with the backend.
type Device struct {
	ID                uuid.UUID
	ClientID          string
	RegistrationToken *string // Encrypted at rest
	ActivationState   ActivationState
	UpdatedAt         time.Time
}

// IsActivated reports whether the device can currently receive pushes.
func (d *Device) IsActivated() bool {
	return d != nil && d.ActivationState == ActivationActivated && d.RegistrationToken != nil
}

// SubscriptionType records how the device is subscribed to push on a channel.
type SubscriptionType string

const (
	SubscriptionNone     SubscriptionType = "none"
	SubscriptionDevice   SubscriptionType = "device"
	SubscriptionClientID SubscriptionType = "client"
)
