package handlers

import (
	"PushProbe/internal/bot"
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/probe"
	"context"
	"fmt"
)

// action is one console operation exposed as a bot command.
type action struct {
	command     string
	description string
	run         func(ctx context.Context, c *probe.Console) (string, error)
}

// simple wraps a console method that only reports success.
func simple(fn func(*probe.Console, context.Context) error, done string) func(context.Context, *probe.Console) (string, error) {
	return func(ctx context.Context, c *probe.Console) (string, error) {
		if err := fn(c, ctx); err != nil {
			return "", err
		}
		return done, nil
	}
}

var actions = []action{
	{"activate", "Activate push and wait for confirmation",
		simple((*probe.Console).ActivatePush, "Push activated")},
	{"deactivate", "Deactivate push and wait for confirmation",
		simple((*probe.Console).DeactivatePush, "Push deactivated")},
	{"realtime_subscribe", "Attach to the current channel",
		simple((*probe.Console).RealtimeSubscribe, "Channel attached")},
	{"realtime_publish", "Publish a realtime message on the current channel",
		simple((*probe.Console).RealtimePublish, "Realtime message published")},
	{"push_subscribe", "Subscribe this device to push on the current channel",
		simple((*probe.Console).PushSubscribe, "Device subscribed")},
	{"push_unsubscribe", "Unsubscribe this device from the current channel",
		simple((*probe.Console).PushUnsubscribe, "Device unsubscribed")},
	{"push_subscribe_client", "Subscribe the client id to push on the current channel",
		simple((*probe.Console).PushSubscribeClient, "Client subscribed")},
	{"push_unsubscribe_client", "Unsubscribe the client id from the current channel",
		simple((*probe.Console).PushUnsubscribeClient, "Client unsubscribed")},
	{"push_publish_data", "Publish a data push on the current channel",
		simple((*probe.Console).PushPublishData, "Data push published")},
	{"push_publish_notif", "Publish a notification push on the current channel",
		simple((*probe.Console).PushPublishNotification, "Notification push published")},
	{"push_publish_notif_bg", "Publish a notification push after a delay",
		simple((*probe.Console).PushPublishNotificationBackground, "Notification push scheduled")},
	{"push_direct_data", "Push data directly to this device",
		simple((*probe.Console).PushDirectData, "Direct data push sent")},
	{"push_direct_notif", "Push a notification directly to this device",
		simple((*probe.Console).PushDirectNotification, "Direct notification push sent")},
	{"push_direct_notif_bg", "Push a notification directly to this device after a delay",
		simple((*probe.Console).PushDirectNotificationBackground, "Direct notification push scheduled")},
	{"push_direct_data_client", "Push data directly to this client id",
		simple((*probe.Console).PushDirectDataClient, "Direct data push to client sent")},
	{"local_device", "Show the local device", showLocalDevice},
	{"reset_local_device", "Discard the local device",
		simple((*probe.Console).ResetLocalDevice, "Local device reset")},
	{"activation_state", "Show the activation state", showActivationState},
	{"reset_activation_state", "Forget the device registration",
		simple((*probe.Console).ResetActivationState, "Activation state reset")},
	{"new_run", "Start a new run id and channel", newRun},
}

func showLocalDevice(ctx context.Context, c *probe.Console) (string, error) {
	device, err := c.LocalDevice(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Device %s\nclient id: %s\nstate: %s\nregistered: %t",
		device.ID, device.ClientID, device.ActivationState, device.RegistrationToken != nil), nil
}

func showActivationState(ctx context.Context, c *probe.Console) (string, error) {
	state, err := c.ActivationState(ctx)
	if err != nil {
		return "", err
	}
	return "Activation state: " + string(state), nil
}

func newRun(ctx context.Context, c *probe.Console) (string, error) {
	runID := c.NewRun()
	return fmt.Sprintf("Run id: %s\nChannel: %s", runID, domain.ChannelName(runID)), nil
}

func init() {
	bot.RegisterCommand(NewStartHandler)
	bot.RegisterCommand(NewHelpHandler)
	bot.RegisterCommand(NewRunTestsHandler)
	for _, a := range actions {
		bot.RegisterCommand(newActionConstructor(a))
	}
}
