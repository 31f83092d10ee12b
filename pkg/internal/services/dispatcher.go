package services

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/windbell/chime/pkg/internal/models"
	"github.com/windbell/chime/pkg/internal/providers"
)

type MembershipLookup interface {
	FindRoomMembers(ctx context.Context, roomId string) ([]models.Membership, error)
}

type DestinationLookup interface {
	FindByOwnerIn(ctx context.Context, owners []string) ([]models.Pusher, error)
}

type ApplePushProvider interface {
	SendVoip(ctx context.Context, tokenHex string, data map[string]string) providers.Result
	SendBackground(ctx context.Context, tokenHex string, data map[string]string, collapseId string) providers.Result
	SendAlert(ctx context.Context, tokenHex, title, body string, data map[string]string) providers.Result
}

type AlertPushProvider interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) providers.Result
}

// Dispatcher fans call notifications out to every deliverable destination of a
// room's members. All collaborators are injected; each dispatch builds its own
// recipient set, destination list and payload, so concurrent dispatches share
// nothing but the long-lived provider clients.
type Dispatcher struct {
	memberships  MembershipLookup
	destinations DestinationLookup
	apple        ApplePushProvider
	fcm          AlertPushProvider
	channels     *ChannelMap
}

func NewDispatcher(
	memberships MembershipLookup,
	destinations DestinationLookup,
	apple ApplePushProvider,
	fcm AlertPushProvider,
	channels *ChannelMap,
) *Dispatcher {
	return &Dispatcher{
		memberships:  memberships,
		destinations: destinations,
		apple:        apple,
		fcm:          fcm,
		channels:     channels,
	}
}

// DispatchCall resolves, classifies and notifies, then blocks until every
// issued send has settled. Nothing here is fatal: a failed send, an empty
// room or a malformed token only ever costs the affected notification, and the
// caller always gets a clean return once the barrier releases.
func (d *Dispatcher) DispatchCall(ctx context.Context, event models.CallEvent) {
	if len(strings.TrimSpace(event.RoomID)) == 0 || len(strings.TrimSpace(event.SenderID)) == 0 {
		log.Warn().
			Str("room_id", event.RoomID).
			Str("sender_id", event.SenderID).
			Msg("Call event missing room or sender, nothing to dispatch...")
		return
	}

	l := log.With().
		Str("dispatch_id", uuid.NewString()).
		Str("room_id", event.RoomID).
		Str("sender_id", event.SenderID).
		Logger()

	recipients, err := d.ListJoinedRecipients(ctx, event.RoomID, event.SenderID)
	if err != nil {
		l.Warn().Err(err).Msg("Unable to resolve room members, dispatching to nobody...")
	}
	destinations, err := d.ResolveDestinations(ctx, recipients)
	if err != nil {
		l.Warn().Err(err).Msg("Unable to resolve push destinations, dispatching to nobody...")
	}

	classified := ClassifyDestinations(d.channels, destinations, event.SenderID)

	senderName := strings.TrimSpace(event.SenderName)
	if len(senderName) == 0 {
		senderName = Localpart(event.SenderID)
	}
	payload := BuildCallPayload(event, senderName, event.GroupName)
	data := payload.WireMap()

	var wg sync.WaitGroup
	isReject := event.IsReject()

	if isReject {
		// Cancel path: the callee's app is already ringing, so a silent
		// background push is enough. The collapse id keeps a rapid
		// call-then-cancel sequence from double-delivering.
		trimmed := make(map[string]string, len(data))
		for k, v := range data {
			trimmed[k] = v
		}
		delete(trimmed, "senderName")
		collapseId := "reject-" + event.RoomID

		for _, destination := range classified.Background {
			tokenHex := NormalizeDeviceToken(destination.Pushkey)
			if !IsCanonicalHexToken(tokenHex) {
				l.Warn().
					Str("user", destination.UserName).
					Str("app_id", destination.AppID).
					Msg("Background token is not canonical hex, skipping this send...")
				continue
			}

			wg.Add(1)
			go func(destination models.Pusher) {
				defer wg.Done()
				res := d.apple.SendBackground(ctx, tokenHex, trimmed, collapseId)
				logSendResult(l, "apns-background", destination, res)
			}(destination)
		}
	} else {
		for _, destination := range classified.Voip {
			wg.Add(1)
			go func(destination models.Pusher) {
				defer wg.Done()
				tokenHex := NormalizeDeviceToken(destination.Pushkey)
				res := d.apple.SendVoip(ctx, tokenHex, data)
				logSendResult(l, "apns-voip", destination, res)
			}(destination)
		}
	}

	for _, destination := range classified.Android {
		wg.Add(1)
		go func(destination models.Pusher) {
			defer wg.Done()
			res := d.fcm.Send(ctx, destination.Pushkey, payload.Title, payload.Body, data)
			logSendResult(l, "fcm", destination, res)
		}(destination)
	}

	wg.Wait()

	l.Info().
		Int("members", len(recipients)).
		Int("voip", len(classified.Voip)).
		Int("background", len(classified.Background)).
		Int("android", len(classified.Android)).
		Bool("reject", isReject).
		Msg("Completed call notification dispatch.")
}

// NotifyUser sends a plain alert push to every destination one user has
// registered, with the same settle-everything barrier as call dispatch.
func (d *Dispatcher) NotifyUser(ctx context.Context, userId, title, body string, data map[string]string) {
	if len(strings.TrimSpace(userId)) == 0 {
		return
	}

	l := log.With().
		Str("dispatch_id", uuid.NewString()).
		Str("user_id", userId).
		Logger()

	destinations, err := d.ResolveDestinations(ctx, []string{userId})
	if err != nil {
		l.Warn().Err(err).Msg("Unable to resolve push destinations, dispatching to nobody...")
	}

	var wg sync.WaitGroup
	for _, destination := range destinations {
		wg.Add(1)
		go func(destination models.Pusher) {
			defer wg.Done()
			var res providers.Result
			switch d.channels.Resolve(destination) {
			case ChannelAndroid:
				res = d.fcm.Send(ctx, destination.Pushkey, title, body, data)
				logSendResult(l, "fcm", destination, res)
			case ChannelVoip, ChannelBackground:
				res = d.apple.SendAlert(ctx, NormalizeDeviceToken(destination.Pushkey), title, body, data)
				logSendResult(l, "apns-alert", destination, res)
			default:
				l.Debug().
					Str("app_id", destination.AppID).
					Msg("Destination matched no delivery channel, skipping...")
			}
		}(destination)
	}
	wg.Wait()

	l.Info().Int("destinations", len(destinations)).Msg("Completed user notification dispatch.")
}

func logSendResult(l zerolog.Logger, channel string, destination models.Pusher, res providers.Result) {
	if res.Success {
		l.Info().
			Str("channel", channel).
			Str("user", destination.UserName).
			Str("provider_id", res.ProviderID).
			Msg("Push notification accepted by provider.")
	} else {
		l.Error().
			Str("channel", channel).
			Str("user", destination.UserName).
			Str("error", res.Error).
			Msg("Push notification refused by provider...")
	}
}
