package providers

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"
	"github.com/spf13/viper"
)

// ApnsGateway delivers VoIP wake-ups, silent background pushes and plain
// alerts over a single long-lived APNs HTTP/2 client. The client is safe for
// concurrent use, so one gateway serves every in-flight dispatch.
type ApnsGateway struct {
	client    *apns2.Client
	topic     string
	voipTopic string
}

func NewApnsGateway() (*ApnsGateway, error) {
	authKey, err := token.AuthKeyFromFile(viper.GetString("apns.key_path"))
	if err != nil {
		return nil, fmt.Errorf("unable to load apns signing key: %v", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   viper.GetString("apns.key_id"),
		TeamID:  viper.GetString("apns.team_id"),
	})
	if viper.GetBool("apns.use_sandbox") {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return &ApnsGateway{
		client:    client,
		topic:     viper.GetString("apns.topic"),
		voipTopic: viper.GetString("apns.voip_topic"),
	}, nil
}

// SendVoip wakes the callee's app via PushKit: highest priority, short
// expiration, content-available envelope with the call data at the root.
func (v *ApnsGateway) SendVoip(ctx context.Context, tokenHex string, data map[string]string) Result {
	raw, err := encodeApnsPayload(map[string]any{"content-available": 1}, data)
	if err != nil {
		return Refused(fmt.Sprintf("unable to build voip payload: %v", err))
	}

	return v.push(ctx, &apns2.Notification{
		DeviceToken: tokenHex,
		Topic:       v.voipTopic,
		Payload:     raw,
		PushType:    apns2.PushTypeVOIP,
		Priority:    apns2.PriorityHigh,
		Expiration:  time.Now().Add(30 * time.Second),
	})
}

// SendBackground delivers a silent push to the standard app topic. The
// collapse id lets a rapid call-then-cancel sequence coalesce at Apple's side
// instead of double-delivering.
func (v *ApnsGateway) SendBackground(ctx context.Context, tokenHex string, data map[string]string, collapseId string) Result {
	raw, err := encodeApnsPayload(map[string]any{"content-available": 1}, data)
	if err != nil {
		return Refused(fmt.Sprintf("unable to build background payload: %v", err))
	}

	return v.push(ctx, &apns2.Notification{
		DeviceToken: tokenHex,
		Topic:       v.topic,
		CollapseID:  collapseId,
		Payload:     raw,
		PushType:    apns2.PushTypeBackground,
		Priority:    apns2.PriorityLow,
	})
}

// SendAlert delivers a visible notification to the standard app topic.
func (v *ApnsGateway) SendAlert(ctx context.Context, tokenHex, title, body string, data map[string]string) Result {
	raw, err := encodeApnsPayload(map[string]any{
		"alert": map[string]any{"title": title, "body": body},
		"sound": "default",
	}, data)
	if err != nil {
		return Refused(fmt.Sprintf("unable to build alert payload: %v", err))
	}

	return v.push(ctx, &apns2.Notification{
		DeviceToken: tokenHex,
		Topic:       v.topic,
		Payload:     raw,
		PushType:    apns2.PushTypeAlert,
		Priority:    apns2.PriorityHigh,
	})
}

func (v *ApnsGateway) push(ctx context.Context, notification *apns2.Notification) Result {
	res, err := v.client.PushWithContext(ctx, notification)
	if err != nil {
		return Refused(err.Error())
	}
	if !res.Sent() {
		log.Warn().
			Str("reason", res.Reason).
			Int("status", res.StatusCode).
			Str("topic", notification.Topic).
			Msg("APNs refused a notification...")
		return Refused(res.Reason)
	}
	return Accepted(res.ApnsID)
}

// encodeApnsPayload merges the channel data into the payload root, next to the
// aps envelope, which is where the clients expect to find it.
func encodeApnsPayload(aps map[string]any, data map[string]string) ([]byte, error) {
	root := map[string]any{"aps": aps}
	for k, v := range data {
		root[k] = v
	}
	return jsoniter.Marshal(root)
}
