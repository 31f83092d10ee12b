package providers

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

// FcmGateway delivers alert pushes through Firebase Cloud Messaging. It covers
// the Android channel and any web-push alias registered under the same app id.
type FcmGateway struct {
	client *messaging.Client
}

func NewFcmGateway(ctx context.Context) (*FcmGateway, error) {
	opt := option.WithCredentialsFile(viper.GetString("fcm.credentials_path"))
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize firebase app: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize firebase messaging: %v", err)
	}

	return &FcmGateway{client: client}, nil
}

// Send delivers one alert push carrying the full data payload. High priority
// so the call screen shows up even in battery-saving mode.
func (v *FcmGateway) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) Result {
	message := &messaging.Message{
		Token: deviceToken,
		Data:  data,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
	}

	id, err := v.client.Send(ctx, message)
	if err != nil {
		return Refused(err.Error())
	}
	return Accepted(id)
}
