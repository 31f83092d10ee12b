package services

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/windbell/chime/pkg/internal/models"
)

type Channel = uint8

const (
	ChannelUnknown = Channel(iota)
	ChannelVoip
	ChannelBackground
	ChannelAndroid
)

// ChannelMap decides which delivery channel a destination belongs to. The app
// id allowlists are configuration data, not scattered string literals, so a
// new bundle id is a settings change rather than a code change.
type ChannelMap struct {
	mapping map[string]Channel
}

func NewChannelMap(voipAppIds, iosAppIds, androidAppIds []string) *ChannelMap {
	mapping := make(map[string]Channel)
	for _, id := range androidAppIds {
		mapping[id] = ChannelAndroid
	}
	for _, id := range iosAppIds {
		mapping[id] = ChannelBackground
	}
	for _, id := range voipAppIds {
		mapping[id] = ChannelVoip
	}
	return &ChannelMap{mapping: mapping}
}

// LoadChannelMap builds the mapping from settings, falling back to the bundle
// ids the production apps register with. The web push alias, when configured,
// rides the FCM channel.
func LoadChannelMap() *ChannelMap {
	viper.SetDefault("channels.voip_app_ids", []string{"com.pareza.pro.ios.voip"})
	viper.SetDefault("channels.ios_app_ids", []string{"com.pareza.pro.ios.prod", "com.pareza.pro.ios.dev"})
	viper.SetDefault("channels.android_app_ids", []string{"com.pareza.pro"})

	androidIds := viper.GetStringSlice("channels.android_app_ids")
	if alias := viper.GetString("channels.web_app_id"); len(alias) > 0 {
		androidIds = append(androidIds, alias)
	}

	return NewChannelMap(
		viper.GetStringSlice("channels.voip_app_ids"),
		viper.GetStringSlice("channels.ios_app_ids"),
		androidIds,
	)
}

// Resolve maps a destination to exactly one channel. App ids always win; the
// token shape heuristic only applies when the app id maps to nothing, since a
// bare 64-hex token is almost certainly a PushKit one.
func (v *ChannelMap) Resolve(destination models.Pusher) Channel {
	if channel, ok := v.mapping[destination.AppID]; ok {
		return channel
	}
	if IsCanonicalHexToken(strings.TrimSpace(destination.Pushkey)) {
		return ChannelVoip
	}
	return ChannelUnknown
}

// ClassifiedDestinations buckets destinations per delivery channel. The
// buckets are disjoint by construction.
type ClassifiedDestinations struct {
	Voip       []models.Pusher
	Background []models.Pusher
	Android    []models.Pusher
}

// ClassifyDestinations drops anything owned by the caller, then partitions the
// rest by channel. Destinations matching no channel are dropped from dispatch.
func ClassifyDestinations(mapping *ChannelMap, destinations []models.Pusher, callerId string) ClassifiedDestinations {
	var out ClassifiedDestinations

	destinations = lo.Filter(destinations, func(item models.Pusher, _ int) bool {
		return item.UserName != callerId
	})

	for _, destination := range destinations {
		switch mapping.Resolve(destination) {
		case ChannelVoip:
			out.Voip = append(out.Voip, destination)
		case ChannelBackground:
			out.Background = append(out.Background, destination)
		case ChannelAndroid:
			out.Android = append(out.Android, destination)
		default:
			log.Debug().
				Str("user", destination.UserName).
				Str("app_id", destination.AppID).
				Msg("Destination matched no delivery channel, skipping...")
		}
	}

	if len(out.Voip) == 0 && len(out.Android) == 0 {
		log.Warn().
			Str("caller", callerId).
			Int("destinations", len(destinations)).
			Msg("No deliverable voip nor android destinations were found...")
	}

	return out
}
