package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/windbell/chime/pkg/internal/database"
	"github.com/windbell/chime/pkg/internal/models"
)

// ResolveDestinations loads the registered push destinations of a member set.
// Some clients register destinations under a bare localpart instead of the
// full federated id, so an empty exact-id lookup retries once with localparts.
// The two query shapes never mix; at most one of them contributes results.
func (d *Dispatcher) ResolveDestinations(ctx context.Context, memberIds []string) ([]models.Pusher, error) {
	if len(memberIds) == 0 {
		return nil, nil
	}

	destinations, err := d.destinations.FindByOwnerIn(ctx, memberIds)
	if err != nil {
		return nil, err
	}
	if len(destinations) > 0 {
		return destinations, nil
	}

	localparts := lo.Uniq(lo.FilterMap(memberIds, func(item string, _ int) (string, bool) {
		local := Localpart(item)
		return local, len(strings.TrimSpace(local)) > 0
	}))
	if len(localparts) == 0 {
		return nil, nil
	}

	return d.destinations.FindByOwnerIn(ctx, localparts)
}

// RegisterDestination upserts one (owner, app, token) destination. Repeated
// registrations only refresh the timestamp.
func RegisterDestination(ownerId, appId, pushkey, deviceName string) (models.Pusher, error) {
	var destination models.Pusher
	if err := database.C.Where(&models.Pusher{
		UserName: ownerId,
		AppID:    appId,
		Pushkey:  pushkey,
	}).First(&destination).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return destination, err
	}

	destination.UserName = ownerId
	destination.AppID = appId
	destination.Pushkey = pushkey
	destination.Kind = "http"
	destination.Ts = time.Now().UnixMilli()
	if len(deviceName) > 0 {
		destination.DeviceDisplayName = deviceName
	}

	if err := database.C.Save(&destination).Error; err != nil {
		return destination, err
	}
	return destination, nil
}
