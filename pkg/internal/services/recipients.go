package services

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/windbell/chime/pkg/internal/models"
)

// ListJoinedRecipients returns the distinct members currently joined to a
// room, minus the caller. A blank room or an empty lookup just means nobody to
// notify; neither is an error.
func (d *Dispatcher) ListJoinedRecipients(ctx context.Context, roomId, callerId string) ([]string, error) {
	if len(strings.TrimSpace(roomId)) == 0 {
		return nil, nil
	}

	memberships, err := d.memberships.FindRoomMembers(ctx, roomId)
	if err != nil {
		return nil, err
	}

	return lo.Uniq(lo.FilterMap(memberships, func(item models.Membership, _ int) (string, bool) {
		return item.UserID, item.Membership == models.MembershipJoin && item.UserID != callerId
	})), nil
}
