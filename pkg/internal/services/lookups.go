package services

import (
	"context"

	"github.com/windbell/chime/pkg/internal/database"
	"github.com/windbell/chime/pkg/internal/models"
)

// Database-backed lookups over the homeserver tables. Read-only and per-call;
// nothing is cached, so a destination registered a second ago is already
// reachable by the next dispatch.

type membershipStore struct{}

func NewMembershipStore() MembershipLookup {
	return membershipStore{}
}

func (membershipStore) FindRoomMembers(ctx context.Context, roomId string) ([]models.Membership, error) {
	var memberships []models.Membership
	if err := database.C.WithContext(ctx).Where(&models.Membership{
		RoomID: roomId,
	}).Find(&memberships).Error; err != nil {
		return memberships, err
	}
	return memberships, nil
}

type destinationStore struct{}

func NewDestinationStore() DestinationLookup {
	return destinationStore{}
}

func (destinationStore) FindByOwnerIn(ctx context.Context, owners []string) ([]models.Pusher, error) {
	var destinations []models.Pusher
	if err := database.C.WithContext(ctx).
		Where("user_name IN ?", owners).
		Find(&destinations).Error; err != nil {
		return destinations, err
	}
	return destinations, nil
}
