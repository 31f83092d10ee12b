package models

const MembershipJoin = "join"

// Membership mirrors the homeserver's current-membership table. One row per
// (room, user) pair, holding the latest membership state.
type Membership struct {
	RoomID     string `json:"room_id" gorm:"primaryKey;index"`
	UserID     string `json:"user_id" gorm:"primaryKey;index"`
	Membership string `json:"membership"`
}

func (Membership) TableName() string {
	return "local_current_membership"
}
