package models

// Pusher is a registered push destination: which app on which device should be
// woken up for a given user. Mirrors the homeserver's pushers table, so the
// gateway can be pointed at an existing deployment without migrations.
type Pusher struct {
	ID uint64 `json:"id" gorm:"primaryKey"`

	UserName          string `json:"user_name" gorm:"uniqueIndex:idx_pushers_identity;index"`
	Kind              string `json:"kind"`
	AppID             string `json:"app_id" gorm:"uniqueIndex:idx_pushers_identity"`
	AppDisplayName    string `json:"app_display_name"`
	DeviceDisplayName string `json:"device_display_name"`
	Pushkey           string `json:"pushkey" gorm:"uniqueIndex:idx_pushers_identity"`
	ProfileTag        string `json:"profile_tag"`
	Lang              string `json:"lang"`
	DeviceID          string `json:"device_id"`

	Ts           int64  `json:"ts"`
	LastSuccess  *int64 `json:"last_success"`
	FailingSince *int64 `json:"failing_since"`
	Enabled      *bool  `json:"enabled"`
}

func (Pusher) TableName() string {
	return "pushers"
}
