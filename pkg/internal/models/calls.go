package models

// CallEvent is the inbound description of a call that needs to be announced
// (or cancelled) to the other members of a room. It is constructed fresh per
// request and never persisted.
type CallEvent struct {
	RoomID     string `json:"roomId" validate:"required"`
	SenderID   string `json:"senderId" validate:"required"`
	CallType   string `json:"callType" validate:"required"`
	SenderName string `json:"senderName"`
	GroupName  string `json:"groupName"`
	Reject     *bool  `json:"reject"`
	URL        string `json:"url"`
}

// IsReject reports whether this event selects the cancel variant.
func (v CallEvent) IsReject() bool {
	return v.Reject != nil && *v.Reject
}
