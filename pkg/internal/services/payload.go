package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/windbell/chime/pkg/internal/models"
)

const (
	PayloadTypeCall   = "call"
	PayloadTypeReject = "reject"
)

// FallbackGroupName labels a group call whose name could not be resolved.
const FallbackGroupName = "Group call"

// CallPayload is the structured form of everything a client needs to render an
// incoming call. It only becomes a wire map at the dispatch boundary, so no
// half-built mutable map ever leaks between branches.
type CallPayload struct {
	Title string
	Body  string

	Type        string
	RoomID      string
	CallType    string
	SenderID    string
	SenderName  string
	GroupName   string
	IsGroupCall bool
	Reject      *bool
	URL         string
}

// BuildCallPayload shapes the channel-agnostic payload for one call event.
// The group name signals group framing; when the event carries one but the
// resolved name is blank, a fixed placeholder keeps the clients from rendering
// an empty label.
func BuildCallPayload(event models.CallEvent, senderName, groupName string) CallPayload {
	payload := CallPayload{
		Type:     PayloadTypeCall,
		RoomID:   event.RoomID,
		CallType: event.CallType,
		SenderID: event.SenderID,
		Reject:   event.Reject,
		URL:      event.URL,
	}
	if event.IsReject() {
		payload.Type = PayloadTypeReject
	}

	if len(strings.TrimSpace(event.GroupName)) > 0 {
		payload.IsGroupCall = true
		payload.GroupName = strings.TrimSpace(groupName)
		if len(payload.GroupName) == 0 {
			payload.GroupName = FallbackGroupName
		}
		payload.Title = fmt.Sprintf("Incoming group %s call", event.CallType)
		payload.Body = fmt.Sprintf("%s is calling", event.SenderID)
	} else {
		payload.SenderName = senderName
		payload.Title = fmt.Sprintf("Incoming %s call", event.CallType)
		payload.Body = fmt.Sprintf("%s is calling", senderName)
	}

	return payload
}

// WireMap serializes the payload into the flat string map shared verbatim
// across every channel. Blank values are omitted entirely; some provider-side
// validations choke on empty strings. The room id rides under both key styles
// for backward-compatible clients.
func (v CallPayload) WireMap() map[string]string {
	data := map[string]string{
		"type":        v.Type,
		"isGroupCall": strconv.FormatBool(v.IsGroupCall),
	}

	putNonBlank := func(key, value string) {
		if len(strings.TrimSpace(value)) > 0 {
			data[key] = value
		}
	}

	putNonBlank("roomId", v.RoomID)
	putNonBlank("room_id", v.RoomID)
	putNonBlank("callType", v.CallType)
	putNonBlank("senderId", v.SenderID)
	putNonBlank("senderName", v.SenderName)
	putNonBlank("groupName", v.GroupName)
	putNonBlank("url", v.URL)
	if v.Reject != nil {
		data["reject"] = strconv.FormatBool(*v.Reject)
	}

	return data
}
