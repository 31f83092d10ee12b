package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windbell/chime/pkg/internal/models"
	"github.com/windbell/chime/pkg/internal/providers"
)

type mockMembershipLookup struct {
	findFn func(ctx context.Context, roomId string) ([]models.Membership, error)
}

func (m *mockMembershipLookup) FindRoomMembers(ctx context.Context, roomId string) ([]models.Membership, error) {
	if m.findFn != nil {
		return m.findFn(ctx, roomId)
	}
	return nil, nil
}

type mockDestinationLookup struct {
	mu     sync.Mutex
	calls  [][]string
	findFn func(owners []string) ([]models.Pusher, error)
}

func (m *mockDestinationLookup) FindByOwnerIn(_ context.Context, owners []string) ([]models.Pusher, error) {
	m.mu.Lock()
	m.calls = append(m.calls, owners)
	m.mu.Unlock()
	if m.findFn != nil {
		return m.findFn(owners)
	}
	return nil, nil
}

type sentPush struct {
	Token      string
	Title      string
	Body       string
	CollapseID string
	Data       map[string]string
}

type mockApplePush struct {
	mu         sync.Mutex
	voip       []sentPush
	background []sentPush
	alerts     []sentPush
	fail       bool
}

func (m *mockApplePush) result() providers.Result {
	if m.fail {
		return providers.Refused("BadDeviceToken")
	}
	return providers.Accepted("apns-id")
}

func (m *mockApplePush) SendVoip(_ context.Context, tokenHex string, data map[string]string) providers.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voip = append(m.voip, sentPush{Token: tokenHex, Data: data})
	return m.result()
}

func (m *mockApplePush) SendBackground(_ context.Context, tokenHex string, data map[string]string, collapseId string) providers.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.background = append(m.background, sentPush{Token: tokenHex, Data: data, CollapseID: collapseId})
	return m.result()
}

func (m *mockApplePush) SendAlert(_ context.Context, tokenHex, title, body string, data map[string]string) providers.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, sentPush{Token: tokenHex, Title: title, Body: body, Data: data})
	return m.result()
}

type mockAlertPush struct {
	mu    sync.Mutex
	sends []sentPush
	fail  bool
}

func (m *mockAlertPush) Send(_ context.Context, deviceToken, title, body string, data map[string]string) providers.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, sentPush{Token: deviceToken, Title: title, Body: body, Data: data})
	if m.fail {
		return providers.Refused("UNREGISTERED")
	}
	return providers.Accepted("fcm-id")
}

func joinedRoom(members ...string) *mockMembershipLookup {
	return &mockMembershipLookup{
		findFn: func(_ context.Context, roomId string) ([]models.Membership, error) {
			return lo.Map(members, func(item string, _ int) models.Membership {
				return models.Membership{RoomID: roomId, UserID: item, Membership: models.MembershipJoin}
			}), nil
		},
	}
}

func newTestDispatcher(
	memberships *mockMembershipLookup,
	destinations *mockDestinationLookup,
) (*Dispatcher, *mockApplePush, *mockAlertPush) {
	apple := &mockApplePush{}
	fcm := &mockAlertPush{}
	return NewDispatcher(memberships, destinations, apple, fcm, testChannelMap()), apple, fcm
}

func TestDispatchCallBlankRoomIssuesNothing(t *testing.T) {
	destinations := &mockDestinationLookup{}
	dispatcher, apple, fcm := newTestDispatcher(joinedRoom("@a:x"), destinations)

	dispatcher.DispatchCall(context.Background(), models.CallEvent{
		SenderID: "@caller:x",
		CallType: "audio",
	})
	dispatcher.DispatchCall(context.Background(), models.CallEvent{
		RoomID:   "!r1:x",
		CallType: "audio",
	})

	assert.Empty(t, destinations.calls)
	assert.Empty(t, apple.voip)
	assert.Empty(t, apple.background)
	assert.Empty(t, fcm.sends)
}

func TestDispatchCallDirect(t *testing.T) {
	voipToken := strings.Repeat("ab", 32)
	destinations := &mockDestinationLookup{
		findFn: func(owners []string) ([]models.Pusher, error) {
			return []models.Pusher{
				{UserName: "@a:x", AppID: "io.chime.demo.ios.voip", Pushkey: voipToken},
				{UserName: "@b:x", AppID: "io.chime.demo", Pushkey: "fcm-token"},
			}, nil
		},
	}
	dispatcher, apple, fcm := newTestDispatcher(joinedRoom("@a:x", "@b:x", "@caller:x"), destinations)

	dispatcher.DispatchCall(context.Background(), models.CallEvent{
		RoomID:   "!r1:x",
		SenderID: "@caller:x",
		CallType: "audio",
	})

	require.Len(t, apple.voip, 1)
	assert.Equal(t, voipToken, apple.voip[0].Token)
	assert.Equal(t, "call", apple.voip[0].Data["type"])
	assert.Equal(t, "!r1:x", apple.voip[0].Data["roomId"])

	require.Len(t, fcm.sends, 1)
	assert.Equal(t, "fcm-token", fcm.sends[0].Token)
	assert.Equal(t, "Incoming audio call", fcm.sends[0].Title)
	assert.Equal(t, "call", fcm.sends[0].Data["type"])
	assert.Equal(t, "!r1:x", fcm.sends[0].Data["roomId"])

	assert.Empty(t, apple.background)
}

func TestDispatchCallNeverNotifiesCaller(t *testing.T) {
	destinations := &mockDestinationLookup{
		findFn: func(owners []string) ([]models.Pusher, error) {
			return []models.Pusher{
				{UserName: "@caller:x", AppID: "io.chime.demo", Pushkey: "caller-token"},
				{UserName: "@a:x", AppID: "io.chime.demo", Pushkey: "a-token"},
			}, nil
		},
	}
	dispatcher, _, fcm := newTestDispatcher(joinedRoom("@a:x", "@caller:x"), destinations)

	dispatcher.DispatchCall(context.Background(), models.CallEvent{
		RoomID:   "!r1:x",
		SenderID: "@caller:x",
		CallType: "video",
	})

	require.Len(t, fcm.sends, 1)
	assert.Equal(t, "a-token", fcm.sends[0].Token)
}

func TestDispatchCallRejectSkipsVoip(t *testing.T) {
	destinations := &mockDestinationLookup{
		findFn: func(owners []string) ([]models.Pusher, error) {
			return []models.Pusher{
				{UserName: "@a:x", AppID: "io.chime.demo.ios.voip", Pushkey: strings.Repeat("ab", 32)},
				{UserName: "@b:x", AppID: "io.chime.demo", Pushkey: "fcm-token"},
			}, nil
		},
	}
	dispatcher, apple, fcm := newTestDispatcher(joinedRoom("@a:x", "@b:x", "@caller:x"), destinations)

	dispatcher.DispatchCall(context.Background(), models.CallEvent{
		RoomID:   "!r1:x",
		SenderID: "@caller:x",
		CallType: "audio",
		Reject:   lo.ToPtr(true),
	})

	assert.Empty(t, apple.voip)
	assert.Empty(t, apple.background)

	require.Len(t, fcm.sends, 1)
	assert.Equal(t, "reject", fcm.sends[0].Data["type"])
}

func TestDispatchCallRejectBackgroundPath(t *testing.T) {
	goodToken := strings.Repeat("cd", 32)
	destinations := &mockDestinationLookup{
		findFn: func(owners []string) ([]models.Pusher, error) {
			return []models.Pusher{
				{UserName: "@a:x", AppID: "io.chime.demo.ios", Pushkey: goodToken},
				{UserName: "@b:x", AppID: "io.chime.demo.ios", Pushkey: "!!malformed!!"},
			}, nil
		},
	}
	dispatcher, apple, _ := newTestDispatcher(joinedRoom("@a:x", "@b:x", "@caller:x"), destinations)

	dispatcher.DispatchCall(context.Background(), models.CallEvent{
		RoomID:     "!r1:x",
		SenderID:   "@caller:x",
		CallType:   "audio",
		SenderName: "Caller",
		Reject:     lo.ToPtr(true),
	})

	// The malformed token is skipped rather than submitted.
	require.Len(t, apple.background, 1)
	assert.Equal(t, goodToken, apple.background[0].Token)
	assert.Equal(t, "reject-!r1:x", apple.background[0].CollapseID)
	assert.Equal(t, "reject", apple.background[0].Data["type"])
	assert.NotContains(t, apple.background[0].Data, "senderName")
}

func TestDispatchCallNonRejectNeverUsesBackground(t *testing.T) {
	destinations := &mockDestinationLookup{
		findFn: func(owners []string) ([]models.Pusher, error) {
			return []models.Pusher{
				{UserName: "@a:x", AppID: "io.chime.demo.ios", Pushkey: strings.Repeat("cd", 32)},
			}, nil
		},
	}
	dispatcher, apple, _ := newTestDispatcher(joinedRoom("@a:x", "@caller:x"), destinations)

	dispatcher.DispatchCall(context.Background(), models.CallEvent{
		RoomID:   "!r1:x",
		SenderID: "@caller:x",
		CallType: "audio",
	})

	assert.Empty(t, apple.background)
}

func TestDispatchCallSettlesEveryFailure(t *testing.T) {
	var members []string
	var pushers []models.Pusher
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("@user%d:x", i)
		members = append(members, id)
		pushers = append(pushers, models.Pusher{UserName: id, AppID: "io.chime.demo", Pushkey: fmt.Sprintf("token-%d", i)})
	}
	destinations := &mockDestinationLookup{
		findFn: func(owners []string) ([]models.Pusher, error) {
			return pushers, nil
		},
	}
	dispatcher, _, fcm := newTestDispatcher(joinedRoom(append(members, "@caller:x")...), destinations)
	fcm.fail = true

	// Every send fails, yet the dispatch returns once all of them settled.
	dispatcher.DispatchCall(context.Background(), models.CallEvent{
		RoomID:   "!r1:x",
		SenderID: "@caller:x",
		CallType: "audio",
	})

	assert.Len(t, fcm.sends, len(pushers))
}

func TestListJoinedRecipients(t *testing.T) {
	memberships := &mockMembershipLookup{
		findFn: func(_ context.Context, roomId string) ([]models.Membership, error) {
			return []models.Membership{
				{RoomID: roomId, UserID: "@a:x", Membership: models.MembershipJoin},
				{RoomID: roomId, UserID: "@a:x", Membership: models.MembershipJoin},
				{RoomID: roomId, UserID: "@b:x", Membership: "leave"},
				{RoomID: roomId, UserID: "@caller:x", Membership: models.MembershipJoin},
			}, nil
		},
	}
	dispatcher, _, _ := newTestDispatcher(memberships, &mockDestinationLookup{})

	recipients, err := dispatcher.ListJoinedRecipients(context.Background(), "!r1:x", "@caller:x")
	require.NoError(t, err)
	assert.Equal(t, []string{"@a:x"}, recipients)

	recipients, err = dispatcher.ListJoinedRecipients(context.Background(), "  ", "@caller:x")
	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestResolveDestinationsExactMatchWins(t *testing.T) {
	destinations := &mockDestinationLookup{
		findFn: func(owners []string) ([]models.Pusher, error) {
			return []models.Pusher{{UserName: owners[0], AppID: "io.chime.demo", Pushkey: "t"}}, nil
		},
	}
	dispatcher, _, _ := newTestDispatcher(joinedRoom(), destinations)

	found, err := dispatcher.ResolveDestinations(context.Background(), []string{"@a:x", "@b:x"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	require.Len(t, destinations.calls, 1)
	assert.Equal(t, []string{"@a:x", "@b:x"}, destinations.calls[0])
}

func TestResolveDestinationsLocalpartFallback(t *testing.T) {
	destinations := &mockDestinationLookup{
		findFn: func(owners []string) ([]models.Pusher, error) {
			if owners[0] == "alice" {
				return []models.Pusher{{UserName: "alice", AppID: "io.chime.demo", Pushkey: "t"}}, nil
			}
			return nil, nil
		},
	}
	dispatcher, _, _ := newTestDispatcher(joinedRoom(), destinations)

	found, err := dispatcher.ResolveDestinations(context.Background(), []string{"@alice:x", "@bob:x"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	require.Len(t, destinations.calls, 2)
	assert.Equal(t, []string{"@alice:x", "@bob:x"}, destinations.calls[0])
	assert.Equal(t, []string{"alice", "bob"}, destinations.calls[1])
}

func TestResolveDestinationsEmptyInputSkipsQuery(t *testing.T) {
	destinations := &mockDestinationLookup{}
	dispatcher, _, _ := newTestDispatcher(joinedRoom(), destinations)

	found, err := dispatcher.ResolveDestinations(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Empty(t, destinations.calls)
}

func TestNotifyUserRoutesPerChannel(t *testing.T) {
	voipToken := strings.Repeat("ef", 32)
	destinations := &mockDestinationLookup{
		findFn: func(owners []string) ([]models.Pusher, error) {
			return []models.Pusher{
				{UserName: "@a:x", AppID: "io.chime.demo", Pushkey: "fcm-token"},
				{UserName: "@a:x", AppID: "io.chime.demo.ios.voip", Pushkey: voipToken},
			}, nil
		},
	}
	dispatcher, apple, fcm := newTestDispatcher(joinedRoom(), destinations)

	dispatcher.NotifyUser(context.Background(), "@a:x", "Hello", "World", map[string]string{"k": "v"})

	require.Len(t, fcm.sends, 1)
	assert.Equal(t, "Hello", fcm.sends[0].Title)
	require.Len(t, apple.alerts, 1)
	assert.Equal(t, voipToken, apple.alerts[0].Token)
	assert.Equal(t, "v", apple.alerts[0].Data["k"])
	assert.Empty(t, apple.voip)
}
