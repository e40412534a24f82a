package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tcs := []struct {
		name     string
		raw      string
		kind     TargetKind
		username string
		id       int64
		phone    string
		wantErr  string
	}{
		{name: "me", raw: "me", kind: TargetSelf},
		{name: "self uppercase", raw: "  SELF ", kind: TargetSelf},
		{name: "user id", raw: "123456789", kind: TargetID, id: 123456789},
		{name: "channel id", raw: "-1001234567890", kind: TargetID, id: -1001234567890},
		{name: "chat id", raw: "-4242", kind: TargetID, id: -4242},
		{name: "at username", raw: "@bench_chan", kind: TargetUsername, username: "bench_chan"},
		{name: "bare username", raw: "bench_chan", kind: TargetUsername, username: "bench_chan"},
		{name: "t.me link", raw: "https://t.me/bench_chan", kind: TargetUsername, username: "bench_chan"},
		{name: "t.me link trailing slash", raw: "t.me/bench_chan/", kind: TargetUsername, username: "bench_chan"},
		{name: "telegram.me link with query", raw: "https://telegram.me/bench_chan?start=1", kind: TargetUsername, username: "bench_chan"},
		{name: "phone", raw: "+15550001111", kind: TargetPhone, phone: "15550001111"},
		{name: "phone with spaces", raw: "+1 (555) 000-1111", kind: TargetPhone, phone: "15550001111"},
		{name: "phone too short", raw: "+1 2 3 4 5", wantErr: "invalid phone target"},
		{name: "empty", raw: "   ", wantErr: "target is empty"},
		{name: "id overflow", raw: "99999999999999999999", wantErr: "out of range"},
		{name: "invite link", raw: "https://t.me/+AbCdEf", wantErr: "invalid target"},
		{name: "too short", raw: "@ab", wantErr: "invalid target"},
		{name: "starts with digit", raw: "1abcde_x", wantErr: "invalid target"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTarget(tc.raw)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.kind, got.Kind)
			assert.Equal(t, tc.username, got.Username)
			assert.Equal(t, tc.id, got.ID)
			assert.Equal(t, tc.phone, got.Phone)
			assert.Equal(t, tc.raw, got.Raw)
		})
	}
}

func TestBotAPIID(t *testing.T) {
	tcs := []struct {
		name string
		peer tg.InputPeerClass
		want int64
		ok   bool
	}{
		{name: "user", peer: &tg.InputPeerUser{UserID: 777, AccessHash: 1}, want: 777, ok: true},
		{name: "chat", peer: &tg.InputPeerChat{ChatID: 4242}, want: -4242, ok: true},
		{name: "channel", peer: &tg.InputPeerChannel{ChannelID: 1234567890, AccessHash: 1}, want: -1001234567890, ok: true},
		{name: "self", peer: &tg.InputPeerSelf{}, ok: false},
		{name: "empty", peer: &tg.InputPeerEmpty{}, ok: false},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := BotAPIID(tc.peer)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchesID(t *testing.T) {
	channel := &tg.InputPeerChannel{ChannelID: 1234567890}
	assert.True(t, matchesID(channel, -1001234567890))
	assert.True(t, matchesID(channel, 1234567890), "bare channel id from a t.me/c/ link")
	assert.False(t, matchesID(channel, -1234567890))

	chat := &tg.InputPeerChat{ChatID: 4242}
	assert.True(t, matchesID(chat, -4242))
	assert.False(t, matchesID(chat, 4242))

	user := &tg.InputPeerUser{UserID: 777}
	assert.True(t, matchesID(user, 777))
	assert.False(t, matchesID(user, -777))

	assert.False(t, matchesID(&tg.InputPeerSelf{}, 0))
}

func TestTargetKindString(t *testing.T) {
	assert.Equal(t, "self", TargetSelf.String())
	assert.Equal(t, "username", TargetUsername.String())
	assert.Equal(t, "id", TargetID.String())
	assert.Equal(t, "phone", TargetPhone.String())
	assert.Equal(t, "unknown", TargetKind(99).String())
}
