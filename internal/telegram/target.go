package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/query"
	"github.com/gotd/td/tg"
)

// TargetKind tells how a target was written
type TargetKind int

const (
	TargetSelf TargetKind = iota
	TargetUsername
	TargetID
	TargetPhone
)

func (k TargetKind) String() string {
	switch k {
	case TargetSelf:
		return "self"
	case TargetUsername:
		return "username"
	case TargetID:
		return "id"
	case TargetPhone:
		return "phone"
	default:
		return "unknown"
	}
}

// Target is a parsed TELEGRAM_TARGET value
type Target struct {
	Raw      string
	Kind     TargetKind
	Username string // without @
	ID       int64  // Bot API style: -100<channel>, -<chat>, <user>
	Phone    string // digits only
}

// ErrTargetNotFound is returned when a numeric target is not among the account's dialogs
var ErrTargetNotFound = errors.New("target not found in dialogs")

// channelIDOffset turns a channel id into its Bot API form (-100<channel>)
const channelIDOffset = 1_000_000_000_000

var (
	numericTarget  = regexp.MustCompile(`^-?\d+$`)
	phoneTarget    = regexp.MustCompile(`^\+[\d\s()-]{7,20}$`)
	usernameTarget = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)
	linkPrefixes   = []string{"https://t.me/", "http://t.me/", "t.me/", "https://telegram.me/", "http://telegram.me/", "telegram.me/"}
)

// ParseTarget accepts "me", a numeric id, "+phone", "@name", "name" or a t.me link
func ParseTarget(raw string) (Target, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Target{}, fmt.Errorf("target is empty")
	}

	switch strings.ToLower(s) {
	case "me", "self":
		return Target{Raw: raw, Kind: TargetSelf}, nil
	}

	if numericTarget.MatchString(s) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Target{}, fmt.Errorf("target id out of range: %s", s)
		}
		return Target{Raw: raw, Kind: TargetID, ID: id}, nil
	}

	if phoneTarget.MatchString(s) {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, s)
		if len(digits) < 7 || len(digits) > 15 {
			return Target{}, fmt.Errorf("invalid phone target %q", s)
		}
		return Target{Raw: raw, Kind: TargetPhone, Phone: digits}, nil
	}

	name := s
	for _, prefix := range linkPrefixes {
		if len(name) >= len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
			name = name[len(prefix):]
			break
		}
	}
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, "/")
	name = strings.TrimPrefix(name, "@")

	if !usernameTarget.MatchString(name) {
		return Target{}, fmt.Errorf("invalid target %q: expected @username, t.me link, numeric id, +phone or me", s)
	}

	return Target{Raw: raw, Kind: TargetUsername, Username: name}, nil
}

// ResolveTarget turns a parsed target into an input peer.
// Numeric ids carry no access hash, so they are looked up among the dialogs.
// Phone numbers only resolve to users in the account's contacts.
func ResolveTarget(ctx context.Context, api *tg.Client, target Target) (tg.InputPeerClass, error) {
	switch target.Kind {
	case TargetSelf:
		return &tg.InputPeerSelf{}, nil
	case TargetUsername:
		var resolved tg.InputPeerClass
		err := WithFloodWait(ctx, func() error {
			var err error
			resolved, err = message.NewSender(api).Resolve("@" + target.Username).AsInputPeer(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve @%s: %w", target.Username, err)
		}
		return resolved, nil
	case TargetPhone:
		var resolved tg.InputPeerClass
		err := WithFloodWait(ctx, func() error {
			var err error
			resolved, err = message.NewSender(api).ResolvePhone(target.Phone).AsInputPeer(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve +%s among contacts: %w", target.Phone, err)
		}
		return resolved, nil
	case TargetID:
		return findDialog(ctx, api, target.ID)
	default:
		return nil, fmt.Errorf("unknown target kind %d", target.Kind)
	}
}

func findDialog(ctx context.Context, api *tg.Client, id int64) (tg.InputPeerClass, error) {
	var found tg.InputPeerClass
	seen := 0

	err := WithFloodWait(ctx, func() error {
		seen = 0
		iter := query.GetDialogs(api).BatchSize(100).Iter()
		for iter.Next(ctx) {
			seen++
			if peer := iter.Value().Peer; matchesID(peer, id) {
				found = peer
				return nil
			}
		}
		return iter.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list dialogs: %w", err)
	}

	slog.Debug("Searched dialogs", "id", id, "dialogs", seen, "found", found != nil)

	if found == nil {
		return nil, fmt.Errorf("%w: %d", ErrTargetNotFound, id)
	}
	return found, nil
}

// BotAPIID returns the Bot API style id of an input peer
func BotAPIID(peer tg.InputPeerClass) (int64, bool) {
	switch p := peer.(type) {
	case *tg.InputPeerUser:
		return p.UserID, true
	case *tg.InputPeerChat:
		return -p.ChatID, true
	case *tg.InputPeerChannel:
		return -(channelIDOffset + p.ChannelID), true
	default:
		return 0, false
	}
}

// matchesID compares a peer against a numeric target. A bare positive channel
// id is also accepted, since that is what t.me/c/ links show.
func matchesID(peer tg.InputPeerClass, id int64) bool {
	got, ok := BotAPIID(peer)
	if !ok {
		return false
	}
	if got == id {
		return true
	}
	if ch, isChannel := peer.(*tg.InputPeerChannel); isChannel {
		return ch.ChannelID == id
	}
	return false
}
