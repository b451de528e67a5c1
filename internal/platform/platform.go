// Package platform defines the chat platform surface the enforcement core
// depends on. Adapters in internal/discord and internal/telegram implement it.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a member or channel does not exist (any more).
var ErrNotFound = errors.New("not found")

// Capabilities is the set of moderation rights a member holds in a community.
type Capabilities uint64

const (
	// CapAdminister is full community administration.
	CapAdminister Capabilities = 1 << iota
	// CapBanMembers allows banning members.
	CapBanMembers
)

// Has reports whether every bit in flag is set.
func (c Capabilities) Has(flag Capabilities) bool {
	return c&flag == flag
}

// User identifies a message author.
type User struct {
	ID  string
	Tag string
	Bot bool
}

// Member is a user as seen inside one community.
type Member struct {
	User         User
	Capabilities Capabilities
}

// Channel is a destination within a community.
type Channel struct {
	ID          string
	CommunityID string
	Name        string
	TextCapable bool
	Thread      bool
}

// MessageRef identifies a message so it can be deleted.
type MessageRef struct {
	CommunityID string
	ChannelID   string
	MessageID   string
}

// MessageEvent is one inbound message-created occurrence.
type MessageEvent struct {
	CommunityID   string
	CommunityName string
	ChannelID     string
	ChannelName   string
	Author        User
	// Capabilities is nil when the adapter did not attach member data.
	Capabilities *Capabilities
	Message      MessageRef
	Content      string
	Timestamp    time.Time
	URL          string
	System       bool
	Webhook      bool
}

// BanOptions are passed along with a ban.
type BanOptions struct {
	RetentionWindow time.Duration
	Reason          string
}

// AuditRecord is the summary of one enforcement action sent to a log channel.
type AuditRecord struct {
	AuthorTag   string
	AuthorID    string
	ChannelID   string
	ChannelName string
	Reason      string
	MessageURL  string
	Preview     string
	BanFailure  string
	Timestamp   time.Time
}

// Gateway is the set of platform operations used by the core.
//
// DeleteMessage and SendMessage are used best-effort: callers discard their
// errors after logging.
type Gateway interface {
	FetchMember(ctx context.Context, communityID, userID string) (Member, error)
	BanMember(ctx context.Context, communityID, userID string, opts BanOptions) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	FetchChannel(ctx context.Context, communityID, channelID string) (Channel, error)
	SendMessage(ctx context.Context, channel Channel, record AuditRecord) error
	// MentionChannel renders a reference to channelID for human-readable replies.
	MentionChannel(channelID string) string
}

// EventSink receives the inbound event stream of an adapter.
type EventSink interface {
	Ready(botName string)
	MessageCreated(evt MessageEvent)
}
