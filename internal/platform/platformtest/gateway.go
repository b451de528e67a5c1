// Package platformtest provides an in-memory platform.Gateway for tests.
package platformtest

import (
	"context"
	"fmt"
	"sync"

	"bantrap/internal/platform"
)

// Ban is a recorded BanMember call.
type Ban struct {
	CommunityID string
	UserID      string
	Options     platform.BanOptions
}

// Sent is a recorded SendMessage call.
type Sent struct {
	Channel platform.Channel
	Record  platform.AuditRecord
}

// Gateway records every call and serves members and channels from maps.
// The *Err fields make the matching operation fail.
type Gateway struct {
	mu sync.Mutex

	members  map[string]platform.Member
	channels map[string]platform.Channel

	Bans    []Ban
	Deleted []platform.MessageRef
	Sent    []Sent
	Fetches int

	FetchMemberErr  error
	BanErr          error
	DeleteErr       error
	FetchChannelErr error
	SendErr         error
}

func New() *Gateway {
	return &Gateway{
		members:  make(map[string]platform.Member),
		channels: make(map[string]platform.Channel),
	}
}

func memberKey(communityID, userID string) string {
	return communityID + "/" + userID
}

// AddMember registers a member of communityID.
func (g *Gateway) AddMember(communityID string, m platform.Member) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[memberKey(communityID, m.User.ID)] = m
}

// AddChannel registers a channel.
func (g *Gateway) AddChannel(ch platform.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[ch.ID] = ch
}

// RemoveChannel deletes a channel, as if it was removed on the platform.
func (g *Gateway) RemoveChannel(channelID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.channels, channelID)
}

func (g *Gateway) FetchMember(ctx context.Context, communityID, userID string) (platform.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Fetches++
	if g.FetchMemberErr != nil {
		return platform.Member{}, g.FetchMemberErr
	}
	m, ok := g.members[memberKey(communityID, userID)]
	if !ok {
		return platform.Member{}, fmt.Errorf("member %s: %w", userID, platform.ErrNotFound)
	}
	return m, nil
}

func (g *Gateway) BanMember(ctx context.Context, communityID, userID string, opts platform.BanOptions) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Bans = append(g.Bans, Ban{CommunityID: communityID, UserID: userID, Options: opts})
	return g.BanErr
}

func (g *Gateway) DeleteMessage(ctx context.Context, ref platform.MessageRef) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Deleted = append(g.Deleted, ref)
	return g.DeleteErr
}

func (g *Gateway) FetchChannel(ctx context.Context, communityID, channelID string) (platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FetchChannelErr != nil {
		return platform.Channel{}, g.FetchChannelErr
	}
	ch, ok := g.channels[channelID]
	if !ok {
		return platform.Channel{}, fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	return ch, nil
}

func (g *Gateway) SendMessage(ctx context.Context, channel platform.Channel, record platform.AuditRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SendErr != nil {
		return g.SendErr
	}
	g.Sent = append(g.Sent, Sent{Channel: channel, Record: record})
	return nil
}

func (g *Gateway) MentionChannel(channelID string) string {
	return "<#" + channelID + ">"
}

// BanCount returns the number of BanMember calls so far.
func (g *Gateway) BanCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Bans)
}

// SentCount returns the number of delivered audit records.
func (g *Gateway) SentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Sent)
}

// DeletedCount returns the number of DeleteMessage calls so far.
func (g *Gateway) DeletedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Deleted)
}
