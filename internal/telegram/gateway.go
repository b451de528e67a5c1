package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	ta "github.com/mymmrac/telego/telegoapi"

	"bantrap/internal/platform"
)

// Gateway implements platform.Gateway on the Bot API. Channels are forum
// topics of a supergroup.
type Gateway struct {
	bot *telego.Bot
}

func NewGateway(bot *telego.Bot) *Gateway {
	return &Gateway{bot: bot}
}

func (g *Gateway) FetchMember(ctx context.Context, communityID, userID string) (platform.Member, error) {
	chatID, err := parseID(communityID)
	if err != nil {
		return platform.Member{}, err
	}
	uid, err := parseID(userID)
	if err != nil {
		return platform.Member{}, err
	}

	member, err := g.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: chatID},
		UserID: uid,
	})
	if err != nil {
		return platform.Member{}, translateError(err)
	}

	switch member.MemberStatus() {
	case telego.MemberStatusLeft, telego.MemberStatusBanned:
		return platform.Member{}, fmt.Errorf("user %s: %w", userID, platform.ErrNotFound)
	}

	return platform.Member{
		User:         convertUser(member.MemberUser()),
		Capabilities: MemberCapabilities(member),
	}, nil
}

// MemberCapabilities maps a chat member to moderation capabilities. The owner
// holds both; administrators need can_restrict_members to ban and
// can_promote_members to administer.
func MemberCapabilities(member telego.ChatMember) platform.Capabilities {
	switch m := member.(type) {
	case *telego.ChatMemberOwner:
		return platform.CapAdminister | platform.CapBanMembers
	case *telego.ChatMemberAdministrator:
		var caps platform.Capabilities
		if m.CanRestrictMembers {
			caps |= platform.CapBanMembers
		}
		if m.CanPromoteMembers {
			caps |= platform.CapAdminister
		}
		return caps
	}
	return 0
}

// BanMember bans permanently. Telegram can only revoke all of a user's
// messages, so any positive retention window revokes everything.
func (g *Gateway) BanMember(ctx context.Context, communityID, userID string, opts platform.BanOptions) error {
	chatID, err := parseID(communityID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}

	err = g.bot.BanChatMember(ctx, &telego.BanChatMemberParams{
		ChatID:         telego.ChatID{ID: chatID},
		UserID:         uid,
		RevokeMessages: opts.RetentionWindow > 0,
	})
	if err != nil {
		return fmt.Errorf("failed to ban %s: %w", userID, translateError(err))
	}
	return nil
}

func (g *Gateway) DeleteMessage(ctx context.Context, ref platform.MessageRef) error {
	chatID, err := parseID(ref.CommunityID)
	if err != nil {
		return err
	}
	messageID, err := strconv.Atoi(ref.MessageID)
	if err != nil {
		return fmt.Errorf("invalid message id %q: %w", ref.MessageID, err)
	}

	err = g.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		MessageID: messageID,
	})
	if err != nil {
		return translateError(err)
	}
	return nil
}

// FetchChannel resolves a topic of communityID. The Bot API cannot look up a
// single topic, so any positive id in a forum is accepted.
func (g *Gateway) FetchChannel(ctx context.Context, communityID, channelID string) (platform.Channel, error) {
	chatID, err := parseID(communityID)
	if err != nil {
		return platform.Channel{}, err
	}
	chat, err := g.bot.GetChat(ctx, &telego.GetChatParams{ChatID: telego.ChatID{ID: chatID}})
	if err != nil {
		return platform.Channel{}, translateError(err)
	}
	return topicChannel(communityID, chat.IsForum, chat.Title, channelID)
}

func topicChannel(communityID string, forum bool, title, channelID string) (platform.Channel, error) {
	if channelID == GeneralTopic {
		name := title
		if forum {
			name = "General"
		}
		return platform.Channel{ID: channelID, CommunityID: communityID, Name: name, TextCapable: true}, nil
	}
	topic, err := strconv.Atoi(channelID)
	if err != nil || topic <= 0 || !forum {
		return platform.Channel{}, fmt.Errorf("topic %q: %w", channelID, platform.ErrNotFound)
	}
	return platform.Channel{ID: channelID, CommunityID: communityID, Name: topicLabel(channelID), TextCapable: true}, nil
}

func (g *Gateway) SendMessage(ctx context.Context, channel platform.Channel, record platform.AuditRecord) error {
	return g.sendHTML(ctx, channel.CommunityID, channel.ID, 0, RenderAudit(record))
}

// sendHTML posts text to a topic, optionally as a reply.
func (g *Gateway) sendHTML(ctx context.Context, communityID, topicID string, replyTo int, text string) error {
	chatID, err := parseID(communityID)
	if err != nil {
		return err
	}
	params := &telego.SendMessageParams{
		ChatID:             telego.ChatID{ID: chatID},
		Text:               text,
		ParseMode:          "HTML",
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
	}
	if thread, err := strconv.Atoi(topicID); err == nil && thread > 0 {
		params.MessageThreadID = thread
	}
	if replyTo != 0 {
		params.ReplyParameters = &telego.ReplyParameters{MessageID: replyTo, AllowSendingWithoutReply: true}
	}

	if _, err := g.bot.SendMessage(ctx, params); err != nil {
		return translateError(err)
	}
	return nil
}

func (g *Gateway) MentionChannel(channelID string) string {
	return topicLabel(channelID)
}

func parseID(id string) (int64, error) {
	v, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", id, err)
	}
	return v, nil
}

// translateError maps "not found" Bot API errors to platform.ErrNotFound.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *ta.Error
	if errors.As(err, &apiErr) {
		if strings.Contains(strings.ToLower(apiErr.Description), "not found") {
			return fmt.Errorf("%w: %s", platform.ErrNotFound, apiErr.Description)
		}
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
	}
	return err
}
