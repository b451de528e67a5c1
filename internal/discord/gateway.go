package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"bantrap/internal/platform"
)

// Gateway implements platform.Gateway on a discordgo session, preferring the
// state cache and falling back to REST.
type Gateway struct {
	session *discordgo.Session
}

func NewGateway(session *discordgo.Session) *Gateway {
	return &Gateway{session: session}
}

func (g *Gateway) FetchMember(ctx context.Context, communityID, userID string) (platform.Member, error) {
	guild, err := g.guild(ctx, communityID)
	if err != nil {
		return platform.Member{}, err
	}

	member, err := g.session.State.Member(communityID, userID)
	if err != nil || member == nil || member.User == nil {
		member, err = g.session.GuildMember(communityID, userID, discordgo.WithContext(ctx))
		if err != nil {
			return platform.Member{}, translateError(err)
		}
	}

	return platform.Member{
		User: platform.User{
			ID:  member.User.ID,
			Tag: member.User.String(),
			Bot: member.User.Bot,
		},
		Capabilities: Capabilities(GuildPermissions(guild, member)),
	}, nil
}

func (g *Gateway) BanMember(ctx context.Context, communityID, userID string, opts platform.BanOptions) error {
	err := g.session.GuildBanCreateWithReason(communityID, userID, opts.Reason,
		DeleteMessageDays(opts.RetentionWindow), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to ban %s: %w", userID, translateError(err))
	}
	return nil
}

func (g *Gateway) DeleteMessage(ctx context.Context, ref platform.MessageRef) error {
	err := g.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		return translateError(err)
	}
	return nil
}

func (g *Gateway) FetchChannel(ctx context.Context, communityID, channelID string) (platform.Channel, error) {
	ch, err := g.session.State.Channel(channelID)
	if err != nil || ch == nil {
		ch, err = g.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return platform.Channel{}, translateError(err)
		}
	}
	return ConvertChannel(ch), nil
}

func (g *Gateway) SendMessage(ctx context.Context, channel platform.Channel, record platform.AuditRecord) error {
	_, err := g.session.ChannelMessageSendEmbed(channel.ID, RenderEmbed(record), discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) MentionChannel(channelID string) string {
	return "<#" + channelID + ">"
}

// names returns the cached guild and channel names for log lines and reasons.
func (g *Gateway) names(guildID, channelID string) (string, string) {
	var guildName, channelName string
	if guild, err := g.session.State.Guild(guildID); err == nil && guild != nil {
		guildName = guild.Name
	}
	if ch, err := g.session.State.Channel(channelID); err == nil && ch != nil {
		channelName = ch.Name
	}
	return guildName, channelName
}

func (g *Gateway) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	guild, err := g.session.State.Guild(guildID)
	if err == nil && guild != nil && len(guild.Roles) > 0 {
		return guild, nil
	}
	guild, err = g.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get guild %s: %w", guildID, translateError(err))
	}
	return guild, nil
}

// translateError maps "unknown entity" responses to platform.ErrNotFound.
func translateError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMember,
			discordgo.ErrCodeUnknownUser,
			discordgo.ErrCodeUnknownChannel,
			discordgo.ErrCodeUnknownGuild,
			discordgo.ErrCodeUnknownMessage:
			return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
	}
	return err
}
