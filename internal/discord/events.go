package discord

import (
	"github.com/bwmarrin/discordgo"

	"bantrap/internal/platform"
)

// IsSystemMessage reports whether a message was generated by Discord rather
// than typed by a user (joins, boosts, pins, ...).
func IsSystemMessage(t discordgo.MessageType) bool {
	switch t {
	case discordgo.MessageTypeDefault,
		discordgo.MessageTypeReply,
		discordgo.MessageTypeChatInputCommand,
		discordgo.MessageTypeContextMenuCommand:
		return false
	default:
		return true
	}
}

// MessageEvent converts a gateway message into an engine event. guildName and
// channelName come from the state cache and may be empty.
func MessageEvent(m *discordgo.Message, guildName, channelName string) platform.MessageEvent {
	evt := platform.MessageEvent{
		CommunityID:   m.GuildID,
		CommunityName: guildName,
		ChannelID:     m.ChannelID,
		ChannelName:   channelName,
		Message: platform.MessageRef{
			CommunityID: m.GuildID,
			ChannelID:   m.ChannelID,
			MessageID:   m.ID,
		},
		Content:   m.Content,
		Timestamp: m.Timestamp,
		System:    IsSystemMessage(m.Type),
		Webhook:   m.WebhookID != "",
	}
	if m.GuildID != "" {
		evt.URL = MessageURL(m.GuildID, m.ChannelID, m.ID)
	}
	if m.Author != nil {
		evt.Author = platform.User{
			ID:  m.Author.ID,
			Tag: m.Author.String(),
			Bot: m.Author.Bot,
		}
	}
	return evt
}

// ConvertChannel maps a Discord channel onto the platform channel model.
// Text, announcement, voice and stage channels accept messages; threads do
// too but are flagged so they can be rejected as trap or log channels.
func ConvertChannel(ch *discordgo.Channel) platform.Channel {
	out := platform.Channel{
		ID:          ch.ID,
		CommunityID: ch.GuildID,
		Name:        ch.Name,
		Thread:      ch.IsThread(),
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildVoice,
		discordgo.ChannelTypeGuildStageVoice,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		out.TextCapable = true
	}
	return out
}
