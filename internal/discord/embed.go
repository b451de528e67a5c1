package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"bantrap/internal/platform"
)

const embedColor = 0xED4245

// RenderEmbed builds the log channel embed for an audit record.
func RenderEmbed(record platform.AuditRecord) *discordgo.MessageEmbed {
	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	channel := fmt.Sprintf("<#%s> (%s)", record.ChannelID, record.ChannelID)
	link := "Unavailable"
	if record.MessageURL != "" {
		link = fmt.Sprintf("[Jump to message](%s)", record.MessageURL)
	}

	embed := &discordgo.MessageEmbed{
		Title:     "🚫 Auto Ban (Trap Channel)",
		Color:     embedColor,
		Timestamp: ts.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("%s (<@%s>)", record.AuthorTag, record.AuthorID)},
			{Name: "User ID", Value: record.AuthorID, Inline: true},
			{Name: "Channel", Value: channel, Inline: true},
			{Name: "Reason", Value: record.Reason},
			{Name: "Message Link", Value: link},
		},
	}

	if record.Preview != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Content", Value: record.Preview})
	}
	if record.BanFailure != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "⚠️ Ban Failed",
			Value: record.BanFailure,
		})
	}
	return embed
}

// MessageURL is the jump link of a guild message.
func MessageURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}
