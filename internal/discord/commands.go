package discord

import (
	"github.com/bwmarrin/discordgo"

	"bantrap/internal/service"
)

// CommandName is the slash command registered by the bot.
const CommandName = "bantrap"

var subcommandDescriptions = map[service.Command]string{
	service.CommandSet:       "Set the trap channel.",
	service.CommandClear:     "Clear the trap channel.",
	service.CommandStatus:    "Show current trap channel.",
	service.CommandSetLog:    "Set the log channel.",
	service.CommandClearLog:  "Clear the log channel.",
	service.CommandLogStatus: "Show the current log channel.",
}

var channelOptionDescriptions = map[service.Command]string{
	service.CommandSet:    "The channel to trap.",
	service.CommandSetLog: "The channel for ban logs.",
}

// ApplicationCommands returns the /bantrap definition.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	dmPermission := false

	options := make([]*discordgo.ApplicationCommandOption, 0, len(service.Commands))
	for _, cmd := range service.Commands {
		opt := &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        string(cmd),
			Description: subcommandDescriptions[cmd],
		}
		if desc, ok := channelOptionDescriptions[cmd]; ok {
			opt.Options = []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: desc,
					Required:    true,
				},
			}
		}
		options = append(options, opt)
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandName,
			Description:              "Configure or check the auto-ban trap channel & logging.",
			DefaultMemberPermissions: &adminOnly,
			DMPermission:             &dmPermission,
			Options:                  options,
		},
	}
}

// ParseCommand extracts the subcommand and request from a /bantrap
// interaction. ok is false for other interactions.
func ParseCommand(i *discordgo.InteractionCreate) (service.Command, service.Request, bool) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return "", service.Request{}, false
	}
	data := i.ApplicationCommandData()
	if data.Name != CommandName || len(data.Options) == 0 {
		return "", service.Request{}, false
	}

	sub := data.Options[0]
	req := service.Request{CommunityID: i.GuildID}
	if i.Member != nil {
		req.Capabilities = Capabilities(i.Member.Permissions)
		if i.Member.User != nil {
			req.CallerID = i.Member.User.ID
		}
	} else if i.User != nil {
		req.CallerID = i.User.ID
	}

	for _, opt := range sub.Options {
		if opt.Name != "channel" {
			continue
		}
		if id, ok := opt.Value.(string); ok {
			req.ChannelID = id
		}
	}
	return service.Command(sub.Name), req, true
}
