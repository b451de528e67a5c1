// Package discord connects the enforcement core to a Discord bot account.
package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"bantrap/internal/config"
	"bantrap/internal/crash"
	"bantrap/internal/logger"
	"bantrap/internal/platform"
	"bantrap/internal/service"
)

const commandTimeout = 10 * time.Second

// Bot owns the Discord session and routes its events.
type Bot struct {
	session        *discordgo.Session
	gateway        *Gateway
	commandGuildID string

	sink  platform.EventSink
	admin *service.AdminService
}

// New creates the session. Nothing is sent to Discord until Start.
func New(cfg config.DiscordConfig) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent
	session.State.TrackMembers = true
	session.State.TrackRoles = true
	session.State.TrackChannels = true

	session.LogLevel = discordgo.LogWarning
	if logger.GetLevel() <= logger.LevelDebug {
		session.LogLevel = discordgo.LogDebug
	}
	discordgo.Logger = bridgeLog

	return &Bot{
		session:        session,
		gateway:        NewGateway(session),
		commandGuildID: cfg.CommandGuildID,
	}, nil
}

// Gateway returns the platform operations backed by this session.
func (b *Bot) Gateway() platform.Gateway {
	return b.gateway
}

// Start registers handlers and opens the websocket.
func (b *Bot) Start(sink platform.EventSink, admin *service.AdminService) error {
	b.sink = sink
	b.admin = admin

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	logger.Info("Discord connection opened")
	return nil
}

// Stop closes the websocket.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	name, appID := readyIdentity(r)
	b.sink.Ready(name)

	if appID == "" {
		logger.Warning("Ready event without an application id, slash commands not registered")
		return
	}
	crash.SafeGoroutine("register-commands", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := b.registerCommands(ctx, appID); err != nil {
			logger.Errorf("Failed to register commands: %v", err)
			return
		}
		logger.Info("Slash commands registered.")
	})
}

// readyIdentity returns the bot's display name and the application id commands
// are registered under.
func readyIdentity(r *discordgo.Ready) (name, appID string) {
	name = "unknown"
	if r == nil {
		return name, ""
	}
	if r.User != nil {
		name = r.User.String()
		appID = r.User.ID
	}
	if appID == "" && r.Application != nil {
		appID = r.Application.ID
	}
	return name, appID
}

func (b *Bot) registerCommands(ctx context.Context, appID string) error {
	commands := ApplicationCommands()
	if b.commandGuildID != "" {
		logger.Infof("Registering %d commands to guild %s", len(commands), b.commandGuildID)
	} else {
		logger.Infof("Registering %d global commands", len(commands))
	}
	_, err := b.session.ApplicationCommandBulkOverwrite(appID, b.commandGuildID, commands, discordgo.WithContext(ctx))
	return err
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil {
		return
	}
	guildName, channelName := b.gateway.names(m.GuildID, m.ChannelID)
	b.sink.MessageCreated(MessageEvent(m.Message, guildName, channelName))
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer crash.RecoverWithStack("discord-interaction")

	cmd, req, ok := ParseCommand(i)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply, err := b.admin.Execute(ctx, cmd, req)
	if err != nil {
		logger.Warningf("Command /%s %s in guild %s by %s: %v", CommandName, cmd, req.CommunityID, req.CallerID, err)
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		logger.Warningf("Error replying to interaction %s: %v", i.ID, err)
	}
}

// bridgeLog sends discordgo's internal logging through the bot logger.
func bridgeLog(msgL, caller int, format string, a ...interface{}) {
	msg := fmt.Sprintf("[discordgo] "+format, a...)
	switch msgL {
	case discordgo.LogError:
		logger.Error(msg)
	case discordgo.LogWarning:
		logger.Warning(msg)
	case discordgo.LogInformational:
		logger.Info(msg)
	default:
		logger.Debug(msg)
	}
}
