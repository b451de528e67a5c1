// Package telegram connects the enforcement core to a Telegram bot account.
// Communities are supergroups and channels are their forum topics.
package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"bantrap/internal/config"
	"bantrap/internal/crash"
	"bantrap/internal/logger"
	"bantrap/internal/platform"
	"bantrap/internal/service"
)

// CommandName is the bot command handled in groups.
const CommandName = "bantrap"

const (
	commandTimeout = 10 * time.Second

	replySetOutsideTopic = "Run **/bantrap set** inside the forum topic you want to trap."
)

type memberFetcher interface {
	FetchMember(ctx context.Context, communityID, userID string) (platform.Member, error)
}

// Bot owns the Bot API client and routes its updates.
type Bot struct {
	bot     *telego.Bot
	gateway *Gateway
	handler *th.BotHandler
	cfg     config.TelegramConfig
	tls     bool
	mux     *http.ServeMux

	sink    platform.EventSink
	admin   *service.AdminService
	// members resolves command callers; the gateway outside tests.
	members memberFetcher

	cancel context.CancelFunc
}

// New creates the client. Nothing is sent to Telegram until Start.
func New(cfg *config.Config) (*Bot, error) {
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	tl := telegoLogger{}
	if cfg.Telegram.Debug {
		tl.debug = log.New(logger.GetRotatingLogWriter(cfg, "telego"), "[telego] ", log.LstdFlags)
	}

	bot, err := telego.NewBot(cfg.Telegram.Token, telego.WithLogger(tl))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	gateway := NewGateway(bot)
	return &Bot{
		bot:     bot,
		gateway: gateway,
		members: gateway,
		cfg:     cfg.Telegram,
		tls:     cfg.Telegram.Webhook.CertFile != "" && cfg.Telegram.Webhook.KeyFile != "",
	}, nil
}

// Gateway returns the platform operations backed by this bot.
func (b *Bot) Gateway() platform.Gateway {
	return b.gateway
}

// UseMux sets the router the webhook receiver is mounted on.
func (b *Bot) UseMux(mux *http.ServeMux) {
	b.mux = mux
}

// Start connects, registers commands and begins handling updates.
func (b *Bot) Start(sink platform.EventSink, admin *service.AdminService) error {
	b.sink = sink
	b.admin = admin

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	botUser, err := b.bot.GetMe(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	sink.Ready("@" + botUser.Username)

	b.registerCommands(ctx)

	if err := b.bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
		cancel()
		return fmt.Errorf("failed to delete existing webhook: %w", err)
	}

	var updates <-chan telego.Update
	if b.cfg.Mode == config.TelegramModeWebhook {
		updates, err = SetupWebhook(ctx, b.bot, b.mux, b.cfg.Webhook.Endpoint, webhookSecret(b.cfg.Token, b.cfg.Webhook.Secret), b.tls)
	} else {
		logger.Info("Receiving updates via long polling")
		updates, err = b.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
			Timeout:        30,
			AllowedUpdates: allowedUpdates,
		})
	}
	if err != nil {
		cancel()
		return err
	}

	bh, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create bot handler: %w", err)
	}
	b.handler = bh

	bh.HandleMessage(b.onCommand, th.CommandEqual(CommandName))
	bh.HandleMessage(b.onMessage)

	crash.SafeGoroutine("telegram-handler", func() {
		bh.Start()
	})
	return nil
}

// Stop stops update handling and long polling.
func (b *Bot) Stop() error {
	if b.handler != nil {
		b.handler.Stop()
	}
	if b.cancel != nil {
		b.cancel()
	}
	return nil
}

func (b *Bot) registerCommands(ctx context.Context) {
	err := b.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: CommandName, Description: "Configure or check the auto-ban trap topic & logging"},
		},
	})
	if err != nil {
		logger.Warningf("Failed to set bot commands: %v", err)
		return
	}
	logger.Info("Bot commands registered.")
}

func (b *Bot) onMessage(ctx *th.Context, message telego.Message) error {
	b.sink.MessageCreated(MessageEvent(message))
	return nil
}

func (b *Bot) onCommand(ctx *th.Context, message telego.Message) error {
	defer crash.RecoverWithStack("telegram-command")

	cmdCtx, cancel := context.WithTimeout(ctx.Context(), commandTimeout)
	defer cancel()

	reply := b.handleCommand(cmdCtx, message)

	err := b.gateway.sendHTML(cmdCtx, strconv.FormatInt(message.Chat.ID, 10), TopicID(message), message.MessageID, ToHTML(reply))
	if err != nil {
		logger.Warningf("Error replying to command in chat %d: %v", message.Chat.ID, err)
	}
	return nil
}

// handleCommand runs a /bantrap message and returns the reply. The message is
// also an ordinary post: it goes to the sink first so a command typed into
// the trap topic is enforced like any other message.
func (b *Bot) handleCommand(ctx context.Context, message telego.Message) string {
	b.sink.MessageCreated(MessageEvent(message))

	cmd, req := ParseCommand(message)
	if cmd == service.CommandSet && req.CommunityID != "" && req.ChannelID == GeneralTopic {
		return replySetOutsideTopic
	}

	req.Capabilities = b.callerCapabilities(ctx, message, req)
	reply, err := b.admin.Execute(ctx, cmd, req)
	if err != nil {
		logger.Warningf("Command /%s %s in chat %d by %s: %v", CommandName, cmd, message.Chat.ID, req.CallerID, err)
	}
	return reply
}

// callerCapabilities resolves the command sender's rights. A message sent on
// behalf of the group itself comes from an anonymous administrator.
func (b *Bot) callerCapabilities(ctx context.Context, message telego.Message, req service.Request) platform.Capabilities {
	if req.CommunityID == "" {
		return 0
	}
	if message.SenderChat != nil && message.SenderChat.ID == message.Chat.ID {
		return platform.CapAdminister | platform.CapBanMembers
	}
	if req.CallerID == "" {
		return 0
	}
	member, err := b.members.FetchMember(ctx, req.CommunityID, req.CallerID)
	if err != nil {
		logger.Warningf("Failed to get member %s of chat %s: %v", req.CallerID, req.CommunityID, err)
		return 0
	}
	return member.Capabilities
}

// ParseCommand reads "/bantrap <subcommand>" issued in a topic. A bare
// /bantrap shows the trap status.
func ParseCommand(message telego.Message) (service.Command, service.Request) {
	cmd := service.CommandStatus
	if _, _, args := tu.ParseCommand(message.Text); len(args) > 0 {
		cmd = service.Command(strings.ToLower(args[0]))
	}

	req := service.Request{ChannelID: TopicID(message)}
	if IsGroup(message.Chat) {
		req.CommunityID = strconv.FormatInt(message.Chat.ID, 10)
	}
	if message.From != nil {
		req.CallerID = strconv.FormatInt(message.From.ID, 10)
	}
	return cmd, req
}

// telegoLogger sends telego errors to the bot log and, in debug mode, its
// request traces to a separate rotating file.
type telegoLogger struct {
	debug *log.Logger
}

func (l telegoLogger) Debugf(format string, args ...any) {
	if l.debug != nil {
		l.debug.Printf(format, args...)
	}
}

func (l telegoLogger) Errorf(format string, args ...any) {
	logger.Errorf("[telego] "+format, args...)
}
