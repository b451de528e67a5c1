package service

import (
	"context"
	"errors"
	"fmt"

	"bantrap/internal/logger"
	"bantrap/internal/platform"
)

var (
	// ErrInvalidChannel is returned when a channel cannot be used as trap or log channel.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrNotAdmin is returned when the caller lacks administration rights.
	ErrNotAdmin = errors.New("administrator permission required")
	// ErrNoCommunity is returned for commands issued outside a community.
	ErrNoCommunity = errors.New("command must be used inside a community")
	// ErrUnknownCommand is returned for unsupported subcommands.
	ErrUnknownCommand = errors.New("unknown command")
)

// Command is one of the /bantrap subcommands.
type Command string

const (
	CommandSet       Command = "set"
	CommandClear     Command = "clear"
	CommandStatus    Command = "status"
	CommandSetLog    Command = "setlog"
	CommandClearLog  Command = "clearlog"
	CommandLogStatus Command = "logstatus"
)

// Commands lists the subcommands in registration order.
var Commands = []Command{
	CommandSet, CommandClear, CommandStatus,
	CommandSetLog, CommandClearLog, CommandLogStatus,
}

// Request is an administrative command issued in one community.
type Request struct {
	CommunityID  string
	CallerID     string
	Capabilities platform.Capabilities
	// ChannelID is the target of set and setlog.
	ChannelID string
}

const (
	replyInvalidChannel = "Please select a **server text channel** (not a thread/voice)."
	replyNotAdmin       = "You need the **Administrator** permission to use this command."
	replyNoCommunity    = "This command can only be used inside a server."
	replyUnknown        = "Unknown subcommand. Use one of: set, clear, status, setlog, clearlog, logstatus."
	replyLookupFailed   = "⚠️ Could not look up that channel right now, please try again."
	persistWarning      = "\n⚠️ Saving the configuration failed; this change may be lost on restart."
)

// AdminService implements the trap and log channel commands.
type AdminService struct {
	store   *ConfigStore
	gateway platform.Gateway
}

func NewAdminService(store *ConfigStore, gateway platform.Gateway) *AdminService {
	return &AdminService{store: store, gateway: gateway}
}

// Execute runs cmd and returns the reply for the caller. The error is for the
// adapter's logs; the reply already describes it.
func (a *AdminService) Execute(ctx context.Context, cmd Command, req Request) (string, error) {
	if req.CommunityID == "" {
		return replyNoCommunity, ErrNoCommunity
	}
	if !req.Capabilities.Has(platform.CapAdminister) {
		return replyNotAdmin, ErrNotAdmin
	}

	switch cmd {
	case CommandSet:
		return a.setChannel(ctx, req, false)
	case CommandSetLog:
		return a.setChannel(ctx, req, true)
	case CommandClear:
		_, err := a.store.ClearTrapChannel(ctx, req.CommunityID)
		return withPersistWarning("🧹 Trap channel cleared.", err), err
	case CommandClearLog:
		_, err := a.store.ClearLogChannel(ctx, req.CommunityID)
		return withPersistWarning("🧹 Log channel cleared.", err), err
	case CommandStatus:
		cfg := a.store.Get(req.CommunityID)
		if !cfg.HasTrap() {
			return "ℹ️ No trap channel set.", nil
		}
		return "ℹ️ Current trap channel: " + a.gateway.MentionChannel(cfg.TrapChannelID), nil
	case CommandLogStatus:
		cfg := a.store.Get(req.CommunityID)
		if !cfg.HasLog() {
			return "ℹ️ No log channel set.", nil
		}
		return "ℹ️ Current log channel: " + a.gateway.MentionChannel(cfg.LogChannelID), nil
	default:
		return replyUnknown, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}

func (a *AdminService) setChannel(ctx context.Context, req Request, logChannel bool) (string, error) {
	ch, err := a.ValidateChannel(ctx, req.CommunityID, req.ChannelID)
	if err != nil {
		if errors.Is(err, ErrInvalidChannel) {
			return replyInvalidChannel, err
		}
		return replyLookupFailed, err
	}

	mention := a.gateway.MentionChannel(ch.ID)
	if logChannel {
		_, err = a.store.SetLogChannel(ctx, req.CommunityID, ch.ID)
		logger.Infof("Log channel of community %s set to %s by %s", req.CommunityID, ch.ID, req.CallerID)
		return withPersistWarning(fmt.Sprintf("📝 Log channel set to %s. Auto-bans will be logged there.", mention), err), err
	}

	_, err = a.store.SetTrapChannel(ctx, req.CommunityID, ch.ID)
	logger.Infof("Trap channel of community %s set to %s by %s", req.CommunityID, ch.ID, req.CallerID)
	return withPersistWarning(fmt.Sprintf(
		"✅ Trap channel set to %s. Posting there will result in an **instant ban** with last 7 days of messages deleted.",
		mention), err), err
}

// ValidateChannel checks that channelID is a text-capable, non-thread channel
// of communityID.
func (a *AdminService) ValidateChannel(ctx context.Context, communityID, channelID string) (platform.Channel, error) {
	if channelID == "" {
		return platform.Channel{}, fmt.Errorf("%w: no channel given", ErrInvalidChannel)
	}
	ch, err := a.gateway.FetchChannel(ctx, communityID, channelID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return platform.Channel{}, fmt.Errorf("%w: %v", ErrInvalidChannel, err)
		}
		return platform.Channel{}, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}

	switch {
	case ch.CommunityID != communityID:
		return ch, fmt.Errorf("%w: channel %s belongs to another community", ErrInvalidChannel, ch.ID)
	case ch.Thread:
		return ch, fmt.Errorf("%w: channel %s is a thread", ErrInvalidChannel, ch.ID)
	case !ch.TextCapable:
		return ch, fmt.Errorf("%w: channel %s is not text-capable", ErrInvalidChannel, ch.ID)
	}
	return ch, nil
}

func withPersistWarning(reply string, err error) string {
	if err != nil {
		return reply + persistWarning
	}
	return reply
}
