// Package engine turns inbound message events into trap enforcement.
package engine

import (
	"context"
	"fmt"
	"time"

	"bantrap/internal/models"
	"bantrap/internal/platform"
	"bantrap/internal/policy"
)

// DefaultRetentionWindow is how far back a banned member's messages are removed.
const DefaultRetentionWindow = 7 * 24 * time.Hour

// Result classifies how processing of one event ended.
type Result int

const (
	// ResultOK means the event was handled, including "nothing to do".
	ResultOK Result = iota
	// ResultAborted means processing stopped without acting, e.g. the author
	// could not be resolved.
	ResultAborted
	// ResultFailed means the enforcement action itself failed.
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultAborted:
		return "aborted"
	case ResultFailed:
		return "failed"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Action is what the engine did to the author or message.
type Action int

const (
	ActionNone Action = iota
	ActionDeleted
	ActionBanned
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionDeleted:
		return "deleted"
	case ActionBanned:
		return "banned"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Failure kinds reported in Outcome.Kind.
const (
	KindResolve = "resolve"
	KindBan     = "ban"
)

// Outcome is the result of processing one event.
type Outcome struct {
	Result Result
	Action Action
	// Reason explains the outcome; for bans it is the reason sent to the platform.
	Reason string
	// Kind names the failed step for ResultAborted and ResultFailed.
	Kind string
	// Err is the underlying error. With ResultOK it holds a swallowed
	// best-effort error, such as a failed message deletion.
	Err error
}

// ConfigSource provides community configs.
type ConfigSource interface {
	Get(communityID string) models.CommunityConfig
}

// Auditor records enforcement actions. Implementations must not fail.
type Auditor interface {
	Record(ctx context.Context, cfg models.CommunityConfig, evt platform.MessageEvent, reason string, banErr error)
}

// Engine applies the trap policy to message events.
type Engine struct {
	configs         ConfigSource
	gateway         platform.Gateway
	auditor         Auditor
	retentionWindow time.Duration
}

func New(configs ConfigSource, gateway platform.Gateway, auditor Auditor, retentionWindow time.Duration) *Engine {
	if retentionWindow < 0 {
		retentionWindow = DefaultRetentionWindow
	}
	return &Engine{
		configs:         configs,
		gateway:         gateway,
		auditor:         auditor,
		retentionWindow: retentionWindow,
	}
}

// Process runs one event through the pipeline. It performs no logging;
// the caller observes the returned Outcome.
func (e *Engine) Process(ctx context.Context, evt platform.MessageEvent) Outcome {
	switch {
	case evt.CommunityID == "":
		return Outcome{Result: ResultOK, Reason: "not in a community"}
	case evt.System || evt.Webhook:
		return Outcome{Result: ResultOK, Reason: "system or webhook message"}
	case evt.Author.Bot:
		return Outcome{Result: ResultOK, Reason: "bot author"}
	}

	cfg := e.configs.Get(evt.CommunityID)
	if !cfg.HasTrap() || evt.ChannelID != cfg.TrapChannelID {
		return Outcome{Result: ResultOK, Reason: "not a trap channel"}
	}

	caps, err := e.resolveCapabilities(ctx, evt)
	if err != nil {
		return Outcome{
			Result: ResultAborted,
			Reason: "could not resolve author",
			Kind:   KindResolve,
			Err:    err,
		}
	}

	if policy.IsExempt(caps) {
		out := Outcome{Result: ResultOK, Action: ActionDeleted, Reason: "exempt author"}
		if err := e.gateway.DeleteMessage(ctx, evt.Message); err != nil {
			out.Err = err
		}
		return out
	}

	reason := TrapReason(evt)
	banErr := e.gateway.BanMember(ctx, evt.CommunityID, evt.Author.ID, platform.BanOptions{
		RetentionWindow: e.retentionWindow,
		Reason:          reason,
	})

	if e.auditor != nil && cfg.HasLog() {
		e.auditor.Record(ctx, cfg, evt, reason, banErr)
	}

	if banErr != nil {
		return Outcome{Result: ResultFailed, Reason: reason, Kind: KindBan, Err: banErr}
	}
	return Outcome{Result: ResultOK, Action: ActionBanned, Reason: reason}
}

func (e *Engine) resolveCapabilities(ctx context.Context, evt platform.MessageEvent) (platform.Capabilities, error) {
	if evt.Capabilities != nil {
		return *evt.Capabilities, nil
	}
	member, err := e.gateway.FetchMember(ctx, evt.CommunityID, evt.Author.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch member %s: %w", evt.Author.ID, err)
	}
	return member.Capabilities, nil
}

// TrapReason is the ban reason for a post in the event's channel.
func TrapReason(evt platform.MessageEvent) string {
	name := evt.ChannelName
	if name == "" {
		name = evt.ChannelID
	}
	return "Posted in trap channel #" + name
}
