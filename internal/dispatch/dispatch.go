// Package dispatch maps chat messages to bot commands and their replies.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bavix/dobson/internal/chat"
	"github.com/bavix/dobson/internal/metrics"
	"github.com/bavix/dobson/internal/presence"
	"github.com/bavix/dobson/internal/reply"
)

// Command is what an addressed message asks for.
type Command int

const (
	CommandNone Command = iota
	CommandHelp
	CommandListUnknown
	CommandWho
)

func (c Command) String() string {
	switch c {
	case CommandHelp:
		return "help"
	case CommandListUnknown:
		return "list_unknown"
	case CommandWho:
		return "who"
	default:
		return "none"
	}
}

// Querier runs a presence scan.
type Querier interface {
	Query(ctx context.Context) (presence.Result, error)
}

// Options configures a Dispatcher.
type Options struct {
	BotName           string
	BotUserID         string
	AllowedChannelIDs []string
}

// Dispatcher answers at most once per message.
type Dispatcher struct {
	botName   string
	mention   string
	allowed   map[string]struct{}
	presence  Querier
	formatter *reply.Formatter
}

func New(opts Options, q Querier, f *reply.Formatter) *Dispatcher {
	allowed := make(map[string]struct{}, len(opts.AllowedChannelIDs))
	for _, id := range opts.AllowedChannelIDs {
		allowed[id] = struct{}{}
	}

	var mention string
	if opts.BotUserID != "" {
		mention = "<@" + opts.BotUserID + ">"
	}

	return &Dispatcher{
		botName:   strings.ToLower(opts.BotName),
		mention:   mention,
		allowed:   allowed,
		presence:  q,
		formatter: f,
	}
}

// Parse classifies text. help beats list unknown, which beats who/list.
func (d *Dispatcher) Parse(text string) Command {
	lower := strings.ToLower(text)

	addressed := (d.botName != "" && strings.HasPrefix(lower, d.botName)) ||
		(d.mention != "" && strings.HasPrefix(text, d.mention))
	if !addressed {
		return CommandNone
	}

	lower = strings.TrimSpace(lower)

	switch {
	case strings.HasSuffix(lower, "help"), strings.HasSuffix(lower, "?"):
		return CommandHelp
	case strings.HasSuffix(lower, "list unknown"):
		return CommandListUnknown
	case strings.HasSuffix(lower, "who"), strings.HasSuffix(lower, "list"):
		return CommandWho
	default:
		return CommandNone
	}
}

// Allowed reports whether replies may be posted in channel.
func (d *Dispatcher) Allowed(channel string) bool {
	_, ok := d.allowed[channel]

	return ok
}

// HelpText is the static help reply.
func (d *Dispatcher) HelpText() string {
	return fmt.Sprintf("I am a bot to give you information about %s (get it?)! Try a command like '%s who'",
		d.formatter.Location(), d.botName)
}

// FailureText is sent when the router could not be scanned.
func (d *Dispatcher) FailureText() string {
	return fmt.Sprintf("Sorry, I couldn't check who is at %s right now. Try again in a bit.", d.formatter.Location())
}

// Handle returns the reply for msg, if any.
func (d *Dispatcher) Handle(ctx context.Context, msg chat.Message) (string, bool) {
	if msg.Type != chat.TypeMessage || !d.Allowed(msg.Channel) {
		return "", false
	}

	cmd := d.Parse(msg.Text)
	if cmd == CommandNone {
		return "", false
	}

	metrics.RecordCommand(cmd.String())

	logger := zerolog.Ctx(ctx).With().
		Str("channel", msg.Channel).
		Str("user", msg.User).
		Stringer("command", cmd).
		Logger()
	logger.Info().Msg("command received")

	if cmd == CommandHelp {
		return d.HelpText(), true
	}

	res, err := d.presence.Query(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("presence query failed")

		return d.FailureText(), true
	}

	return d.formatter.Format(res.Users(), res.Unknown, cmd == CommandListUnknown), true
}
