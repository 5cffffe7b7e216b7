package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	customerrors "github.com/bavix/dobson/internal/errors"
)

const (
	defaultReceiveTimeout    = time.Second
	defaultReconnectDelay    = 5 * time.Second
	defaultMaxReconnectDelay = time.Minute
	defaultHTTPTimeout       = 30 * time.Second
)

var (
	errInvalidAuth  = errors.New("slack rejected the token")
	errDisconnected = errors.New("slack connection dropped")
)

// SlackOptions configures the Slack transport.
type SlackOptions struct {
	Token             string
	APIURL            string // empty means slack.com
	ReceiveTimeout    time.Duration
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HTTPClient        *http.Client
}

// Slack reads events over RTM and posts replies with chat.postMessage.
type Slack struct {
	api  *slack.Client
	opts SlackOptions

	mu     sync.Mutex
	rtm    *slack.RTM
	userID string
}

func NewSlack(opts SlackOptions) *Slack {
	if opts.ReceiveTimeout <= 0 {
		opts.ReceiveTimeout = defaultReceiveTimeout
	}

	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}

	if opts.MaxReconnectDelay < opts.ReconnectDelay {
		opts.MaxReconnectDelay = max(defaultMaxReconnectDelay, opts.ReconnectDelay)
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	clientOpts := []slack.Option{slack.OptionHTTPClient(opts.HTTPClient)}
	if opts.APIURL != "" {
		clientOpts = append(clientOpts, slack.OptionAPIURL(opts.APIURL))
	}

	return &Slack{
		api:  slack.New(opts.Token, clientOpts...),
		opts: opts,
	}
}

// UserID is the bot's own user id, known after Connect.
func (s *Slack) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.userID
}

// Connect verifies the token and opens an RTM session. Temporary failures
// are retried with exponential backoff until ctx is done; a rejected token
// fails immediately.
func (s *Slack) Connect(ctx context.Context) error {
	if s.current() != nil {
		return nil
	}

	logger := zerolog.Ctx(ctx)

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(s.opts.ReconnectDelay),
		backoff.WithMaxInterval(s.opts.MaxReconnectDelay),
		backoff.WithMaxElapsedTime(0),
	)

	auth, err := backoff.RetryNotifyWithData(func() (*slack.AuthTestResponse, error) {
		resp, err := s.api.AuthTestContext(ctx)
		if err != nil && isAuthError(err) {
			return nil, backoff.Permanent(err)
		}

		return resp, err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", next).Msg("slack connect failed")
	})
	if err != nil {
		return customerrors.ErrTransportWithCause(err)
	}

	rtm := s.api.NewRTM()
	go rtm.ManageConnection()

	s.mu.Lock()
	s.rtm = rtm
	s.userID = auth.UserID
	s.mu.Unlock()

	logger.Info().Str("user_id", auth.UserID).Str("team", auth.Team).Msg("connected to slack")

	return nil
}

// Receive waits up to the receive timeout for the first event, then drains
// whatever else is buffered. Messages read before a connection error are
// returned together with the error, after which the transport is
// disconnected and Connect must be called again.
func (s *Slack) Receive(ctx context.Context) ([]Message, error) {
	rtm := s.current()
	if rtm == nil {
		return nil, customerrors.ErrTransportWithCause(customerrors.ErrNotConnected)
	}

	timer := time.NewTimer(s.opts.ReceiveTimeout)
	defer timer.Stop()

	var msgs []Message

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case ev := <-rtm.IncomingEvents:
		var err error
		if msgs, err = s.collect(msgs, ev); err != nil {
			s.drop(rtm)

			return msgs, err
		}
	}

	for {
		select {
		case ev := <-rtm.IncomingEvents:
			var err error
			if msgs, err = s.collect(msgs, ev); err != nil {
				s.drop(rtm)

				return msgs, err
			}
		default:
			return msgs, nil
		}
	}
}

// Send posts text to channel as the bot user.
func (s *Slack) Send(ctx context.Context, channel, text string) error {
	_, _, err := s.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return customerrors.ErrTransportWithCause(err)
	}

	return nil
}

// Close ends the RTM session, if any.
func (s *Slack) Close() error {
	if rtm := s.current(); rtm != nil {
		s.drop(rtm)
	}

	return nil
}

func (s *Slack) collect(msgs []Message, ev slack.RTMEvent) ([]Message, error) {
	msg, err := FromRTMEvent(ev)
	if err != nil {
		return msgs, err
	}

	if msg.Type == TypeMessage && msg.User != "" && msg.User == s.UserID() {
		return msgs, nil
	}

	return append(msgs, msg), nil
}

func (s *Slack) current() *slack.RTM {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rtm
}

// drop forgets rtm and shuts it down in the background. Its event channel
// is drained until the shutdown completes so ManageConnection never blocks.
func (s *Slack) drop(rtm *slack.RTM) {
	s.mu.Lock()
	if s.rtm == rtm {
		s.rtm = nil
	}
	s.mu.Unlock()

	done := make(chan struct{})

	go func() {
		_ = rtm.Disconnect()

		close(done)
	}()

	go func() {
		for {
			select {
			case <-rtm.IncomingEvents:
			case <-done:
				return
			}
		}
	}()
}

// FromRTMEvent converts an RTM event. Connection failures become errors
// wrapping errors.ErrTransport.
func FromRTMEvent(ev slack.RTMEvent) (Message, error) {
	switch data := ev.Data.(type) {
	case *slack.MessageEvent:
		typ := data.Type
		if typ == "" {
			typ = ev.Type
		}

		return Message{Channel: data.Channel, Type: typ, Text: data.Text, User: data.User}, nil
	case *slack.InvalidAuthEvent:
		return Message{}, customerrors.ErrTransportWithCause(errInvalidAuth)
	case *slack.ConnectionErrorEvent:
		cause := data.ErrorObj
		if cause == nil {
			cause = errDisconnected
		}

		return Message{}, customerrors.ErrTransportWithCause(cause)
	case *slack.DisconnectedEvent:
		if data.Intentional {
			return Message{Type: ev.Type}, nil
		}

		cause := data.Cause
		if cause == nil {
			cause = errDisconnected
		}

		return Message{}, customerrors.ErrTransportWithCause(cause)
	default:
		return Message{Type: ev.Type}, nil
	}
}

func isAuthError(err error) bool {
	var se slack.SlackErrorResponse
	if !errors.As(err, &se) {
		return false
	}

	switch se.Err {
	case "invalid_auth", "not_authed", "account_inactive", "token_revoked":
		return true
	default:
		return false
	}
}
