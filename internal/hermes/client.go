package hermes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"
)

const (
	SubjectAgentRegistered = "wayfarer.agent.registered"
	SubjectRouteGenerated  = "wayfarer.route.generated"
	SubjectRouteFailed     = "wayfarer.route.failed"

	// SubjectTelegramUpdate carries raw Telegram updates forwarded by a gateway.
	SubjectTelegramUpdate = "wayfarer.telegram.update"
)

// RouteEvent is emitted after every generation attempt, successful or not.
// It carries no user text.
type RouteEvent struct {
	ID          string    `json:"id"`
	ChatID      int64     `json:"chat_id"`
	Provider    string    `json:"provider"`
	Mode        string    `json:"mode"`
	Status      string    `json:"status"`
	OperationID string    `json:"operation_id,omitempty"`
	PromptChars int       `json:"prompt_chars"`
	Points      int       `json:"points"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Subject returns the subject the event is published on.
func (e RouteEvent) Subject() string {
	if e.Status == "ok" {
		return SubjectRouteGenerated
	}
	return SubjectRouteFailed
}

// AgentRegistered announces a running instance.
type AgentRegistered struct {
	Agent     string    `json:"agent"`
	Version   string    `json:"version"`
	Provider  string    `json:"provider"`
	Transport string    `json:"transport"`
	StartedAt time.Time `json:"started_at"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("wayfarer"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := sonic.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// PublishRoute sends ev on its generated/failed subject.
func (c *Client) PublishRoute(ev RouteEvent) error {
	if err := c.Publish(ev.Subject(), ev); err != nil {
		return fmt.Errorf("publish route event: %w", err)
	}
	return nil
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Connected reports whether the underlying connection is up.
func (c *Client) Connected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
