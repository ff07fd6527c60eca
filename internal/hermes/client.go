package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// flushTimeout bounds how long Close waits for outstanding stream acks.
const flushTimeout = 5 * time.Second

// Client publishes JSON events and subscribes to raw subjects.
type Client interface {
	Publish(subject string, data interface{}) error
	Subscribe(subject string, handler func(subject string, data []byte)) error
	Close()
}

// NATSClient sends stream subjects through JetStream without waiting for the
// ack. Other subjects use core NATS.
type NATSClient struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

func NewNATSClient(ctx context.Context, url string, logger *slog.Logger) (*NATSClient, error) {
	nc, err := nats.Connect(url, connectOptions(logger)...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, StreamConfig()); err != nil {
		logger.Warn("failed to ensure stream", "stream", StreamName, "error", err)
	}
	return &NATSClient{conn: nc, js: js, logger: logger}, nil
}

func connectOptions(logger *slog.Logger) []nats.Option {
	return []nats.Option{
		nats.Name("archetype"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("hermes disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("hermes reconnected", "url", nc.ConnectedUrl())
		}),
	}
}

// StreamConfig describes the event stream the service keeps.
func StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: append([]string(nil), streamSubjects...),
		Storage:  jetstream.FileStorage,
		MaxAge:   StreamMaxAge,
	}
}

// NewMessage encodes data as a JSON message for subject.
func NewMessage(subject string, data interface{}) (*nats.Msg, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", subject, err)
	}
	msg := nats.NewMsg(subject)
	msg.Header.Set("Content-Type", "application/json")
	msg.Data = payload
	return msg, nil
}

func (c *NATSClient) Publish(subject string, data interface{}) error {
	msg, err := NewMessage(subject, data)
	if err != nil {
		return err
	}
	if !Streamed(subject) {
		return c.conn.PublishMsg(msg)
	}
	if _, err := c.js.PublishMsgAsync(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe joins QueueGroup, so each message reaches one replica.
func (c *NATSClient) Subscribe(subject string, handler func(string, []byte)) error {
	_, err := c.conn.QueueSubscribe(subject, QueueGroup, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	return err
}

// Close waits for outstanding stream acks, then drains subscriptions and
// closes the connection.
func (c *NATSClient) Close() {
	select {
	case <-c.js.PublishAsyncComplete():
	case <-time.After(flushTimeout):
		c.logger.Warn("hermes closed with unacknowledged events", "pending", c.js.PublishAsyncPending())
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("hermes drain failed", "error", err)
		c.conn.Close()
	}
}
