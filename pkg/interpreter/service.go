// Package interpreter follows the live reading stream of a running
// meter_collector.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

var ErrGaveUp = errors.New("giving up on websocket connection")

const (
	defaultMaxRetries     = 10
	defaultBaseRetryDelay = 2 * time.Second
	defaultMaxRetryDelay  = 60 * time.Second
	readTimeout           = 10 * time.Second
)

type Listener struct {
	Logger         logrus.FieldLogger
	MaxRetries     int
	BaseRetryDelay time.Duration
	MaxRetryDelay  time.Duration
	// ReadTimeout drops a connection that stays silent for this long.
	ReadTimeout time.Duration
}

// Listen connects to ws://host/ws and calls fn for every reading until ctx
// is done, reconnecting with exponential backoff.
func Listen(ctx context.Context, host string, fn func(types.Reading)) error {
	l := &Listener{Logger: logrus.StandardLogger()}
	return l.Listen(ctx, host, fn)
}

func (l *Listener) defaults() {
	if l.Logger == nil {
		l.Logger = logrus.StandardLogger()
	}
	if l.MaxRetries <= 0 {
		l.MaxRetries = defaultMaxRetries
	}
	if l.BaseRetryDelay <= 0 {
		l.BaseRetryDelay = defaultBaseRetryDelay
	}
	if l.MaxRetryDelay <= 0 {
		l.MaxRetryDelay = defaultMaxRetryDelay
	}
	if l.ReadTimeout <= 0 {
		l.ReadTimeout = readTimeout
	}
}

// retryDelay doubles per attempt, capped at MaxRetryDelay.
func (l *Listener) retryDelay(attempt int) time.Duration {
	delay := l.BaseRetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= l.MaxRetryDelay {
			return l.MaxRetryDelay
		}
	}
	return min(delay, l.MaxRetryDelay)
}

// Listen returns nil once ctx is done and ErrGaveUp after MaxRetries
// consecutive failed connection attempts.
func (l *Listener) Listen(ctx context.Context, host string, fn func(types.Reading)) error {
	l.defaults()
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}

	retryCount := 0
	for {
		if retryCount > 0 {
			delay := l.retryDelay(retryCount)
			l.Logger.Infof("Retrying connection in %v... (attempt %d/%d)", delay, retryCount+1, l.MaxRetries)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
		}

		l.Logger.Infof("Connecting to %s", u.String())

		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.Logger.WithError(err).Warn("Connection failed")
			retryCount++
			if retryCount >= l.MaxRetries {
				return fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, retryCount, err)
			}
			continue
		}

		l.Logger.Info("Connected! Accepting meter readings.")
		retryCount = 0

		broken := l.handleConnection(ctx, c, fn)
		c.Close()
		if !broken {
			return nil
		}

		l.Logger.Info("Connection lost, will retry...")
		retryCount = 1
	}
}

// handleConnection reports whether the connection broke, as opposed to ctx
// being cancelled.
func (l *Listener) handleConnection(ctx context.Context, c *websocket.Conn, fn func(types.Reading)) bool {
	done := make(chan struct{})

	c.SetReadDeadline(time.Now().Add(l.ReadTimeout))
	// The hub stays quiet while the counters do not move; pongs keep the
	// connection alive in between.
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(l.ReadTimeout))
	})

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					l.Logger.WithError(err).Warn("WebSocket error")
				} else {
					l.Logger.WithError(err).Debug("Connection closed")
				}
				return
			}

			c.SetReadDeadline(time.Now().Add(l.ReadTimeout))

			if messageType != websocket.TextMessage {
				l.Logger.Debugf("Received unexpected message type: %d", messageType)
				continue
			}
			if reading := types.ReadingFromJsonBytes(message); reading != nil {
				fn(*reading)
			} else {
				l.Logger.Warnf("Failed to parse meter reading: %s", string(message))
			}
		}
	}()

	ticker := time.NewTicker(l.ReadTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return true
		case <-ticker.C:
			deadline := time.Now().Add(time.Second)
			if err := c.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				l.Logger.WithError(err).Warn("Failed to send ping")
			}
		case <-ctx.Done():
			err := c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			if err != nil {
				l.Logger.WithError(err).Debug("Error sending close message")
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
