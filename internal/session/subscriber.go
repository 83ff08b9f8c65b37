package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"channel-chat-service/internal/models"
)

// Subscriber keeps a Session fed with live broadcast events. The bus has no
// replay, so after every successful (re)connect the session is resynced
// against the store to close whatever gap the disconnect opened.
type Subscriber struct {
	wsURL   string
	session *Session
	logger  *zap.SugaredLogger
	dialer  *websocket.Dialer
	backoff time.Duration
}

// NewSubscriber builds a Subscriber dialing wsURL (a ws:// endpoint already
// carrying the channel query).
func NewSubscriber(wsURL string, sess *Session, logger *zap.SugaredLogger) *Subscriber {
	return &Subscriber{
		wsURL:   wsURL,
		session: sess,
		logger:  logger,
		dialer:  websocket.DefaultDialer,
		backoff: 2 * time.Second,
	}
}

// Run dials, resyncs and pumps events until ctx is cancelled, re-dialing
// with a fixed backoff after every disconnect.
func (s *Subscriber) Run(ctx context.Context) {
	for ctx.Err() == nil {
		conn, _, err := s.dialer.DialContext(ctx, s.wsURL, nil)
		if err != nil {
			s.logger.Warnw("ws dial failed", "url", s.wsURL, "error", err)
			if !sleep(ctx, s.backoff) {
				return
			}
			continue
		}

		if err := s.session.Resync(ctx); err != nil {
			s.logger.Warnw("resync after connect failed", "error", err)
		}

		s.pump(ctx, conn)
	}
}

func (s *Subscriber) pump(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Debugw("ws read ended", "error", err)
			}
			return
		}
		var ev models.Event
		if err := json.Unmarshal(frame, &ev); err != nil {
			s.logger.Warnw("bad event frame", "error", err)
			continue
		}
		s.session.HandleEvent(ev)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
