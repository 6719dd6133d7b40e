// Package ws serves factory environments over websocket connections, one
// independent environment per connection.
package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/napolitain/factory-env/internal/metrics"
	"github.com/napolitain/factory-env/internal/protocol"
	"github.com/napolitain/factory-env/internal/resolver"
)

const (
	handshakeTimeout = 5 * time.Second
	idleTimeout      = 5 * time.Minute
	writeTimeout     = 5 * time.Second
	maxMessageSize   = 4 * 1024
)

// Options configures a Server
type Options struct {
	Horizon     float64
	MaxSessions int
	Valuation   resolver.Valuation
	Logger      *slog.Logger
	Metrics     *metrics.EpisodeMetricsCollector // optional
}

type Server struct {
	opts  Options
	log   *slog.Logger
	slots chan struct{}

	upgrader websocket.Upgrader
}

func NewServer(opts Options) (*Server, error) {
	if _, err := resolver.New(opts.Horizon); err != nil {
		return nil, err
	}
	if opts.MaxSessions < 1 {
		return nil, fmt.Errorf("max sessions must be at least 1, got %d", opts.MaxSessions)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		opts:  opts,
		log:   logger,
		slots: make(chan struct{}, opts.MaxSessions),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxMessageSize)

		select {
		case s.slots <- struct{}{}:
			defer func() { <-s.slots }()
		default:
			_ = writeJSON(conn, protocol.NewError(protocol.ErrServerBusy, "session limit %d reached", s.opts.MaxSessions))
			closeWith(conn, websocket.CloseTryAgainLater, "busy")
			return
		}

		sess, err := s.newSession()
		if err != nil {
			_ = writeJSON(conn, protocol.NewError(protocol.ErrInternal, "%v", err))
			return
		}
		if m := s.opts.Metrics; m != nil {
			m.SessionOpened()
			defer m.SessionClosed()
		}

		if !s.handshake(conn, sess) {
			return
		}
		sess.log.Info("session started", "remote", r.RemoteAddr)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					sess.log.Debug("read failed", "error", err)
				}
				break
			}
			if err := writeJSON(conn, sess.handle(msg)); err != nil {
				sess.log.Debug("write failed", "error", err)
				break
			}
		}
		sess.log.Info("session ended")
	}
}

func (s *Server) newSession() (*session, error) {
	opts := []resolver.Option{resolver.WithLogger(s.log)}
	if s.opts.Valuation != nil {
		opts = append(opts, resolver.WithValuation(s.opts.Valuation))
	}
	if s.opts.Metrics != nil {
		opts = append(opts, resolver.WithRecorder(s.opts.Metrics))
	}

	env, err := resolver.New(s.opts.Horizon, opts...)
	if err != nil {
		return nil, err
	}
	return newSession(env, s.log), nil
}

// handshake expects HELLO with a matching version and answers WELCOME
func (s *Server) handshake(conn *websocket.Conn, sess *session) bool {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "expected HELLO"))
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoVersion, "server speaks %s, got %q", protocol.Version, hello.ProtocolVersion))
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return false
	}

	return writeJSON(conn, protocol.NewWelcome(sess.id, s.opts.Horizon)) == nil
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	}
	return nil
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}
