// Package relay bridges broadcast channels across processes: every frame
// a connection sends is fanned out to all other connections on the same
// channel, which is exactly how browser tabs see a shared channel. The
// relay keeps nothing: no history, no replay, no acknowledgment.
package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yuichat/yuichat/internal/proto"
)

const connBuffer = 64

// defaultChannel matches the fixed name the browser build used.
const defaultChannel = "yui_chat_room"

// Server fans frames out across the connections of each channel.
type Server struct {
	log *zerolog.Logger

	mu       sync.Mutex
	channels map[string]map[*conn]struct{}
}

type conn struct {
	ws      *websocket.Conn
	channel string
	frames  chan proto.Frame
}

// NewServer builds an empty relay.
func NewServer(logger *zerolog.Logger) *Server {
	return &Server{
		log:      logger,
		channels: make(map[string]map[*conn]struct{}),
	}
}

// Router builds the gin handler: /health plus the /ws endpoint. The
// channel query parameter selects the room; it defaults to the fixed
// name the browser build used.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), loggerMiddleware(s.log))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/ws", func(c *gin.Context) {
		channel := c.Query("channel")
		if channel == "" {
			channel = defaultChannel
		}
		s.handleWS(c.Writer, c.Request, channel)
	})
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, channel string) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer ws.Close(websocket.StatusInternalError, "internal error")

	cn := &conn{ws: ws, channel: channel, frames: make(chan proto.Frame, connBuffer)}
	s.add(cn)
	defer s.remove(cn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.readLoop(ctx, cn)
	}()
	go func() {
		errCh <- s.writeLoop(ctx, cn)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if st := websocket.CloseStatus(err); st != 0 {
			status = st
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			s.log.Warn().Err(err).Str("channel", cn.channel).Msg("ws connection closed with error")
		}
	}

	ws.Close(status, reason)
}

func (s *Server) readLoop(ctx context.Context, cn *conn) error {
	for {
		var f proto.Frame
		if err := wsjson.Read(ctx, cn.ws, &f); err != nil {
			return err
		}
		s.broadcast(cn, f)
	}
}

func (s *Server) writeLoop(ctx context.Context, cn *conn) error {
	for {
		select {
		case f := <-cn.frames:
			if err := wsjson.Write(ctx, cn.ws, f); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// broadcast fans the frame out to every other connection on the channel.
// Delivery is at-most-once: a connection whose buffer is full misses it.
func (s *Server) broadcast(from *conn, f proto.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cn := range s.channels[from.channel] {
		if cn == from {
			continue
		}
		select {
		case cn.frames <- f:
		default:
			// Drop if slow consumer.
		}
	}
}

func (s *Server) add(cn *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns := s.channels[cn.channel]
	if conns == nil {
		conns = make(map[*conn]struct{})
		s.channels[cn.channel] = conns
	}
	conns[cn] = struct{}{}
}

func (s *Server) remove(cn *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns := s.channels[cn.channel]
	delete(conns, cn)
	if len(conns) == 0 {
		delete(s.channels, cn.channel)
	}
}

func loggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
