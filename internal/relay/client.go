package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/yuichat/yuichat/internal/proto"
)

const publishTimeout = 5 * time.Second

// Client is a broadcast transport backed by a relay connection. It
// satisfies the session engine's Transport contract, so a session cannot
// tell a relayed channel from an in-process one.
type Client struct {
	ws     *websocket.Conn
	log    *zerolog.Logger
	frames chan proto.Frame
	cancel context.CancelFunc
	once   sync.Once
}

// Dial connects to the relay. The read loop is running before Dial
// returns, so a subsequent handshake cannot miss replies.
func Dial(ctx context.Context, url string, logger *zerolog.Logger) (*Client, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ws:     ws,
		log:    logger,
		frames: make(chan proto.Frame, connBuffer),
		cancel: cancel,
	}
	go c.readLoop(runCtx)
	return c, nil
}

// Publish sends the frame to the relay, fire and forget.
func (c *Client) Publish(f proto.Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.ws, f); err != nil {
		c.log.Warn().Err(err).Msg("publish to relay failed")
	}
}

// Frames is the receive side of the transport. Closed when the
// connection ends.
func (c *Client) Frames() <-chan proto.Frame { return c.frames }

// Close tears the connection down and closes the frame channel.
func (c *Client) Close() error {
	c.cancel()
	err := c.ws.Close(websocket.StatusNormalClosure, "closing")
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func (c *Client) readLoop(ctx context.Context) {
	defer c.once.Do(func() { close(c.frames) })
	for {
		var f proto.Frame
		if err := wsjson.Read(ctx, c.ws, &f); err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.log.Debug().Err(err).Msg("relay read ended")
			}
			return
		}
		select {
		case c.frames <- f:
		default:
			// Drop if the session falls behind; the channel has no replay anyway.
		}
	}
}
