package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 1 * time.Second
	pingResolution = time.Millisecond * 500
	pongWait       = pingResolution * 4
	congestionWait = time.Second
)

var upgrader = websocket.Upgrader{}

// ErrPongDeadlineExceeded means the peer stopped answering pings.
var ErrPongDeadlineExceeded = errors.New("server: client disconnect, pong deadline exceeded")

// ErrSockCongestion means a read or write couldn't get the connection's lock
// before congestionWait elapsed.
var ErrSockCongestion = errors.New("server: socket operation failed due to congestion")

// client streams progress snapshots to one websocket peer: a liveness
// ping/pong loop, a read loop that exists only to drive the pong handler
// (this feed is push-only; a peer message is never otherwise meaningful),
// and a loop that writes whatever watchProgress sends it. watchProgress
// already paces snapshots to its own poll resolution, so client does not
// re-throttle on top of that — one place owns "how often is a progress
// snapshot worth sending."
//
// withReadLock/withWriteLock take the place of the teacher's separate websock type:
// this client only ever performs three distinct socket operations (ping,
// snapshot write, raw read), so they're methods here rather than a second
// generic read/write-callback abstraction.
type client struct {
	updates <-chan *progressSnapshot
	conn    *websocket.Conn
	rootCtx context.Context

	readSem  chan struct{}
	writeSem chan struct{}
}

func newClient(updates <-chan *progressSnapshot, w http.ResponseWriter, r *http.Request) (*client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}
	return &client{
		updates:  updates,
		conn:     conn,
		rootCtx:  r.Context(),
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
	}, nil
}

// sync runs until the client disconnects or an unrecoverable error occurs.
func (c *client) sync() error {
	group, ctx := errgroup.WithContext(c.rootCtx)
	group.Go(func() error { return c.readLoop(ctx) })
	group.Go(func() error { return c.pingPong(ctx) })
	group.Go(func() error { return c.publishLoop(ctx) })
	return group.Wait()
}

func (c *client) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	c.conn.SetPongHandler(func(string) error {
		pong <- struct{}{}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := c.writePing(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (c *client) readLoop(ctx context.Context) error {
	for {
		err := c.withReadLock(ctx, func() error {
			_, _, readErr := c.conn.ReadMessage()
			return readErr
		})
		if err != nil {
			return err
		}
	}
}

// publishLoop writes every snapshot watchProgress sends until updates
// closes or ctx is cancelled. channerics.OrDone folds that race into a
// single range, the same pattern the rest of the corpus uses to drain a
// producer channel under a done signal.
func (c *client) publishLoop(ctx context.Context) error {
	for snapshot := range channerics.OrDone(ctx.Done(), c.updates) {
		if err := c.writeSnapshot(ctx, snapshot); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) writePing(ctx context.Context) error {
	return c.withWriteLock(ctx, func() error {
		if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil && isError(err) {
			return fmt.Errorf("ping failed: %w", err)
		}
		return nil
	})
}

func (c *client) writeSnapshot(ctx context.Context, snapshot *progressSnapshot) error {
	return c.withWriteLock(ctx, func() error {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return fmt.Errorf("failed to set deadline: %w", err)
		}
		if err := c.conn.WriteJSON(snapshot); err != nil && isError(err) {
			return fmt.Errorf("publish failed: %w", err)
		}
		return nil
	})
}

// withReadLock and withWriteLock serialize access to conn, which tolerates
// only one concurrent reader and one concurrent writer.
func (c *client) withReadLock(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return nil
	case c.readSem <- struct{}{}:
		defer func() { <-c.readSem }()
		return fn()
	case <-time.After(congestionWait):
		return ErrSockCongestion
	}
}

func (c *client) withWriteLock(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return nil
	case c.writeSem <- struct{}{}:
		defer func() { <-c.writeSem }()
		return fn()
	case <-time.After(congestionWait):
		return ErrSockCongestion
	}
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}
