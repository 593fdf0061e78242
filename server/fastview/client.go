package fastview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// DefaultPublishRate is how often updates are written to the browser; faster updates are dropped.
	DefaultPublishRate = 10
	pingResolution     = time.Millisecond * 200
	// The number of pings that may go unanswered before the peer is considered gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

var (
	// ErrPongDeadlineExceeded is returned by Sync when the browser stops answering pings.
	ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")
	// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
	ErrSockCongestion = errors.New("sock op failed due to congestion")
)

// Client publishes idempotent updates to one browser over a websocket. Since each update
// fully describes the new page state, updates arriving faster than the publish rate are
// dropped and only later ones sent.
type Client[T any] struct {
	id      string
	updates <-chan T
	ws      *websock
	limiter *rate.Limiter
	logger  *slog.Logger
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	perSecond float64
	logger    *slog.Logger
}

// WithPublishRate sets the maximum number of updates written per second.
func WithPublishRate(perSecond float64) ClientOption {
	return func(o *clientOptions) {
		o.perSecond = perSecond
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// NewClient upgrades the request to a websocket publishing the items of updates.
func NewClient[T any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
	opts ...ClientOption,
) (*Client[T], error) {
	o := clientOptions{perSecond: DefaultPublishRate, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	id := uuid.NewString()[:8]
	return &Client[T]{
		id:      id,
		updates: updates,
		ws:      newWebSocket(ws),
		limiter: rate.NewLimiter(rate.Limit(o.perSecond), 1),
		logger:  o.logger.With(slog.String("client", id), slog.String("remote", r.RemoteAddr)),
	}, nil
}

// ID identifies the client in logs.
func (cli *Client[T]) ID() string {
	return cli.id
}

// Sync publishes updates until the browser disconnects, ctx is done, or updates is closed.
// It returns nil on an orderly disconnect.
func (cli *Client[T]) Sync(ctx context.Context) error {
	cli.logger.Info("client connected")

	group, groupCtx := errgroup.WithContext(ctx)
	groupCtx, cancel := context.WithCancel(groupCtx)
	// Any routine returning ends the others; closing the socket unblocks the reader.
	run := func(fn func(context.Context) error) func() error {
		return func() error {
			defer cancel()
			return fn(groupCtx)
		}
	}
	group.Go(run(cli.readMessages))
	group.Go(run(cli.pingPong))
	group.Go(run(cli.publish))
	group.Go(func() error {
		<-groupCtx.Done()
		cli.ws.Close()
		return nil
	})

	err := group.Wait()
	if isClosure(err) {
		err = nil
	}
	cli.logger.Info("client disconnected", slog.Any("error", err))
	return err
}

// pingPong checks the peer is alive. The pong handler only runs while readMessages is reading.
func (cli *Client[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
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
			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *Client[T]) ping(ctx context.Context) error {
	return cli.ws.Write(ctx, func(ws *websocket.Conn) error {
		err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		if isError(err) {
			return fmt.Errorf("ping failed: %w", err)
		}
		return err
	})
}

// readMessages discards whatever the browser sends. Read errors are permanent, so any
// error tears the client down.
func (cli *Client[T]) readMessages(ctx context.Context) error {
	for {
		err := cli.ws.Read(ctx, func(ws *websocket.Conn) error {
			_, _, err := ws.ReadMessage()
			return err
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (cli *Client[T]) publish(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-cli.updates:
			if !ok {
				return nil
			}
			if !cli.limiter.Allow() {
				continue
			}
			err := cli.ws.Write(ctx, func(ws *websocket.Conn) error {
				if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return fmt.Errorf("failed to set deadline: %w", err)
				}
				err := ws.WriteJSON(update)
				if isError(err) {
					return fmt.Errorf("publish failed: %w", err)
				}
				return err
			})
			if err != nil {
				return err
			}
		}
	}
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

const (
	readDeadline     = time.Second
	writeDeadline    = time.Second
	closeGracePeriod = 2 * time.Second
)

// websock serializes reads and writes: a websocket allows one concurrent reader and one
// concurrent writer.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Conn returns the underlying websocket, for setup only.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends a close frame once the current writer is done, then closes the connection.
func (sock *websock) Close() {
	select {
	case sock.writeSem <- struct{}{}:
		_ = sock.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
	case <-time.After(closeGracePeriod):
	}
	sock.ws.Close()
}

// Read serializes read operations on the websocket.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	case <-time.After(readDeadline):
		return ErrSockCongestion
	}
}

// Write serializes write operations on the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
