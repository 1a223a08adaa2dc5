package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"aniportrait/internal/logging"
	"aniportrait/internal/services"
)

// Caller issues a single request to the worker.
type Caller interface {
	Call(ctx context.Context, op string, params any, result any) error
}

type request struct {
	ID     int64  `json:"id"`
	Op     string `json:"op"`
	Params any    `json:"params"`
}

type response struct {
	ID     int64           `json:"id"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// ErrClosed is returned once the connection has been shut down.
var ErrClosed = errors.New("worker connection closed")

// Client serializes requests over a reader/writer pair. One request is in
// flight at a time.
type Client struct {
	mu     sync.Mutex
	enc    *json.Encoder
	dec    *json.Decoder
	closer io.Closer
	logger *slog.Logger
	nextID int64
	closed bool
}

// NewClient wraps an established connection. closer is invoked when a call
// is abandoned because its context ended, since the stream is then out of sync.
func NewClient(r io.Reader, w io.Writer, closer io.Closer, logger *slog.Logger) *Client {
	return &Client{
		enc:    json.NewEncoder(w),
		dec:    json.NewDecoder(bufio.NewReader(r)),
		closer: closer,
		logger: logging.NewComponentLogger(logger, "worker"),
	}
}

// Call sends op with params and decodes the result into result (which may be nil).
func (c *Client) Call(ctx context.Context, op string, params any, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return services.Wrap(services.ErrExternalTool, "worker", op, "", ErrClosed)
	}

	c.nextID++
	id := c.nextID
	started := time.Now()

	type outcome struct {
		resp response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		if err := c.enc.Encode(request{ID: id, Op: op, Params: params}); err != nil {
			done <- outcome{err: fmt.Errorf("send request: %w", err)}
			return
		}
		var resp response
		if err := c.dec.Decode(&resp); err != nil {
			done <- outcome{err: fmt.Errorf("read response: %w", err)}
			return
		}
		done <- outcome{resp: resp}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		c.closed = true
		if c.closer != nil {
			_ = c.closer.Close()
		}
		return ctx.Err()
	case out = <-done:
	}

	if out.err != nil {
		c.closed = true
		return services.Wrap(services.ErrExternalTool, "worker", op, "", out.err)
	}
	resp := out.resp
	if resp.ID != id {
		c.closed = true
		return services.Wrap(services.ErrExternalTool, "worker", op,
			fmt.Sprintf("response id %d does not match request id %d", resp.ID, id), nil)
	}
	c.logger.Debug("worker call finished",
		logging.String("op", op),
		logging.Int64("request", id),
		logging.Bool("ok", resp.OK),
		logging.Duration("elapsed", time.Since(started)),
	)
	if !resp.OK {
		return services.Wrap(services.ErrExternalTool, "worker", op, resp.Error, nil)
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return services.Wrap(services.ErrExternalTool, "worker", op, "decode result", err)
	}
	return nil
}

// Close marks the client closed and releases the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
