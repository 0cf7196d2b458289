// Package oxidb is a client for the blob-storage side of an oxidb-server.
//
// Protocol: each message is [4-byte little-endian length][JSON payload].
// The server answers {"ok": true, "data": ...} or {"ok": false, "error": "..."}.
package oxidb

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// maxFrame bounds a single response; archives are the largest objects we read.
const maxFrame = 512 << 20

// ErrBroken is returned by a client whose connection failed mid-request.
var ErrBroken = errors.New("oxidb: connection broken")

// Client is one TCP connection. Requests are serialized by mu.
//
// A transport failure leaves the stream out of step with the server, so the
// client closes itself and refuses further calls. Reconnect instead.
type Client struct {
	conn   net.Conn
	mu     sync.Mutex
	broken atomic.Bool
}

// Connect dials oxidb-server at host:port.
func Connect(host string, port int, timeout time.Duration) (*Client, error) {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("oxidb: connect to %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Broken reports whether a transport error has retired this client.
func (c *Client) Broken() bool {
	return c.broken.Load()
}

func (c *Client) markBroken() {
	c.broken.Store(true)
	c.conn.Close()
}

func (c *Client) writeFrame(data []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := c.conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := c.conn.Write(data)
	return err
}

func (c *Client) readFrame() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.conn, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("oxidb: read length: %w", err)
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length > maxFrame {
		return nil, fmt.Errorf("oxidb: frame of %d bytes exceeds limit", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, fmt.Errorf("oxidb: read payload: %w", err)
	}
	return payload, nil
}

type response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// call sends one command and returns the data field of a successful response.
// The context deadline, if any, bounds the whole round trip.
func (c *Client) call(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	req, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("oxidb: marshal request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken.Load() {
		return nil, ErrBroken
	}

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.markBroken()
		return nil, fmt.Errorf("oxidb: set deadline: %w", err)
	}
	if err := c.writeFrame(req); err != nil {
		c.markBroken()
		return nil, fmt.Errorf("oxidb: send: %w", err)
	}
	raw, err := c.readFrame()
	if err != nil {
		// A late reply would be read as the answer to the next request.
		c.markBroken()
		return nil, err
	}
	c.conn.SetDeadline(time.Time{})

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("oxidb: unmarshal response: %w", err)
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		if strings.Contains(strings.ToLower(msg), "not found") {
			return nil, &NotFoundError{Msg: msg}
		}
		return nil, &Error{Msg: msg}
	}
	return resp.Data, nil
}

// Ping returns "pong" from a healthy server.
func (c *Client) Ping(ctx context.Context) (string, error) {
	data, err := c.call(ctx, map[string]any{"cmd": "ping"})
	if err != nil {
		return "", err
	}
	var s string
	_ = json.Unmarshal(data, &s)
	return s, nil
}

// CreateBucket creates a blob bucket. An existing bucket is not an error.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	_, err := c.call(ctx, map[string]any{"cmd": "create_bucket", "bucket": bucket})
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "exists") {
		return nil
	}
	return err
}

// PutObject stores data under bucket/key. Data travels base64-encoded.
func (c *Client) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	payload := map[string]any{
		"cmd":          "put_object",
		"bucket":       bucket,
		"key":          key,
		"data":         base64.StdEncoding.EncodeToString(data),
		"content_type": contentType,
	}
	if len(metadata) > 0 {
		payload["metadata"] = metadata
	}
	_, err := c.call(ctx, payload)
	return err
}

// GetObject returns the object's bytes and content type.
func (c *Client) GetObject(ctx context.Context, bucket, key string) ([]byte, string, error) {
	data, err := c.call(ctx, map[string]any{"cmd": "get_object", "bucket": bucket, "key": key})
	if err != nil {
		return nil, "", err
	}
	var obj struct {
		Content  string         `json:"content"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, "", fmt.Errorf("oxidb: decode object: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(obj.Content)
	if err != nil {
		return nil, "", fmt.Errorf("oxidb: decode base64: %w", err)
	}
	ct, _ := obj.Metadata["content_type"].(string)
	return decoded, ct, nil
}

func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.call(ctx, map[string]any{"cmd": "delete_object", "bucket": bucket, "key": key})
	return err
}
