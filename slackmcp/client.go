// Package slackmcp posts messages to Slack through a Slack MCP server, using
// the conversations_add_message tool over JSON-RPC 2.0.
//
//	c := slackmcp.New("http://localhost:13080", apiKey)
//	err := c.Post(ctx, "C123", "hello")
package slackmcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// ToolAddMessage is the MCP tool that posts to a conversation.
	ToolAddMessage = "conversations_add_message"

	// ContentTypeMarkdown is the payload type the bridge sends.
	ContentTypeMarkdown = "text/markdown"

	// ContentTypePlain posts the payload verbatim.
	ContentTypePlain = "text/plain"

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// Message is the argument object of conversations_add_message.
type Message struct {
	ChannelID   string `json:"channel_id"`
	Payload     string `json:"payload"`
	ContentType string `json:"content_type,omitempty"`
	ThreadTS    string `json:"thread_ts,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type request struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      string     `json:"id"`
	Method  string     `json:"method"`
	Params  toolParams `json:"params"`
}

type toolParams struct {
	Name      string  `json:"name"`
	Arguments Message `json:"arguments"`
}

// toolResult is the part of a tools/call result the client inspects.
type toolResult struct {
	IsError bool `json:"isError"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Client talks to one MCP server.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the server at baseURL. Requests go to baseURL/mcp.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/mcp",
		apiKey:   apiKey,
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post sends text to a channel as markdown.
func (c *Client) Post(ctx context.Context, channelID, text string) error {
	_, err := c.SendMessage(ctx, Message{
		ChannelID:   channelID,
		Payload:     text,
		ContentType: ContentTypeMarkdown,
	})
	return err
}

// SendMessage calls conversations_add_message. A non-2xx status, a JSON-RPC
// error or a tool result flagged isError is returned as *Error.
func (c *Client) SendMessage(ctx context.Context, msg Message) (*Response, error) {
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      "msg-" + uuid.NewString(),
		Method:  "tools/call",
		Params:  toolParams{Name: ToolAddMessage, Arguments: msg},
	})
	if err != nil {
		return nil, &Error{Op: "encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Op: "post", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: "post", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := ErrHTTPStatus
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			cause = ErrUnauthorized
		}
		return nil, &Error{
			Op:         "post",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s %s", cause, resp.Status, strings.TrimSpace(string(snippet))),
		}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{Op: "decode", StatusCode: resp.StatusCode, Err: err}
	}
	if out.Error != nil {
		return &out, &Error{Op: ToolAddMessage, StatusCode: resp.StatusCode, Err: out.Error}
	}

	var tr toolResult
	if len(out.Result) > 0 && json.Unmarshal(out.Result, &tr) == nil && tr.IsError {
		detail := "no detail"
		if len(tr.Content) > 0 {
			detail = tr.Content[0].Text
		}
		return &out, &Error{Op: ToolAddMessage, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %s", ErrToolFailed, detail)}
	}

	c.logger.Debug("posted via mcp", "channel", msg.ChannelID, "id", out.ID)
	return &out, nil
}
