package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Transport is the narrow remote contract the engine consumes. The concrete
// Client talks to an Odoo-style JSON-RPC server; tests substitute fakes.
type Transport interface {
	SearchRead(ctx context.Context, model string, domain Domain, fields []string) ([]Record, error)
	Create(ctx context.Context, model string, values []map[string]any) ([]int64, error)
	Write(ctx context.Context, model string, ids []int64, values map[string]any) error
	Unlink(ctx context.Context, model string, ids []int64) error
	ThreadMessages(ctx context.Context, threadModel string, threadID int64) (ThreadMessagesResult, error)
	PostMessage(ctx context.Context, req PostRequest) error
}

// Client wraps the remote JSON-RPC endpoints and provides typed methods.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cookies    []*http.Cookie
}

// NewClient creates a client for the given server base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SetCookies attaches session cookies (auth is handled by the host client).
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.cookies = cookies
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string { return c.baseURL }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

func (c *Client) call(ctx context.Context, path string, params any, result any) error {
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      rand.Int63(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s: unexpected status %d", path, resp.StatusCode)
	}
	var envelope rpcResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

type callKwParams struct {
	Model  string         `json:"model"`
	Method string         `json:"method"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

func (c *Client) callKw(ctx context.Context, model, method string, args []any, kwargs map[string]any, result any) error {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return c.call(ctx, "/web/dataset/call_kw", callKwParams{
		Model:  model,
		Method: method,
		Args:   args,
		Kwargs: kwargs,
	}, result)
}

// SearchRead searches model rows matching domain and reads the given fields.
func (c *Client) SearchRead(ctx context.Context, model string, domain Domain, fields []string) ([]Record, error) {
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	conds := make([]any, len(domain))
	for i, d := range domain {
		conds[i] = []any{d[0], d[1], d[2]}
	}
	var records []Record
	err := c.callKw(ctx, model, "search_read", []any{conds, fields}, nil, &records)
	if err != nil {
		return nil, fmt.Errorf("search_read %s: %w", model, err)
	}
	return records, nil
}

// Create inserts new rows and returns their ids.
func (c *Client) Create(ctx context.Context, model string, values []map[string]any) ([]int64, error) {
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no values to create")
	}
	var raw json.RawMessage
	if err := c.callKw(ctx, model, "create", []any{values}, nil, &raw); err != nil {
		return nil, fmt.Errorf("create %s: %w", model, err)
	}
	// The endpoint returns either a single id or a list of ids.
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err == nil {
		return ids, nil
	}
	var single int64
	if err := json.Unmarshal(raw, &single); err == nil {
		return []int64{single}, nil
	}
	return nil, fmt.Errorf("create %s: unexpected result %s", model, string(raw))
}

// Write updates fields on existing rows.
func (c *Client) Write(ctx context.Context, model string, ids []int64, values map[string]any) error {
	if model == "" || len(ids) == 0 {
		return fmt.Errorf("model and ids cannot be empty")
	}
	if err := c.callKw(ctx, model, "write", []any{ids, values}, nil, nil); err != nil {
		return fmt.Errorf("write %s: %w", model, err)
	}
	return nil
}

// Unlink deletes rows by id.
func (c *Client) Unlink(ctx context.Context, model string, ids []int64) error {
	if model == "" || len(ids) == 0 {
		return fmt.Errorf("model and ids cannot be empty")
	}
	if err := c.callKw(ctx, model, "unlink", []any{ids}, nil, nil); err != nil {
		return fmt.Errorf("unlink %s: %w", model, err)
	}
	return nil
}

type threadMessagesResponse struct {
	Messages []json.RawMessage `json:"messages"`
}

// ThreadMessages fetches the message set of a thread. The server returns
// either full records or bare ids depending on version; the result reports
// which form arrived.
func (c *Client) ThreadMessages(ctx context.Context, threadModel string, threadID int64) (ThreadMessagesResult, error) {
	var resp threadMessagesResponse
	err := c.call(ctx, "/mail/thread/messages", map[string]any{
		"thread_model": threadModel,
		"thread_id":    threadID,
	}, &resp)
	if err != nil {
		return ThreadMessagesResult{}, fmt.Errorf("thread messages: %w", err)
	}
	var result ThreadMessagesResult
	for _, raw := range resp.Messages {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err == nil {
			result.Records = append(result.Records, rec)
			continue
		}
		var id any
		if err := json.Unmarshal(raw, &id); err != nil {
			continue
		}
		coerced, err := CoerceID(id)
		if err != nil {
			continue
		}
		result.IDs = append(result.IDs, coerced)
	}
	return result, nil
}

// PostMessage posts a comment to a thread via the thread-post endpoint.
func (c *Client) PostMessage(ctx context.Context, req PostRequest) error {
	subtype := req.SubtypeXMLID
	if subtype == "" {
		subtype = "mail.mt_note"
	}
	attachments := req.AttachmentIDs
	if attachments == nil {
		attachments = []int64{}
	}
	err := c.call(ctx, "/mail/thread/post", map[string]any{
		"thread_model":   req.ThreadModel,
		"thread_id":      req.ThreadID,
		"body":           req.Body,
		"subtype_xmlid":  subtype,
		"attachment_ids": attachments,
	}, nil)
	if err != nil {
		return fmt.Errorf("thread post: %w", err)
	}
	return nil
}
