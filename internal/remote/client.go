package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"cashflow/internal/core"
)

const maxBodyBytes = 4 << 20

// Client is the HTTP implementation of Gateway.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
}

// Ensure interface conformance
var _ Gateway = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API endpoint %q", endpoint)
	}
	c := &Client{endpoint: endpoint, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchAll reads every transaction of owner. Any body that is not a success
// envelope with a transaction list is a failure; the caller keeps its
// snapshot.
func (c *Client) FetchAll(ctx context.Context, owner string) ([]core.Transaction, error) {
	q := url.Values{}
	q.Set("action", ActionGetTransactions)
	q.Set("email", owner)

	env, raw, err := c.do(ctx, ActionGetTransactions, http.MethodGet, q, nil)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, &SyncError{Kind: MalformedResponse, Op: ActionGetTransactions, Message: "Respon server tidak valid.", Err: fmt.Errorf("non-JSON body: %.120q", raw)}
	}
	if err := envelopeError(ActionGetTransactions, env); err != nil {
		return nil, err
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, &SyncError{Kind: MalformedResponse, Op: ActionGetTransactions, Message: "Respon server tidak valid.", Err: err}
	}

	// One bad row is skipped; a list with no readable row at all is malformed.
	list := make([]core.Transaction, 0, len(rows))
	var firstErr error
	for i, row := range rows {
		var tx core.Transaction
		if err := json.Unmarshal(row, &tx); err != nil {
			slog.WarnContext(ctx, "Skipping unreadable transaction row", "index", i, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		list = append(list, tx)
	}
	if len(list) == 0 && firstErr != nil {
		return nil, &SyncError{Kind: MalformedResponse, Op: ActionGetTransactions, Message: "Respon server tidak valid.", Err: firstErr}
	}
	return list, nil
}

// UpsertRemote sends an addTransaction. A non-JSON answer is a degraded
// success: legacy deployments reply with bare acknowledgement text.
func (c *Client) UpsertRemote(ctx context.Context, tx core.Transaction) (Ack, error) {
	return c.write(ctx, ActionAddTransaction, NewUpsertRequest(tx))
}

// DeleteRemote sends a deleteTransaction.
func (c *Client) DeleteRemote(ctx context.Context, id int64, owner string) (Ack, error) {
	return c.write(ctx, ActionDelete, DeleteRequest{Action: ActionDelete, ID: id, Email: owner})
}

// Authenticate runs a login or register. Auth answers must be JSON.
func (c *Client) Authenticate(ctx context.Context, action string, creds Credentials) (AuthResult, error) {
	var body any
	switch action {
	case ActionLogin:
		body = LoginRequest{Action: action, Email: creds.Email, Password: creds.Password}
	case ActionRegister:
		body = RegisterRequest{Action: action, Name: creds.Name, Email: creds.Email, Password: creds.Password}
	default:
		return AuthResult{}, fmt.Errorf("unsupported auth action %q", action)
	}

	env, raw, err := c.do(ctx, action, http.MethodPost, nil, body)
	if err != nil {
		return AuthResult{}, err
	}
	if env == nil {
		return AuthResult{}, &SyncError{Kind: MalformedResponse, Op: action, Message: "Respon server tidak valid.", Err: fmt.Errorf("non-JSON body: %.120q", raw)}
	}
	if env.Status == StatusError && env.Message == "" {
		env.Message = "Gagal login"
	}
	if err := envelopeError(action, env); err != nil {
		return AuthResult{}, err
	}
	if action == ActionRegister {
		return AuthResult{}, nil
	}

	var user core.User
	if err := json.Unmarshal(env.Data, &user); err != nil || user.Email == "" {
		return AuthResult{}, &SyncError{Kind: MalformedResponse, Op: action, Message: "Respon server tidak valid.", Err: err}
	}
	return AuthResult{User: &user}, nil
}

func (c *Client) write(ctx context.Context, op string, body any) (Ack, error) {
	env, raw, err := c.do(ctx, op, http.MethodPost, nil, body)
	if err != nil {
		return Ack{}, err
	}
	if env == nil {
		slog.WarnContext(ctx, "Non-JSON write response, assuming success", "action", op, "body", truncate(raw, 120))
		return Ack{Degraded: true, Raw: raw}, nil
	}
	if err := envelopeError(op, env); err != nil {
		return Ack{}, err
	}
	return Ack{}, nil
}

// do issues one request. It returns a nil envelope with the raw body when
// the body is not JSON, leaving the policy to the caller.
func (c *Client) do(ctx context.Context, op, method string, query url.Values, body any) (*Envelope, string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.endpoint
	var reader io.Reader
	if query != nil {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, "", fmt.Errorf("build %s request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", &SyncError{Kind: Unreachable, Op: op, Message: "Gagal terhubung ke server.", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", &SyncError{Kind: Unreachable, Op: op, Message: "Gagal terhubung ke server.", Err: fmt.Errorf("read body: %w", err)}
	}
	raw := string(data)

	slog.DebugContext(ctx, "Remote call completed",
		"action", op,
		"request_id", requestID,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	var env Envelope
	jsonErr := json.Unmarshal(data, &env)
	if jsonErr == nil && env.Status == "" {
		jsonErr = errors.New("missing status")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if jsonErr == nil && env.Status == StatusError {
			return &env, raw, nil
		}
		return nil, raw, &SyncError{Kind: Unreachable, Op: op, Message: "Gagal terhubung ke server.", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if jsonErr != nil {
		return nil, raw, nil
	}
	return &env, raw, nil
}

func envelopeError(op string, env *Envelope) error {
	switch env.Status {
	case StatusSuccess:
		return nil
	case StatusError:
		return &SyncError{Kind: Application, Op: op, Message: env.Message}
	default:
		return &SyncError{Kind: MalformedResponse, Op: op, Message: "Respon server tidak valid.", Err: fmt.Errorf("unknown status %q", env.Status)}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
