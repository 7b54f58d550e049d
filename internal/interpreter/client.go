// Package interpreter is the HTTP client for the remote file-system interpreter.
// It is stateless: every call is one request/response exchange.
package interpreter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a failed reply is read for the error message.
const maxErrorBody = 4 << 10

// Client talks to the interpreter service over HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig contains configuration for an interpreter client.
type ClientConfig struct {
	// BaseURL is the service root, e.g. http://localhost:8080.
	BaseURL string

	// Timeout bounds every exchange. Zero means 30 seconds.
	Timeout time.Duration

	// HTTPClient replaces the default client. Timeout is ignored when set.
	HTTPClient *http.Client

	// Logger for request logging. If nil, a no-op logger is used.
	Logger *zap.Logger
}

// NewClient creates a client for the service at config.BaseURL.
func NewClient(config ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid interpreter url %q: %w", config.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid interpreter url %q: scheme must be http or https", config.BaseURL)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// BaseURL returns the service root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Submit executes as many lines of script as possible, starting at the first.
func (c *Client) Submit(ctx context.Context, script string) (*ScriptResponse, error) {
	c.logger.Debug("submitting script", zap.Int("lines", strings.Count(script, "\n")+1))

	var reply scriptReply
	if err := c.doJSON(ctx, "submit", http.MethodPost, "/api/executeScript", scriptRequest{Script: script}, &reply); err != nil {
		return nil, err
	}

	resp := reply.toResponse()
	c.logger.Debug("submit finished", zap.Stringer("kind", resp.Kind), zap.Int("remaining", len(resp.Remaining)))
	return resp, nil
}

// Continue executes as many of the remaining lines as possible, starting at the first.
func (c *Client) Continue(ctx context.Context, remaining []string) (*ScriptResponse, error) {
	if remaining == nil {
		remaining = []string{}
	}
	c.logger.Debug("continuing script", zap.Int("lines", len(remaining)))

	var reply scriptReply
	if err := c.doJSON(ctx, "continue", http.MethodPost, "/api/continueScript", continueRequest{Remaining: remaining}, &reply); err != nil {
		return nil, err
	}

	resp := reply.toResponse()
	c.logger.Debug("continue finished", zap.Stringer("kind", resp.Kind), zap.Int("remaining", len(resp.Remaining)))
	return resp, nil
}

// Login authenticates a user against a mounted partition.
// A rejected login returns false and an *AuthError.
func (c *Client) Login(ctx context.Context, username, password, partitionID string) (bool, error) {
	body := loginRequest{Username: username, Password: password, PartitionID: partitionID}
	err := c.doJSON(ctx, "login", http.MethodPost, "/login", body, &messageReply{})
	return c.authResult("login", err)
}

// Logout ends the interpreter's current user session.
func (c *Client) Logout(ctx context.Context) (bool, error) {
	err := c.doJSON(ctx, "logout", http.MethodPost, "/logout", nil, &messageReply{})
	return c.authResult("logout", err)
}

func (c *Client) authResult(op string, err error) (bool, error) {
	if err == nil {
		c.logger.Info(op + " succeeded")
		return true, nil
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) &&
		(transportErr.StatusCode == http.StatusBadRequest || transportErr.StatusCode == http.StatusUnauthorized) {
		c.logger.Info(op+" rejected", zap.String("reason", transportErr.Message))
		return false, &AuthError{Op: op, Message: transportErr.Message}
	}
	return false, err
}

// ListDisks returns the disks that have mounted partitions.
func (c *Client) ListDisks(ctx context.Context) ([]Disk, error) {
	var reply disksReply
	if err := c.doJSON(ctx, "list disks", http.MethodGet, "/api/disks", nil, &reply); err != nil {
		return nil, err
	}
	return reply.Disks, nil
}

// AllDisks returns the name of every disk file known to the interpreter.
func (c *Client) AllDisks(ctx context.Context) ([]string, error) {
	var reply allDisksReply
	if err := c.doJSON(ctx, "list all disks", http.MethodGet, "/api/all-disks", nil, &reply); err != nil {
		return nil, err
	}
	return reply.Disks, nil
}

// ListPartitions returns the mounted partitions of a disk.
func (c *Client) ListPartitions(ctx context.Context, disk string) ([]Partition, error) {
	var partitions []Partition
	path := "/api/partitions/" + url.PathEscape(disk)
	if err := c.doJSON(ctx, "list partitions", http.MethodGet, path, nil, &partitions); err != nil {
		return nil, err
	}
	return partitions, nil
}

// ContentTree returns the root of a partition's folder tree.
// A nil node with a nil error means the partition is empty.
func (c *Client) ContentTree(ctx context.Context, partitionID string) (*TreeNode, error) {
	var root *TreeNode
	path := "/api/partition-content/" + url.PathEscape(partitionID)
	if err := c.doJSON(ctx, "content tree", http.MethodGet, path, nil, &root); err != nil {
		return nil, err
	}
	return root, nil
}

// Health performs a single health check.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.doJSON(ctx, "health", http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// doJSON sends body (when non-nil) as JSON and decodes a 2xx reply into out.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("interpreter request failed", zap.String("op", op), zap.String("url", endpoint), zap.Error(err))
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("interpreter request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, StatusCode: 0, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a failed reply, falling back to the raw body.
func errorMessage(raw []byte) string {
	var reply errorReply
	if err := json.Unmarshal(raw, &reply); err == nil && reply.Error != "" {
		return reply.Error
	}
	return strings.TrimSpace(string(raw))
}
