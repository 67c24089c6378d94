// Package taskapi is the client for the external task-tracking service that
// owns proof generation. The service is consumed at its REST interface only.
package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/snoopy/proofwatch/internal/model"
	"github.com/snoopy/proofwatch/internal/poll"
)

// Client talks to the task service. Chain metadata is fetched lazily and
// cached for the session.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu   sync.Mutex
	meta *model.ChainMetadata
}

// NewClient builds a client for the service at baseURL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Metadata returns the chain metadata, fetching it on first use.
func (c *Client) Metadata(ctx context.Context) (model.ChainMetadata, error) {
	c.mu.Lock()
	cached := c.meta
	c.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	var meta model.ChainMetadata
	if err := c.doJSON(ctx, http.MethodGet, "/metadata", nil, &meta); err != nil {
		return model.ChainMetadata{}, err
	}

	c.mu.Lock()
	c.meta = &meta
	c.mu.Unlock()
	return meta, nil
}

// InvalidateMetadata drops the cached metadata, forcing a refetch. Called on
// chain change, when the cached values can no longer be trusted.
func (c *Client) InvalidateMetadata() {
	c.mu.Lock()
	c.meta = nil
	c.mu.Unlock()
}

// ListTasks returns all known tasks.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.doJSON(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask returns the task with the given id, including proof artifacts once
// the backend completed it.
func (c *Client) GetTask(ctx context.Context, id string) (model.Task, error) {
	var task model.Task
	if err := c.doJSON(ctx, http.MethodGet, "/tasks/"+id, nil, &task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// CreateTask submits a new proof task and returns its id.
func (c *Client) CreateTask(ctx context.Context, queryID string, ts uint64) (string, error) {
	body := map[string]interface{}{"query_id": queryID, "ts": ts}
	var id string
	if err := c.doJSON(ctx, http.MethodPost, "/tasks", body, &id); err != nil {
		return "", err
	}
	return id, nil
}

// WaitForTask polls the task until it reaches a terminal status or the
// timeout elapses.
func (c *Client) WaitForTask(ctx context.Context, id string, interval, timeout time.Duration) (model.Task, error) {
	var last model.Task
	resolved, err := poll.Until(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		task, err := c.GetTask(ctx, id)
		if err != nil {
			c.logger.Warn("task poll failed", zap.String("task_id", id), zap.Error(err))
			return false, nil
		}
		last = task
		return task.Status.Terminal(), nil
	})
	if err != nil {
		return last, err
	}
	if !resolved {
		return last, fmt.Errorf("task %s did not finish within %s", id, timeout)
	}
	return last, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
