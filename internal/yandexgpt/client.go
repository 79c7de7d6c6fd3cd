package yandexgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/wayfarer/internal/completion"
)

const (
	DefaultEndpoint           = "https://llm.api.cloud.yandex.net"
	DefaultOperationsEndpoint = "https://operation.api.cloud.yandex.net"
)

// Mode selects how a completion is obtained.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// Options tune the client. Zero values fall back to defaults.
type Options struct {
	Endpoint           string
	OperationsEndpoint string
	Timeout            time.Duration
	PollInterval       time.Duration
	PollMaxAttempts    int
}

type Client struct {
	apiKey   string
	folderID string
	model    string
	client   *http.Client
	logger   *slog.Logger

	pollInterval    time.Duration
	pollMaxAttempts int

	completionURL string
	asyncURL      string
	operationsURL string
}

func NewClient(apiKey, folderID, model string, opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.PollMaxAttempts <= 0 {
		opts.PollMaxAttempts = 40
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.OperationsEndpoint == "" {
		opts.OperationsEndpoint = DefaultOperationsEndpoint
	}
	endpoint := strings.TrimRight(opts.Endpoint, "/")
	return &Client{
		apiKey:          apiKey,
		folderID:        folderID,
		model:           model,
		client:          &http.Client{Timeout: opts.Timeout},
		logger:          logger,
		pollInterval:    opts.PollInterval,
		pollMaxAttempts: opts.PollMaxAttempts,
		completionURL:   endpoint + "/foundationModels/v1/completion",
		asyncURL:        endpoint + "/foundationModels/v1/completionAsync",
		operationsURL:   strings.TrimRight(opts.OperationsEndpoint, "/") + "/operations/",
	}
}

// Operation is the handle returned by Submit.
type Operation struct {
	ID string
}

type message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type completionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   string  `json:"maxTokens"`
}

type request struct {
	ModelURI          string            `json:"modelUri"`
	CompletionOptions completionOptions `json:"completionOptions"`
	Messages          []message         `json:"messages"`
}

type alternative struct {
	Message message `json:"message"`
	Status  string  `json:"status,omitempty"`
}

type result struct {
	Alternatives []alternative `json:"alternatives"`
}

type response struct {
	Result result `json:"result"`
}

type operation struct {
	ID       string  `json:"id"`
	Done     bool    `json:"done"`
	Response *result `json:"response,omitempty"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Completer returns a completion.Completer bound to the given mode.
func (c *Client) Completer(mode Mode) completion.Completer {
	if mode == ModeAsync {
		return completion.CompleterFunc(c.CompleteAsync)
	}
	return completion.CompleterFunc(c.Complete)
}

// Complete sends one synchronous completion request.
func (c *Client) Complete(ctx context.Context, req completion.Request) (string, error) {
	start := time.Now()
	body, err := c.post(ctx, c.completionURL, req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logFailure("completion failed", err, "", time.Since(start))
		}
		return "", err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		f := completion.Remote(http.StatusOK, "unmarshal response: "+err.Error())
		c.logFailure("completion failed", f, "", time.Since(start))
		return "", f
	}
	if len(resp.Result.Alternatives) == 0 {
		f := completion.Remote(http.StatusOK, "empty alternatives")
		c.logFailure("completion failed", f, "", time.Since(start))
		return "", f
	}

	c.logger.Info("completion received", "duration_ms", time.Since(start).Milliseconds())
	return resp.Result.Alternatives[0].Message.Text, nil
}

// Submit starts an asynchronous completion and returns its operation handle.
func (c *Client) Submit(ctx context.Context, req completion.Request) (Operation, error) {
	body, err := c.post(ctx, c.asyncURL, req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logFailure("submit failed", err, "", 0)
		}
		return Operation{}, err
	}

	var op operation
	if err := json.Unmarshal(body, &op); err != nil || op.ID == "" {
		f := completion.Remote(http.StatusOK, "no operation id in response: "+completion.Truncate(string(body), 200))
		c.logFailure("submit failed", f, "", 0)
		return Operation{}, f
	}

	c.logger.Info("completion submitted", "operation_id", op.ID)
	return Operation{ID: op.ID}, nil
}

// Await polls the operation until it completes, fails, or the attempt
// ceiling is reached.
func (c *Client) Await(ctx context.Context, op Operation) (string, error) {
	start := time.Now()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.pollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		status, err := c.poll(ctx, op.ID)
		if err != nil {
			var f *completion.Failure
			if errors.As(err, &f) && f.Kind == completion.KindRemote && f.Status >= 400 && f.Status < 500 {
				f.OperationID = op.ID
				c.logFailure("poll rejected", f, op.ID, time.Since(start))
				return "", f
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.Warn("poll attempt failed", "operation_id", op.ID, "attempt", attempt, "error", err)
			continue
		}
		if !status.Done {
			c.logger.Debug("operation pending", "operation_id", op.ID, "attempt", attempt)
			continue
		}

		if status.Response != nil && len(status.Response.Alternatives) > 0 {
			c.logger.Info("completion received",
				"operation_id", op.ID,
				"attempts", attempt,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return status.Response.Alternatives[0].Message.Text, nil
		}

		detail := "operation finished without a result"
		if status.Error != nil {
			detail = status.Error.Message
		}
		f := completion.Remote(0, detail)
		f.OperationID = op.ID
		c.logFailure("operation failed", f, op.ID, time.Since(start))
		return "", f
	}

	f := completion.Timeout(fmt.Sprintf("operation not done after %d polls", c.pollMaxAttempts), nil)
	f.OperationID = op.ID
	c.logFailure("operation timed out", f, op.ID, time.Since(start))
	return "", f
}

// CompleteAsync submits a request and waits for its result.
func (c *Client) CompleteAsync(ctx context.Context, req completion.Request) (string, error) {
	op, err := c.Submit(ctx, req)
	if err != nil {
		return "", err
	}
	return c.Await(ctx, op)
}

func (c *Client) poll(ctx context.Context, id string) (*operation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.operationsURL+id, nil)
	if err != nil {
		return nil, completion.Transport(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var op operation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, completion.Remote(http.StatusOK, "unmarshal operation: "+err.Error())
	}
	return &op, nil
}

func (c *Client) post(ctx context.Context, url string, in completion.Request) ([]byte, error) {
	reqBody := request{
		ModelURI: fmt.Sprintf("gpt://%s/%s", c.folderID, c.model),
		CompletionOptions: completionOptions{
			Stream:      false,
			Temperature: in.Temperature,
			MaxTokens:   strconv.Itoa(in.MaxTokens),
		},
		Messages: []message{
			{Role: "system", Text: in.System},
			{Role: "user", Text: in.Prompt},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, completion.Transport(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, completion.Transport(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	req.Header.Set("x-folder-id", c.folderID)
	req.Header.Set("x-client-request-id", uuid.NewString())

	c.logger.Debug("sending completion request", "url", url, "prompt_chars", len([]rune(in.Prompt)))
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		// Caller went away; not a provider fault.
		if errors.Is(err, context.Canceled) && req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		if isTimeout(err) {
			return nil, completion.Timeout("request timed out", err)
		}
		return nil, completion.Transport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, completion.Timeout("reading response timed out", err)
		}
		return nil, completion.Transport(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, completion.Remote(resp.StatusCode, completion.Truncate(string(body), 200))
	}
	return body, nil
}

func (c *Client) logFailure(msg string, err error, operationID string, elapsed time.Duration) {
	c.logger.Error(msg,
		"kind", string(completion.KindOf(err)),
		"operation_id", operationID,
		"duration_ms", elapsed.Milliseconds(),
		"error", err,
	)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
