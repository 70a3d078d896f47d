package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatsync/internal/constants"
	"chatsync/internal/errors"
	"chatsync/internal/models"
	"chatsync/internal/retry"

	"github.com/sirupsen/logrus"
)

// HTTPClient talks to the messaging API over HTTP. Authentication and
// identity are passed through: the bearer token and user ID are issued
// by the surrounding portal, not by this subsystem.
type HTTPClient struct {
	baseURL   string
	authToken string
	userID    string
	client    *http.Client
	logger    *logrus.Logger
	backoff   *retry.Backoff
}

func NewClient(baseURL, authToken, userID string, httpClient *http.Client) *HTTPClient {
	return NewClientWithLogger(baseURL, authToken, userID, httpClient, nil)
}

func NewClientWithLogger(baseURL, authToken, userID string, httpClient *http.Client, logger *logrus.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(constants.DefaultHTTPTimeoutSec) * time.Second}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	backoffConfig := retry.DefaultBackoffConfig()
	backoffConfig.MaxAttempts = constants.DefaultFetchRetryAttempts

	return &HTTPClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authToken: authToken,
		userID:    userID,
		client:    httpClient,
		logger:    logger,
		backoff:   retry.NewBackoff(backoffConfig),
	}
}

// ListConversations returns the caller's conversations ordered by most
// recent activity. Retried on transient failures (idempotent read).
func (c *HTTPClient) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var result ConversationListResponse
	err := c.backoff.RetryWithPredicate(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, "/api/v1/conversations", nil, &result)
	}, errors.IsRetryable)
	if err != nil {
		return nil, err
	}
	return result.Conversations, nil
}

// CreateConversation returns the existing-or-new conversation for the
// given participant set.
func (c *HTTPClient) CreateConversation(ctx context.Context, req CreateConversationRequest) (*models.Conversation, error) {
	var conv models.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/conversations", req, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// FetchMessages returns history for a conversation. Retried on
// transient failures; the caller deduplicates by message identity, so
// overlapping pages are harmless.
func (c *HTTPClient) FetchMessages(ctx context.Context, conversationID, afterID string) ([]models.Message, error) {
	path := fmt.Sprintf("/api/v1/conversations/%s/messages", url.PathEscape(conversationID))
	if afterID != "" {
		path += "?after=" + url.QueryEscape(afterID)
	}

	var result MessagesResponse
	err := c.backoff.RetryWithPredicate(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &result)
	}, errors.IsRetryable)
	if err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// SendMessage dispatches one message. Never auto-retried: a timed-out
// send may still have been applied, and a duplicate is worse than a
// failed entry the user can retry explicitly.
func (c *HTTPClient) SendMessage(ctx context.Context, conversationID string, req SendMessageRequest) (*models.Message, error) {
	path := fmt.Sprintf("/api/v1/conversations/%s/messages", url.PathEscape(conversationID))

	var msg models.Message
	if err := c.doJSON(ctx, http.MethodPost, path, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead advances the caller's read marker.
func (c *HTTPClient) MarkRead(ctx context.Context, conversationID, throughMessageID string) error {
	path := fmt.Sprintf("/api/v1/conversations/%s/read", url.PathEscape(conversationID))
	return c.doJSON(ctx, http.MethodPost, path, MarkReadRequest{ThroughMessageID: throughMessageID}, nil)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.WrapRetryable(err, errors.ErrCodeInternalError, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError maps a non-2xx response to an AppError, preserving the
// server's error code so callers can distinguish validation from
// authorization from transport failures.
func (c *HTTPClient) decodeError(endpoint string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Code != "" {
		appErr := errors.New(errors.ErrorCode(errResp.Code), errResp.Message).
			WithContext("endpoint", endpoint).
			WithContext("status_code", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == 429 || resp.StatusCode == 408 {
			appErr.Retryable = true
		}
		return appErr
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint":    endpoint,
		"status_code": resp.StatusCode,
	}).Debug("API error response without structured body")

	return errors.NewAPIError(endpoint, resp.StatusCode,
		fmt.Errorf("unexpected status %d", resp.StatusCode))
}
