package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatsync/internal/constants"

	"github.com/sirupsen/logrus"
)

// UserDirectory answers whether a user identifier is known to the
// surrounding portal. Identity storage itself lives outside this
// subsystem.
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// HTTPUserDirectory checks users against the portal's user service.
type HTTPUserDirectory struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

func NewHTTPUserDirectory(baseURL string, timeout time.Duration, logger *logrus.Logger) *HTTPUserDirectory {
	if timeout <= 0 {
		timeout = time.Duration(constants.DefaultUserLookupTimeoutSec) * time.Second
	}
	return &HTTPUserDirectory{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (d *HTTPUserDirectory) UserExists(ctx context.Context, userID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/users/%s", d.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create user lookup request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("user lookup failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("user lookup returned status %d", resp.StatusCode)
	}
}

// allowAllDirectory accepts every user ID. Used when no user service
// is configured.
type allowAllDirectory struct{}

// NewAllowAllDirectory returns a directory that treats every ID as
// existing.
func NewAllowAllDirectory() UserDirectory {
	return allowAllDirectory{}
}

func (allowAllDirectory) UserExists(ctx context.Context, userID string) (bool, error) {
	return true, nil
}
