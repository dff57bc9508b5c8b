package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// repo asks the domain API whether an identity can read a playlist. The API
// owns all business logic about projects and playlists; this client only
// interprets the status code.
type repo struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewRepo(baseURL string, logger *slog.Logger) *repo {
	return &repo{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

func (r *repo) CheckPlaylistAccess(ctx context.Context, playlistId, token string) (bool, error) {
	url := fmt.Sprintf("%s/data/playlists/%s", r.baseURL, playlistId)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build access check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("access check request failed: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
