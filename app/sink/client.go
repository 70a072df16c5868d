package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/juda1804/youtube-community-sync/app/database"
)

// Client delivers new posts to the configured webhook endpoint. Any
// 2xx response counts as success; everything else is a failure. Transient
// failures are retried with capped exponential backoff before giving up.
type Client struct {
	webhookURL string
	userAgent  string
	httpClient *http.Client
}

func NewClient(webhookURL, userAgent string) *Client {
	return &Client{
		webhookURL: webhookURL,
		userAgent:  userAgent,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled reports whether a webhook endpoint is configured at all
func (c *Client) Enabled() bool {
	return c.webhookURL != ""
}

// DeliverPosts sends a batch of posts for one channel. Returns an error when
// every attempt failed; the caller decides what to do with the undelivered
// posts (they stay persisted with delivered=false).
func (c *Client) DeliverPosts(ctx context.Context, channel string, posts []database.Post, sourceURL string) error {
	if !c.Enabled() {
		return fmt.Errorf("no webhook URL configured")
	}

	payload := Payload{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Source:    SourceTag,
		Type:      BatchTypeCommunityPosts,
		Data: PayloadData{
			Channel:    channel,
			PostsCount: len(posts),
			Posts:      posts,
			ScrapedAt:  time.Now().UTC().Format(time.RFC3339),
			SourceURL:  sourceURL,
		},
	}

	return c.send(ctx, payload)
}

// DeliverTest sends a small probe payload so the operator can verify the
// webhook endpoint without waiting for real posts
func (c *Client) DeliverTest(ctx context.Context) error {
	if !c.Enabled() {
		return fmt.Errorf("no webhook URL configured")
	}

	payload := Payload{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Source:    SourceTag,
		Type:      BatchTypeTest,
		Data: PayloadData{
			Channel:    "test",
			PostsCount: 0,
			Posts:      []database.Post{},
			ScrapedAt:  time.Now().UTC().Format(time.RFC3339),
		},
	}

	return c.send(ctx, payload)
}

func (c *Client) send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}

			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("User-Agent", c.userAgent)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to post to webhook: %w", err)
			}
			defer resp.Body.Close()

			// Drain so the connection can be reused
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				err := fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					// The endpoint rejected the payload; retrying won't help
					return retry.Unrecoverable(err)
				}
				return err
			}

			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying webhook delivery", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to deliver payload: %w", err)
	}

	slog.Debug("Payload delivered to webhook", "type", payload.Type,
		"posts", payload.Data.PostsCount)

	return nil
}
