package history

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dexbrowser/dex-bridge/internal/infrastructure/config"
	"github.com/dexbrowser/dex-bridge/internal/infrastructure/resilience"
	"github.com/dexbrowser/dex-bridge/internal/logging"
)

// Visit is one history entry for a date.
type Visit struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Count   int    `json:"count"`
	Summary string `json:"summary,omitempty"`
}

// Interest is one ranked browsing topic for a date.
type Interest struct {
	Topic string  `json:"topic"`
	Score float64 `json:"score"`
}

// Client queries the external history store over HTTP. Calls go through a
// rate limiter and a circuit breaker so a dead store cannot pile up
// retries.
type Client struct {
	resty   *resty.Client
	breaker *resilience.Breaker
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewClient creates a history store client.
func NewClient(cfg config.HistoryConfig, logger *logging.Logger) *Client {
	log := logger.Component("history")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "dex-bridge/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("history-store", resilience.Settings{
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		resty:   restyClient,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		logger:  log,
	}
}

// QueryHistoryByDate returns the visit summary for a date (YYYY-MM-DD).
func (c *Client) QueryHistoryByDate(ctx context.Context, date string) ([]Visit, error) {
	var visits []Visit
	err := c.do(ctx, "/history", date, &visits)
	if err != nil {
		return nil, err
	}
	return visits, nil
}

// QueryInterestsByDate returns the ranked browsing topics for a date.
func (c *Client) QueryInterestsByDate(ctx context.Context, date string) ([]Interest, error) {
	var interests []Interest
	err := c.do(ctx, "/interests", date, &interests)
	if err != nil {
		return nil, err
	}
	return interests, nil
}

func (c *Client) do(ctx context.Context, path, date string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetQueryParam("date", date).
			SetResult(out).
			Get(path)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("history store returned %s", resp.Status())
		}
		return nil, nil
	})
	return err
}
