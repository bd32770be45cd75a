package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	gogithub "github.com/google/go-github/v82/github"

	"github.com/randalmurphal/repoback/internal/hosting"
)

// newBackoff returns a fresh policy; BackOff implementations are stateful.
func (s *Service) newBackoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retry.InitialBackoff
	bo.MaxInterval = s.retry.MaxBackoff
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.retry.MaxRetries)), ctx)
}

// call runs fn, retrying rate limits and transient server errors.
// The returned error is mapped onto the hosting sentinels.
func call[T any](ctx context.Context, s *Service, op string, fn func() (T, *gogithub.Response, error)) (T, *gogithub.Response, error) {
	var (
		result T
		resp   *gogithub.Response
	)

	err := backoff.RetryNotify(func() error {
		var err error
		result, resp, err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err, resp) {
			return backoff.Permanent(err)
		}
		return err
	}, s.newBackoff(ctx), func(err error, wait time.Duration) {
		s.logger.Warn("retrying GitHub API call",
			"op", op,
			"status_code", statusCode(resp),
			"wait", wait,
			"error", err)
	})
	if err != nil {
		return result, resp, mapError(op, err)
	}
	return result, resp, nil
}

// isRetryable reports whether a GitHub API error is worth another attempt.
func isRetryable(err error, resp *gogithub.Response) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rateErr *gogithub.RateLimitError
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}

	if resp != nil && resp.Response != nil {
		code := resp.StatusCode
		switch {
		case code == http.StatusTooManyRequests:
			return true
		case code == http.StatusForbidden:
			// Secondary rate limits arrive as 403 with rate info.
			return resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
		case code >= 500 && code < 600:
			return true
		default:
			return false
		}
	}

	// No response at all: network failure.
	return true
}

// mapError wraps a go-github error with the matching hosting sentinel.
func mapError(op string, err error) error {
	var errResp *gogithub.ErrorResponse
	if errors.As(err, &errResp) {
		for _, e := range errResp.Errors {
			if e.Code == "already_exists" {
				return fmt.Errorf("%s: %w: %w", op, hosting.ErrAlreadyExists, err)
			}
		}
		if errResp.Response != nil {
			switch errResp.Response.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%s: %w: %w", op, hosting.ErrAuthFailed, err)
			case http.StatusNotFound:
				return fmt.Errorf("%s: %w: %w", op, hosting.ErrNotFound, err)
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func statusCode(resp *gogithub.Response) int {
	if resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	return 0
}

// listAll collects every page of a list endpoint. opts is the ListOptions
// value that fetch sends with each request.
func listAll[T any](ctx context.Context, s *Service, op string, opts *gogithub.ListOptions, fetch func() ([]T, *gogithub.Response, error)) ([]T, error) {
	var all []T
	opts.PerPage = 100

	for {
		page, resp, err := call(ctx, s, op, fetch)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}
