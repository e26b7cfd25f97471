package utils

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/parnurzeal/gorequest"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-bulletin/types"
)

// RetryState is the state of a fetch after an attempt
type RetryState int

const (
	Attempting RetryState = iota
	Succeeded
	Exhausted
)

func (s RetryState) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// FetchOptions controls a single FetchURL call.
type FetchOptions struct {
	// MaxRetries is the total number of attempts, not the number of retries after the first one.
	MaxRetries int
	// Timeout is the deadline of each attempt.
	Timeout time.Duration
	// Delay is the wait between two attempts. Zero retries immediately.
	Delay   time.Duration
	Headers map[string]string

	// Notify is called before every attempt with Attempting, after a failed
	// attempt that will be retried with Attempting and the error, and once at
	// the end with Succeeded or Exhausted.
	Notify func(attempt int, state RetryState, err error)
}

func (o FetchOptions) notify(attempt int, state RetryState, err error) {
	if o.Notify != nil {
		o.Notify(attempt, state, err)
	}
}

func (o FetchOptions) validate() error {
	if o.MaxRetries < 1 {
		return xerrors.Errorf("max retries must be at least 1: %d", o.MaxRetries)
	}
	if o.Timeout <= 0 {
		return xerrors.Errorf("timeout must be positive: %s", o.Timeout)
	}
	if o.Delay < 0 {
		return xerrors.Errorf("retry delay must not be negative: %s", o.Delay)
	}
	return nil
}

// FetchURL returns the payload at url, retrying failed attempts up to opts.MaxRetries in total.
// Non-2xx responses, timeouts and connection errors are retried. Once every attempt has failed,
// the last error is returned as *types.FetchError.
func FetchURL(ctx context.Context, url string, opts FetchOptions) ([]byte, error) {
	if url == "" {
		return nil, xerrors.New("empty URL")
	}
	if err := opts.validate(); err != nil {
		return nil, xerrors.Errorf("invalid fetch options: %w", err)
	}

	get := fetchHTTP
	if !isHTTP(url) {
		get = fetchGetter
	}

	var (
		res     []byte
		attempt int
	)
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		opts.notify(attempt, Attempting, nil)

		b, err := get(ctx, url, opts)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		res = b
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.Delay), uint64(opts.MaxRetries-1)), ctx)
	err := backoff.RetryNotify(operation, b, func(err error, _ time.Duration) {
		opts.notify(attempt, Attempting, err)
	})
	if err != nil {
		opts.notify(attempt, Exhausted, err)
		return nil, &types.FetchError{URL: url, Attempts: attempt, Err: err}
	}

	opts.notify(attempt, Succeeded, nil)
	return res, nil
}

func isHTTP(url string) bool {
	return (strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) && !strings.Contains(url, "::")
}

type httpResult struct {
	resp gorequest.Response
	body []byte
	errs []error
}

// fetchHTTP returns as soon as ctx is done; the abandoned request still ends
// within opts.Timeout.
func fetchHTTP(ctx context.Context, url string, opts FetchOptions) ([]byte, error) {
	req := gorequest.New().Timeout(opts.Timeout).Get(url)
	for k, v := range opts.Headers {
		req.Set(k, v)
	}

	done := make(chan httpResult, 1)
	go func() {
		resp, body, errs := req.EndBytes()
		done <- httpResult{resp: resp, body: body, errs: errs}
	}()

	var res httpResult
	select {
	case <-ctx.Done():
		return nil, xerrors.Errorf("HTTP error. url: %s, err: %w", url, ctx.Err())
	case res = <-done:
	}
	if len(res.errs) > 0 {
		return nil, xerrors.Errorf("HTTP error. url: %s, err: %w", url, res.errs[0])
	}
	if res.resp.StatusCode < 200 || res.resp.StatusCode > 299 {
		return nil, xerrors.Errorf("HTTP error. status code: %d, url: %s", res.resp.StatusCode, url)
	}
	return res.body, nil
}

func fetchGetter(ctx context.Context, src string, opts FetchOptions) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	filePath, err := DownloadToTempFile(ctx, src)
	if err != nil {
		return nil, err
	}
	defer os.Remove(filePath)

	b, err := os.ReadFile(filePath)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", filePath, err)
	}
	return b, nil
}

func LookupEnv(key, defaultValue string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultValue
}
