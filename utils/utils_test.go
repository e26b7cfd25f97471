package utils_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-bulletin/types"
	"github.com/aquasecurity/vuln-bulletin/utils"
)

type notification struct {
	attempt int
	state   utils.RetryState
	failed  bool
}

func TestFetchURL(t *testing.T) {
	testCases := []struct {
		name         string
		handler      func(n int32, w http.ResponseWriter, r *http.Request)
		opts         utils.FetchOptions
		want         string
		wantAttempts int32
		wantErr      string
	}{
		{
			name: "happy path",
			handler: func(_ int32, w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("payload"))
			},
			opts:         utils.FetchOptions{MaxRetries: 3, Timeout: time.Second},
			want:         "payload",
			wantAttempts: 1,
		},
		{
			name: "timeouts on the first two attempts",
			handler: func(n int32, w http.ResponseWriter, _ *http.Request) {
				if n <= 2 {
					time.Sleep(300 * time.Millisecond)
				}
				_, _ = w.Write([]byte("payload"))
			},
			opts:         utils.FetchOptions{MaxRetries: 3, Timeout: 100 * time.Millisecond},
			want:         "payload",
			wantAttempts: 3,
		},
		{
			name: "server error then success with delay",
			handler: func(n int32, w http.ResponseWriter, _ *http.Request) {
				if n == 1 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				_, _ = w.Write([]byte("payload"))
			},
			opts:         utils.FetchOptions{MaxRetries: 2, Timeout: time.Second, Delay: 10 * time.Millisecond},
			want:         "payload",
			wantAttempts: 2,
		},
		{
			name: "404 on every attempt",
			handler: func(_ int32, w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			opts:         utils.FetchOptions{MaxRetries: 3, Timeout: time.Second},
			wantAttempts: 3,
			wantErr:      "after 3 attempt(s): HTTP error. status code: 404, url:",
		},
		{
			name: "timeout on the last attempt",
			handler: func(_ int32, w http.ResponseWriter, _ *http.Request) {
				time.Sleep(300 * time.Millisecond)
			},
			opts:         utils.FetchOptions{MaxRetries: 1, Timeout: 50 * time.Millisecond},
			wantAttempts: 1,
			wantErr:      "after 1 attempt(s)",
		},
		{
			name: "request headers",
			handler: func(_ int32, w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Accept") != "application/json" {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				_, _ = w.Write([]byte("{}"))
			},
			opts: utils.FetchOptions{
				MaxRetries: 1,
				Timeout:    time.Second,
				Headers:    map[string]string{"Accept": "application/json"},
			},
			want:         "{}",
			wantAttempts: 1,
		},
		{
			name:    "sad path: no attempts",
			handler: func(_ int32, _ http.ResponseWriter, _ *http.Request) {},
			opts:    utils.FetchOptions{MaxRetries: 0, Timeout: time.Second},
			wantErr: "max retries must be at least 1",
		},
		{
			name:    "sad path: no timeout",
			handler: func(_ int32, _ http.ResponseWriter, _ *http.Request) {},
			opts:    utils.FetchOptions{MaxRetries: 1},
			wantErr: "timeout must be positive",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var count int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tc.handler(atomic.AddInt32(&count, 1), w, r)
			}))
			defer ts.Close()

			got, err := utils.FetchURL(context.Background(), ts.URL+"/oval.xml.bz2", tc.opts)
			assert.Equal(t, tc.wantAttempts, atomic.LoadInt32(&count))
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestFetchURL_Exhausted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	var got []notification
	_, err := utils.FetchURL(context.Background(), ts.URL, utils.FetchOptions{
		MaxRetries: 2,
		Timeout:    time.Second,
		Notify: func(attempt int, state utils.RetryState, err error) {
			got = append(got, notification{attempt: attempt, state: state, failed: err != nil})
		},
	})
	require.Error(t, err)

	var fetchErr *types.FetchError
	require.True(t, xerrors.As(err, &fetchErr))
	assert.Equal(t, 2, fetchErr.Attempts)
	assert.Equal(t, ts.URL, fetchErr.URL)
	assert.Contains(t, fetchErr.Err.Error(), "status code: 503")

	want := []notification{
		{attempt: 1, state: utils.Attempting},
		{attempt: 1, state: utils.Attempting, failed: true},
		{attempt: 2, state: utils.Attempting},
		{attempt: 2, state: utils.Exhausted, failed: true},
	}
	assert.Equal(t, want, got)
}

func TestFetchURL_Canceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var attempts int
	_, err := utils.FetchURL(ctx, ts.URL, utils.FetchOptions{
		MaxRetries: 5,
		Timeout:    time.Second,
		Delay:      time.Hour,
		Notify: func(attempt int, state utils.RetryState, err error) {
			attempts = attempt
			if err != nil {
				cancel()
			}
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestFetchURL_CanceledInFlight(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte("<oval_definitions/>"))
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	var attempts int
	start := time.Now()
	got, err := utils.FetchURL(ctx, ts.URL, utils.FetchOptions{
		MaxRetries: 3,
		Timeout:    5 * time.Second,
		Notify: func(attempt int, _ utils.RetryState, _ error) {
			attempts = attempt
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Second)

	var fetchErr *types.FetchError
	require.True(t, xerrors.As(err, &fetchErr))
	assert.Equal(t, 1, fetchErr.Attempts)
}

func TestFetchURL_LocalFile(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		want    string
		wantErr string
	}{
		{
			name: "happy path",
			src:  "testdata/oval.xml",
			want: "<?xml version=\"1.0\"?>\n<oval_definitions/>\n",
		},
		{
			name:    "sad path: missing file",
			src:     "testdata/unknown.xml",
			wantErr: "after 2 attempt(s)",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := utils.FetchURL(context.Background(), tc.src, utils.FetchOptions{MaxRetries: 2, Timeout: time.Second})
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}
