package downloader

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/metrics"
)

// sink records writes and whether it was closed.
type sink struct {
	bytes.Buffer
	closed int
}

func (s *sink) Close() error {
	s.closed++
	return nil
}

func TestDownload_OK(t *testing.T) {
	body := strings.Repeat("x", 3*common.ChunkSize+17)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	s := &sink{}
	err = New(WithMetrics(m)).Download(context.Background(), srv.URL+"/1.jpg", s)
	require.NoError(t, err)
	assert.Equal(t, body, s.String())
	assert.Equal(t, 1, s.closed)
}

func TestDownload_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new.jpg", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := &sink{}
	require.NoError(t, New().Download(context.Background(), srv.URL+"/old.jpg", s))
	assert.Equal(t, "moved", s.String())
}

func TestDownload_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html>not found</html>"))
	}))
	defer srv.Close()

	s := &sink{}
	err := New().Download(context.Background(), srv.URL+"/1.jpg", s)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, srv.URL+"/1.jpg", se.URL)

	assert.Zero(t, s.Len(), "error bodies must not reach the sink")
	assert.Equal(t, 1, s.closed)
}

func TestDownload_ServerErrorIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New().Download(context.Background(), srv.URL+"/1.jpg", &sink{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDownload_RejectsInvalidURLs(t *testing.T) {
	for _, raw := range []string{"http://example.com", "http://example.com/", "ftp://example.com/a.jpg", "::nope", "/relative.jpg"} {
		t.Run(raw, func(t *testing.T) {
			s := &sink{}
			err := New().Download(context.Background(), raw, s)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
			assert.Equal(t, 1, s.closed, "sink closed on validation failure")
		})
	}
}

func TestDownload_NetworkErrorClosesSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	s := &sink{}
	err := New().Download(context.Background(), addr+"/1.jpg", s)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 1, s.closed)
}

func TestDownload_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	s := &sink{}
	err := New(WithTimeout(50*time.Millisecond)).Download(context.Background(), srv.URL+"/slow.jpg", s)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, s.closed)
}
