package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"go.uber.org/zap"
)

func sharePage(imageValue, title string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head>")
	if imageValue != "" {
		fmt.Fprintf(&b, `<meta name="twitter:image" value="%s">`, imageValue)
	}
	if title != "" {
		fmt.Fprintf(&b, `<meta property="og:title" content="%s">`, title)
	}
	b.WriteString("</head><body><p>clip</p></body></html>")
	return b.String()
}

func newPageServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestResolver() *PageResolver {
	return NewPageResolver(&domain.DownloadConfig{UserAgent: "cloudapp-dl-test"}, zap.NewNop())
}

func TestResolve_BuildsMediaURL(t *testing.T) {
	page := sharePage("https://p.zight.com/items/abc/preview.gif/cdn.example.com/videos/abc.mp4?source=viewer", "My Clip")
	srv := newPageServer(t, http.StatusOK, page)

	media, err := newTestResolver().Resolve(context.Background(), srv.URL+"/abc", false)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/videos/abc.mp4", media.MediaURL)
	assert.Empty(t, media.Title, "title is only read when asked for")
}

func TestResolve_ReadsTitleWhenWanted(t *testing.T) {
	page := sharePage("https://p.zight.com/x.gif/cdn.example.com/abc.mp4?source=viewer", "My Clip")
	srv := newPageServer(t, http.StatusOK, page)

	media, err := newTestResolver().Resolve(context.Background(), srv.URL+"/abc", true)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/abc.mp4", media.MediaURL)
	assert.Equal(t, "My Clip", media.Title)
}

func TestResolve_SendsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.UserAgent()
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, sharePage("https://p/x.gif/h/p.mp4", ""))
	}))
	defer srv.Close()

	_, err := newTestResolver().Resolve(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "cloudapp-dl-test", got)
}

func TestResolve_NotFound(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"missing meta", sharePage("", "title")},
		{"missing gif marker", sharePage("https://p.zight.com/preview.png", "")},
		{"empty asset path", sharePage("https://p.zight.com/x.gif/?source=viewer", "")},
		{"content instead of value", `<html><head><meta name="twitter:image" content="https://p/x.gif/h/p.mp4"></head></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newPageServer(t, http.StatusOK, tt.page)

			media, err := newTestResolver().Resolve(context.Background(), srv.URL+"/abc", false)
			require.Error(t, err)
			assert.Nil(t, media)
			assert.True(t, errors.Is(err, domain.ErrNotFound))
			assert.True(t, errors.Is(err, domain.ErrVideoNotFound))
			assert.Contains(t, err.Error(), "Video not found")
		})
	}
}

func TestResolve_FetchErrors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv := newPageServer(t, http.StatusNotFound, "gone")

		_, err := newTestResolver().Resolve(context.Background(), srv.URL+"/abc", false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrFetch))
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("server error page with valid meta", func(t *testing.T) {
		srv := newPageServer(t, http.StatusInternalServerError, sharePage("https://p/x.gif/h/p.mp4", ""))

		_, err := newTestResolver().Resolve(context.Background(), srv.URL, false)
		assert.True(t, errors.Is(err, domain.ErrFetch))
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newTestResolver().Resolve(context.Background(), url, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrFetch))
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := newPageServer(t, http.StatusOK, sharePage("https://p/x.gif/h/p.mp4", ""))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestResolver().Resolve(ctx, srv.URL, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrFetch))
	})
}

func TestResolve_SamePageTwice(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, sharePage("https://p/x.gif/h/p.mp4", ""))
	resolver := newTestResolver()

	for i := 0; i < 2; i++ {
		media, err := resolver.Resolve(context.Background(), srv.URL+"/abc", false)
		require.NoError(t, err)
		assert.Equal(t, "https://h/p.mp4", media.MediaURL)
	}
}

func TestParseMedia(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantURL   string
		wantFound bool
	}{
		{"marker and source", "https://a.gif/host/path/v.mp4?source=x", "https://host/path/v.mp4", true},
		{"marker without source", "https://a.gif/host/v.mp4", "https://host/v.mp4", true},
		{"first marker wins", "https://a.gif/host/b.gif/v.mp4", "https://host/b", true},
		{"no marker", "https://host/v.mp4", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media, err := ParseMedia(strings.NewReader(sharePage(tt.value, "")), false)
			if !tt.wantFound {
				assert.True(t, errors.Is(err, domain.ErrNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, media.MediaURL)
		})
	}
}
