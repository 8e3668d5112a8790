package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGraphClient_PublishPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/page-42/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "hello", r.PostForm.Get("message"))
		assert.Equal(t, "fb-token", r.PostForm.Get("access_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"page-42_777"}`))
	}))
	defer srv.Close()

	c := NewHTTPGraphClient(srv.URL)
	id, err := c.PublishPost(context.Background(), "fb-token", "page-42", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "page-42_777", id)
}

func TestHTTPGraphClient_PublishPost_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer srv.Close()

	c := NewHTTPGraphClient(srv.URL)
	_, err := c.PublishPost(context.Background(), "bad", "page-42", "hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
}

func TestHTTPGraphClient_PostAnalytics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-42_777/insights", r.URL.Path)
		assert.Equal(t, "likes,comments", r.URL.Query().Get("metric"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"name":"likes","values":[{"value":10}]},
			{"name":"comments","values":[{"value":2}]}
		]}`))
	}))
	defer srv.Close()

	c := NewHTTPGraphClient(srv.URL)
	got, err := c.PostAnalytics(context.Background(), "fb-token", "page-42_777", []string{"likes", "comments"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"likes": 10, "comments": 2}, got)
}

func TestHTTPGraphClient_DefaultBaseURL(t *testing.T) {
	c := NewHTTPGraphClient("")
	assert.Equal(t, DefaultGraphBaseURL, c.baseURL)
}
