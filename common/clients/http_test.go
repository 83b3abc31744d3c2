package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lyzr/lineage/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequest_ForwardsRequestID(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.Client(), logger.Discard())
	ctx := WithRequestID(context.Background(), "req-42")

	resp, err := client.DoRequest(ctx, http.MethodGet, srv.URL+"/league/1", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-42", got.Get("X-Request-ID"))
	assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestDoRequest_NoRequestID(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.Client(), logger.Discard())
	resp, err := client.DoRequest(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, got.Get("X-Request-ID"))
}

func TestGetRequestID_Empty(t *testing.T) {
	_, ok := GetRequestID(WithRequestID(context.Background(), ""))
	assert.False(t, ok)
}
