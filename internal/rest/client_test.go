package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, func() string { return "tok123" })
}

func TestGetDecodesEnvelopeData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success": true, "data": {"id": "p1", "title": "hello"}}`))
	})

	var out struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, client.Get(context.Background(), "/posts/p1", &out))
	assert.Equal(t, "p1", out.ID)
	assert.Equal(t, "hello", out.Title)
}

func TestRejectedEnvelopeCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "message": "title is required"}`))
	})

	err := client.Post(context.Background(), "/posts", map[string]string{}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "title is required", apiErr.Message)
}

func TestMissingSuccessFieldIsRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [1, 2, 3]}`))
	})

	err := client.Get(context.Background(), "/posts", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "unexpected response shape", apiErr.Message)
}

func TestNonJSONResponseIsRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream error</html>"))
	})

	err := client.Get(context.Background(), "/posts", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestMalformedDataShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": "not an object"}`))
	})

	var out struct {
		ID string `json:"id"`
	}
	err := client.Get(context.Background(), "/posts/p1", &out)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "unexpected data shape", apiErr.Message)
}

func TestNilOutSkipsDecoding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": {"ignored": true}}`))
	})

	assert.NoError(t, client.Post(context.Background(), "/posts/p1/vote", map[string]string{"direction": "up"}, nil))
}

func TestTransportErrorWraps(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", 100*time.Millisecond, nil)
	err := client.Get(context.Background(), "/posts", nil)
	require.Error(t, err)
	assert.NotErrorAs(t, err, new(*APIError), "transport failures are not api errors")
}

func TestRequestTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client.timeout = 50 * time.Millisecond

	start := time.Now()
	err := client.Get(context.Background(), "/slow", nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "deadline bounds the call")
}
