package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClientConfig(t *testing.T) {
	config := DefaultClientConfig()

	assert.Equal(t, 15*time.Second, config.Timeout)
	assert.Equal(t, 100, config.MaxIdleConns)
	assert.Equal(t, 10, config.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, config.IdleConnTimeout)
	assert.Equal(t, "webhook-gateway", config.UserAgent)
	assert.Nil(t, config.Transport)
}

func TestClientOptions(t *testing.T) {
	config := DefaultClientConfig()

	WithTimeout(5 * time.Second)(&config)
	WithMaxIdleConnsPerHost(3)(&config)
	WithUserAgent("tests")(&config)

	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, 3, config.MaxIdleConnsPerHost)
	assert.Equal(t, "tests", config.UserAgent)
	// Other fields should remain unchanged
	assert.Equal(t, 100, config.MaxIdleConns)
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient()
	assert.Equal(t, 15*time.Second, client.Timeout)
	assert.IsType(t, &userAgentTransport{}, client.Transport)

	client = NewHTTPClient(WithUserAgent(""), nil)
	assert.IsType(t, &http.Transport{}, client.Transport)

	client = NewHTTPClientWithTimeout(2 * time.Second)
	assert.Equal(t, 2*time.Second, client.Timeout)
}

func TestHTTPClient_Integration_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(WithTimeout(50 * time.Millisecond))

	_, err := client.Get(server.URL)
	assert.Error(t, err)
}

func TestHTTPClient_UserAgent(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	client := NewHTTPClient(WithUserAgent("gateway-test/1"))

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("User-Agent", "explicit")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{"gateway-test/1", "explicit"}, got)
}

func TestDoJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "echo-" + in["text"]})
	}))
	defer server.Close()

	var out struct {
		ID string `json:"id"`
	}
	err := DoJSON(context.Background(), NewHTTPClient(), http.MethodPost, server.URL,
		map[string]string{"Authorization": "Bearer abc"}, map[string]string{"text": "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "echo-hi", out.ID)
}

func TestDo(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, "nope")
		}))
		defer server.Close()

		err := Do(context.Background(), NewHTTPClient(), Request{Method: http.MethodGet, URL: server.URL}, nil)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
		assert.Equal(t, "nope", statusErr.Body)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>")
		}))
		defer server.Close()

		var out map[string]interface{}
		err := Do(context.Background(), NewHTTPClient(), Request{Method: http.MethodGet, URL: server.URL}, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid response format")
	})

	t.Run("form body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		err := Do(context.Background(), NewHTTPClient(), Request{
			Method:      http.MethodPost,
			URL:         server.URL,
			Body:        strings.NewReader("grant_type=client_credentials"),
			ContentType: "application/x-www-form-urlencoded",
		}, nil)
		assert.NoError(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Do(ctx, NewHTTPClient(), Request{Method: http.MethodGet, URL: "http://127.0.0.1:1"}, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStatusError_TruncatesBody(t *testing.T) {
	long := strings.Repeat("x", 1000)
	assert.Len(t, truncate(long, 256), 259)
	assert.Equal(t, "short", truncate("short", 256))
	assert.Equal(t, "invalid response status code: 500", (&StatusError{StatusCode: 500}).Error())
}
