package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atnf/askap-notifier/internal/config"
)

func TestSlackClientSend(t *testing.T) {
	var (
		gotHeader http.Header
		gotBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewSlackClient(config.SlackConfig{WebhookURL: srv.URL, Token: "xoxb-1", Timeout: time.Second})
	err := c.Send(context.Background(), Payload{Message: &SlackMessage{Channel: "#alerts", Text: "hello"}})
	require.NoError(t, err)

	require.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	require.Equal(t, "Bearer xoxb-1", gotHeader.Get("Authorization"))

	var msg SlackMessage
	require.NoError(t, json.Unmarshal(gotBody, &msg))
	require.Equal(t, "#alerts", msg.Channel)
	require.Equal(t, "hello", msg.Text)
}

func TestSlackClientSendWithoutToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := NewSlackClient(config.SlackConfig{WebhookURL: srv.URL})
	require.NoError(t, c.Send(context.Background(), Payload{Raw: json.RawMessage(`{"text":"raw"}`)}))
	require.Empty(t, auth)
}

func TestSlackClientNon2xxIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewSlackClient(config.SlackConfig{WebhookURL: srv.URL, Timeout: time.Second})
	require.NoError(t, c.Send(context.Background(), Payload{Message: &SlackMessage{Text: "x"}}))
}

func TestSlackClientConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewSlackClient(config.SlackConfig{WebhookURL: url, Timeout: time.Second})
	err := c.Send(context.Background(), Payload{Message: &SlackMessage{Text: "x"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "slack connection error")
}

func TestSlackClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewSlackClient(config.SlackConfig{WebhookURL: srv.URL, Timeout: 50 * time.Millisecond})
	err := c.Send(context.Background(), Payload{Message: &SlackMessage{Text: "x"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "slack connection error")
}
