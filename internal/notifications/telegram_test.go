package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSendAlert(t *testing.T) {
	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token123", "42").WithBaseURL(srv.URL + "/")
	require.NoError(t, n.SendAlert(context.Background(), LevelError, "BTCUSDT is unprotected"))

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Contains(t, gotText, "🚨")
	assert.Contains(t, gotText, "BTCUSDT is unprotected")
}

func TestTelegramNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewTelegramNotifier("t", "c").WithBaseURL(srv.URL).SendAlert(context.Background(), LevelInfo, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = Nop{}
	assert.NoError(t, n.SendAlert(context.Background(), LevelWarning, "ignored"))
}
