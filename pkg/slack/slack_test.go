package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func TestWebhook_Post(t *testing.T) {
	var got message

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	hook := NewWebhook(testLogger(), srv.URL, nil)
	require.NoError(t, hook.Post(context.Background(), "*Comparison*\nall good"))
	assert.Equal(t, "*Comparison*\nall good", got.Text)
}

func TestWebhook_PostErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	err := NewWebhook(testLogger(), srv.URL, nil).Post(context.Background(), "x")

	var postErr *PostError
	require.ErrorAs(t, err, &postErr)
	assert.Equal(t, http.StatusBadRequest, postErr.StatusCode)
	assert.Equal(t, "invalid_payload", postErr.Body)

	err = NewWebhook(testLogger(), "", nil).Post(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoWebhook)
}
