package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSenderDeliversOffer(t *testing.T) {
	var received Offer
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewWebhookSender(srv.URL)
	err := sender.Offer(42, 7, []byte{0x89, 0x50, 0x4e, 0x47})

	require.NoError(t, err)
	assert.Equal(t, int64(42), received.ParticipantID)
	assert.Equal(t, int64(7), received.PrizeID)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, received.Image)
}

func TestWebhookSenderReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "frontend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL).Offer(42, 7, nil)
	assert.Error(t, err)
}

func TestWebhookSenderReportsConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := NewWebhookSender(srv.URL).Offer(42, 7, nil)
	assert.Error(t, err)
}
