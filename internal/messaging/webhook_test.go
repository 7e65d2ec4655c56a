package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookClientSendSuccess(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, 5*time.Second)
	err := client.Send(context.Background(), Payload{
		CustomerID: "cust-1",
		RemoteJID:  "5511987654321@s.whatsapp.net",
		Name:       "Alice",
		Message:    "Oi Alice!",
		HasImage:   false,
		SendID:     "send-1",
		CampaignID: "camp-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "5511987654321@s.whatsapp.net", got.RemoteJID)
	assert.Nil(t, got.ImageBase64)
	assert.False(t, got.HasImage)
}

func TestWebhookClientSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, 5*time.Second)
	err := client.Send(context.Background(), Payload{SendID: "send-1"})
	require.Error(t, err)

	var de *DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusTooManyRequests, de.StatusCode)
}

func TestWebhookClientSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, 20*time.Millisecond)
	err := client.Send(context.Background(), Payload{SendID: "send-1"})
	require.Error(t, err)

	var de *DeliveryError
	assert.True(t, errors.As(err, &de), "timeout must surface as a DeliveryError")
}
