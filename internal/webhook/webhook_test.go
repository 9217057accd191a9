package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mediaref/clipscan/pkg/models"
)

type mockRepository struct {
	mu         sync.Mutex
	webhooks   []*models.Webhook
	deliveries []*models.WebhookDelivery
}

func (m *mockRepository) GetWebhooksByEvent(ctx context.Context, event string) ([]*models.Webhook, error) {
	return m.webhooks, nil
}

func (m *mockRepository) CreateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, delivery)
	return nil
}

func (m *mockRepository) UpdateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.deliveries {
		if d.ID == delivery.ID {
			m.deliveries[i] = delivery
			return nil
		}
	}
	return nil
}

func (m *mockRepository) GetPendingDeliveries(ctx context.Context, limit int) ([]*models.WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deliveries, nil
}

func (m *mockRepository) deliveryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deliveries)
}

func TestWebhookNotify(t *testing.T) {
	type delivered struct {
		body      string
		signature string
	}

	received := make(chan delivered, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- delivered{
			body:      string(body),
			signature: r.Header.Get("X-Clipscan-Signature"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := &mockRepository{
		webhooks: []*models.Webhook{
			{
				ID:     "webhook-1",
				UserID: "user-1",
				URL:    server.URL,
				Secret: "test-secret",
				Events: models.WebhookEvents{
					ScanStarted: true,
				},
				IsActive: true,
			},
		},
		deliveries: []*models.WebhookDelivery{},
	}

	service := NewService(repo)

	scan := &models.Scan{
		ID:        "scan-1",
		SourceURL: "https://clips.example/v/abc",
		Status:    models.ScanStatusProcessing,
	}

	err := service.NotifyScanStarted(context.Background(), scan)
	assert.NoError(t, err)

	select {
	case d := <-received:
		var event models.WebhookEvent
		assert.NoError(t, json.Unmarshal([]byte(d.body), &event))
		assert.Equal(t, models.WebhookEventScanStarted, event.Event)
		assert.Equal(t, service.generateSignature([]byte(d.body), "test-secret"), d.signature)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was never delivered")
	}

	assert.Equal(t, 1, repo.deliveryCount())
}

func TestWebhookNotifySkipsInactive(t *testing.T) {
	repo := &mockRepository{
		webhooks: []*models.Webhook{
			{
				ID:       "webhook-1",
				URL:      "http://localhost:0",
				IsActive: false,
			},
		},
	}

	service := NewService(repo)

	err := service.NotifyScanFailed(context.Background(), &models.Scan{ID: "scan-1"})
	assert.NoError(t, err)
	assert.Equal(t, 0, repo.deliveryCount())
}

func TestWebhookSignature(t *testing.T) {
	service := NewService(&mockRepository{})

	payload := []byte(`{"event":"test"}`)
	secret := "test-secret"

	signature := service.generateSignature(payload, secret)
	assert.NotEmpty(t, signature)
	assert.Contains(t, signature, "sha256=")

	// Same payload and secret must always produce the same signature
	assert.Equal(t, signature, service.generateSignature(payload, secret))
	assert.NotEqual(t, signature, service.generateSignature(payload, "other-secret"))
}

func TestWebhookEventMarshaling(t *testing.T) {
	event := models.WebhookEvent{
		Event:     models.WebhookEventScanStarted,
		Timestamp: time.Now(),
		Data: map[string]string{
			"scan_id": "test-scan",
		},
	}

	data, err := json.Marshal(event)
	assert.NoError(t, err)
	assert.NotEmpty(t, data)

	var unmarshaled models.WebhookEvent
	err = json.Unmarshal(data, &unmarshaled)
	assert.NoError(t, err)
	assert.Equal(t, event.Event, unmarshaled.Event)
}
