package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festival-tickets/config"
	"festival-tickets/models"
)

type publishedMessage struct {
	channel string
	message map[string]any
}

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	messages []publishedMessage
}

func (f *fakePublisher) Publish(channel string, message map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, publishedMessage{channel: channel, message: message})
	return f.err
}

func (f *fakePublisher) all() []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedMessage(nil), f.messages...)
}

func newFakeFeed(pub Publisher) *ScanFeedService {
	return &ScanFeedService{
		publisher: pub,
		channel:   "scans",
		stopChan:  make(chan struct{}),
	}
}

func TestScanFeedService_DisabledWithoutKeys(t *testing.T) {
	svc := NewScanFeedService(&config.Config{ScanFeedChannel: "scans"})

	assert.False(t, svc.Enabled())
	assert.NotPanics(t, func() {
		svc.PublishVerdict(&models.ValidationResult{Code: models.VerdictOK}, models.ScanMetadata{})
		svc.Shutdown()
	})
}

func TestScanFeedService_PublishesToEventChannel(t *testing.T) {
	fake := &fakePublisher{}
	svc := newFakeFeed(fake)

	result := &models.ValidationResult{
		Code: models.VerdictOK,
		Ticket: &models.Ticket{
			TicketID:     "TKT-TEST0001",
			EventID:      "boulderfest-2026",
			ScanCount:    2,
			MaxScanCount: 5,
		},
	}
	svc.PublishVerdict(result, models.ScanMetadata{Source: models.SourceWeb})
	svc.Shutdown() // flushes the in-flight publish

	msgs := fake.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "scans.boulderfest-2026", msgs[0].channel)
	assert.Equal(t, "ok", msgs[0].message["verdict"])
	assert.Equal(t, true, msgs[0].message["valid"])
	assert.Equal(t, "TKT-TEST0001", msgs[0].message["ticket_id"])
	assert.Equal(t, 2, msgs[0].message["scan_count"])
}

func TestScanFeedService_FailureVerdictWithoutTicket(t *testing.T) {
	fake := &fakePublisher{}
	svc := newFakeFeed(fake)

	svc.PublishVerdict(&models.ValidationResult{Code: models.VerdictInvalidToken}, models.ScanMetadata{Source: models.SourceWeb})
	svc.Shutdown()

	msgs := fake.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "scans", msgs[0].channel)
	assert.Equal(t, "invalid_token", msgs[0].message["verdict"])
	assert.Equal(t, false, msgs[0].message["valid"])
	assert.NotContains(t, msgs[0].message, "ticket_id")
}

func TestScanFeedService_DropsAfterShutdown(t *testing.T) {
	fake := &fakePublisher{}
	svc := newFakeFeed(fake)

	svc.Shutdown()
	svc.PublishVerdict(&models.ValidationResult{Code: models.VerdictOK}, models.ScanMetadata{})

	assert.Empty(t, fake.all())
}

func TestScanFeedService_PublishErrorIsSwallowed(t *testing.T) {
	fake := &fakePublisher{err: errors.New("broker down")}
	svc := newFakeFeed(fake)

	assert.NotPanics(t, func() {
		svc.PublishVerdict(&models.ValidationResult{Code: models.VerdictOK}, models.ScanMetadata{})
		svc.Shutdown()
	})
	assert.Len(t, fake.all(), 1)
}
