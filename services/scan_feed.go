package services

import (
	"log"
	"log/slog"
	"sync"
	"time"

	pubnub "github.com/pubnub/go/v7"

	"festival-tickets/config"
	"festival-tickets/models"
)

// Publisher sends one message to one channel.
type Publisher interface {
	Publish(channel string, message map[string]any) error
}

type pubnubPublisher struct {
	pn *pubnub.PubNub
}

func (p *pubnubPublisher) Publish(channel string, message map[string]any) error {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	return err
}

// ScanFeedService streams scan verdicts to the gate dashboards over PubNub.
// Publishing happens off the request path so a slow broker never delays the
// scanner's response. Without PubNub keys the feed is a no-op.
type ScanFeedService struct {
	publisher Publisher
	channel   string
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

func NewScanFeedService(cfg *config.Config) *ScanFeedService {
	svc := &ScanFeedService{
		channel:  cfg.ScanFeedChannel,
		stopChan: make(chan struct{}),
	}

	if cfg.PubNubPublishKey == "" || cfg.PubNubSubscribeKey == "" {
		log.Println("PubNub keys not configured, scan feed disabled")
		return svc
	}

	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
	pnCfg.PublishKey = cfg.PubNubPublishKey
	pnCfg.SubscribeKey = cfg.PubNubSubscribeKey
	if cfg.PubNubSecretKey != "" {
		pnCfg.SecretKey = cfg.PubNubSecretKey
	}
	svc.publisher = &pubnubPublisher{pn: pubnub.NewPubNub(pnCfg)}

	return svc
}

func (s *ScanFeedService) Enabled() bool {
	return s != nil && s.publisher != nil
}

// PublishVerdict pushes one scan outcome to the event's feed channel.
func (s *ScanFeedService) PublishVerdict(result *models.ValidationResult, meta models.ScanMetadata) {
	if !s.Enabled() {
		return
	}

	select {
	case <-s.stopChan:
		return
	default:
	}

	message := map[string]any{
		"verdict": string(result.Code),
		"valid":   result.Valid(),
		"source":  meta.Source,
		"at":      time.Now().UTC().Format(time.RFC3339),
	}
	channel := s.channel
	if result.Ticket != nil {
		message["ticket_id"] = result.Ticket.TicketID
		message["scan_count"] = result.Ticket.ScanCount
		message["max_scan_count"] = result.Ticket.MaxScanCount
		channel = s.channel + "." + result.Ticket.EventID
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.publisher.Publish(channel, message); err != nil {
			slog.Error("scan feed publish failed", "channel", channel, "error", err)
		}
	}()
}

// Shutdown waits for in-flight publishes, bounded so a wedged broker cannot
// hold up process exit.
func (s *ScanFeedService) Shutdown() {
	if s == nil {
		return
	}
	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Println("Timeout waiting for scan feed publishes to finish")
	}
}
