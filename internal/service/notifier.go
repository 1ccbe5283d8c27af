package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"printwatch"
	"printwatch/internal/logger"
	"printwatch/internal/printer"
	"printwatch/internal/repository"
)

const webhookTimeout = 10 * time.Second

// NotifierConfig selects which status transitions produce webhook calls.
type NotifierConfig struct {
	WebhookURL       string
	NotifyOnComplete bool
	NotifyOnError    bool
}

// NotifierService observes poll-cycle snapshots, appends a history event for
// every status transition and pushes a webhook on terminal transitions.
// HandleState runs on the polling goroutine, so the webhook call is made
// asynchronously to keep a slow endpoint from delaying poll cycles.
type NotifierService struct {
	cfg       NotifierConfig
	address   string
	eventRepo repository.EventRepo
	log       *logger.Logger
	client    *http.Client

	mu   sync.Mutex
	last printer.Status
}

func NewNotifierService(cfg NotifierConfig, address string, eventRepo repository.EventRepo, log *logger.Logger) *NotifierService {
	return &NotifierService{
		cfg:       cfg,
		address:   address,
		eventRepo: eventRepo,
		log:       log,
		client:    &http.Client{Timeout: webhookTimeout},
	}
}

// webhookPayload is the JSON body POSTed to the configured endpoint.
type webhookPayload struct {
	PrinterAddress string `json:"printer_address"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
}

// HandleState is registered as a printer observer.
func (s *NotifierService) HandleState(st printer.State) {
	s.mu.Lock()
	prev := s.last
	s.last = st.Status
	s.mu.Unlock()

	if prev == st.Status || prev == "" {
		return
	}

	_ = s.eventRepo.Append(context.Background(), printwatch.PrintEvent{
		Type:        printwatch.EventStatusChange,
		Description: fmt.Sprintf("Status changed from %s to %s", prev, st.Status),
		Metadata:    map[string]any{"from": prev, "to": st.Status, "progress": st.Progress},
	})

	switch st.Status {
	case printer.StatusComplete:
		if s.cfg.NotifyOnComplete {
			go s.send("complete", "Print job completed successfully!")
		}
	case printer.StatusError:
		if s.cfg.NotifyOnError {
			go s.send("error", "Printer error: "+st.ErrorMessage)
		}
	}
}

// Test sends a test payload to verify the webhook configuration.
func (s *NotifierService) Test(ctx context.Context) error {
	if s.cfg.WebhookURL == "" {
		return fmt.Errorf("no webhook URL configured")
	}
	return s.post(ctx, webhookPayload{
		PrinterAddress: s.address,
		Status:         "test",
		Message:        "Test notification from printwatch",
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *NotifierService) send(status, message string) {
	if s.cfg.WebhookURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()
	err := s.post(ctx, webhookPayload{
		PrinterAddress: s.address,
		Status:         status,
		Message:        message,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.Warnw("notification_send_failed", "status", status, "err", err)
	}
}

func (s *NotifierService) post(ctx context.Context, p webhookPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
