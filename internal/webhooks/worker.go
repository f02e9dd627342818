package webhooks

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/hungkimanh/gatest/internal/metrics"
)

// Worker drains a Publisher queue and POSTs deliveries, retrying failures
// with exponential backoff until MaxAttempts.
type Worker struct {
	Pub         *Publisher
	HTTP        *http.Client
	MaxAttempts int

	pending []Delivery
	now     func() time.Time
}

func NewWorker(p *Publisher, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Worker{Pub: p, HTTP: &http.Client{Timeout: 5 * time.Second}, MaxAttempts: maxAttempts, now: time.Now}
}

// Run delivers until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-w.Pub.Queue:
			w.pending = append(w.pending, d)
			w.processOnce(ctx)
		case <-ticker.C:
			w.processOnce(ctx)
		}
	}
}

// processOnce moves queued deliveries to pending and sends those that are due.
func (w *Worker) processOnce(ctx context.Context) {
	for drained := false; !drained; {
		select {
		case d := <-w.Pub.Queue:
			w.pending = append(w.pending, d)
		default:
			drained = true
		}
	}
	now := w.now()
	keep := w.pending[:0]
	for _, d := range w.pending {
		if d.NextAttempt.After(now) {
			keep = append(keep, d)
			continue
		}
		code, err := w.send(ctx, d)
		if err == nil {
			continue
		}
		d.Attempts++
		if d.Attempts >= w.MaxAttempts {
			log.Printf("webhooks: giving up event=%s id=%s url=%s attempts=%d code=%d err=%v", d.EventType, d.ID, d.URL, d.Attempts, code, err)
			continue
		}
		d.NextAttempt = now.Add(nextBackoff(d.Attempts - 1))
		keep = append(keep, d)
	}
	w.pending = keep
}

type statusError int

func (e statusError) Error() string { return "unexpected status " + strconv.Itoa(int(e)) }

func (w *Worker) send(ctx context.Context, d Delivery) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.EventType)
	req.Header.Set("X-Event-Id", d.ID)
	if d.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(d.Secret, d.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := float64(time.Since(start).Milliseconds())
	code := 0
	if err == nil {
		code = resp.StatusCode
		_ = resp.Body.Close()
		if code < 200 || code >= 300 {
			err = statusError(code)
		}
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.WebhookDeliveries.WithLabelValues(d.EventType, status).Inc()
	metrics.WebhookLatency.WithLabelValues(d.EventType, status).Observe(latency)
	return code, err
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
