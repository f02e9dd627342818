package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Target is a subscriber endpoint. Empty Events means every event type.
type Target struct {
	URL    string
	Secret string
	Events []string
}

func (t Target) wants(eventType string) bool {
	return len(t.Events) == 0 || slices.Contains(t.Events, eventType)
}

// Delivery is one queued POST of an event to a target.
type Delivery struct {
	ID          string
	EventType   string
	URL         string
	Secret      string
	Payload     []byte
	Attempts    int
	NextAttempt time.Time
}

// Publisher turns events into deliveries on a bounded queue.
type Publisher struct {
	Targets []Target
	Queue   chan Delivery
}

func NewPublisher(targets []Target, queueSize int) *Publisher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Publisher{Targets: targets, Queue: make(chan Delivery, queueSize)}
}

// Emit enqueues eventType with data for every interested target and returns
// how many deliveries were queued. A full queue drops the delivery.
func (p *Publisher) Emit(eventType string, data any) int {
	id := uuid.NewString()
	body, err := json.Marshal(map[string]any{
		"id":   id,
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	})
	if err != nil {
		log.Printf("webhooks: encode %s: %v", eventType, err)
		return 0
	}
	n := 0
	for _, t := range p.Targets {
		if !t.wants(eventType) {
			continue
		}
		d := Delivery{ID: id, EventType: eventType, URL: t.URL, Secret: t.Secret, Payload: body}
		select {
		case p.Queue <- d:
			n++
		default:
			log.Printf("webhooks: queue full, dropping %s for %s", eventType, t.URL)
		}
	}
	return n
}

// SignHMAC returns lowercase hex of HMAC-SHA256 for use in headers
func SignHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks an HMAC-SHA256 signature over the raw body using the shared secret.
func VerifyHMAC(secret string, body []byte, provided string) bool {
	b, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), b)
}
