// Package events publishes license-lifecycle and watch-session events to
// NATS. Progress, streak and badge bookkeeping are downstream consumers;
// publishing is best-effort and never fails the triggering request.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectLicenseIssued   = "lms.license.issued"
	SubjectLicenseBound    = "lms.license.bound"
	SubjectLessonCompleted = "lms.lesson.completed"
)

type Publisher struct {
	conn       *nats.Conn
	maxRetries int
}

// NewPublisher wraps a NATS connection. A nil conn yields a no-op
// publisher so the server runs without a broker in dev.
func NewPublisher(conn *nats.Conn, maxRetries int) *Publisher {
	return &Publisher{conn: conn, maxRetries: maxRetries}
}

type licenseEvent struct {
	Key        string    `json:"key"`
	AccountID  string    `json:"account_id,omitempty"`
	Memo       string    `json:"memo,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type completionEvent struct {
	LicenseKey string    `json:"license_key"`
	VideoID    string    `json:"video_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (p *Publisher) LicenseIssued(ctx context.Context, key, memo string, expiresAt time.Time) {
	p.publish(SubjectLicenseIssued, licenseEvent{
		Key: key, Memo: memo, ExpiresAt: expiresAt, OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) LicenseBound(ctx context.Context, key, accountID string) {
	p.publish(SubjectLicenseBound, licenseEvent{
		Key: key, AccountID: accountID, OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) LessonCompleted(ctx context.Context, licenseKey, videoID string) {
	p.publish(SubjectLessonCompleted, completionEvent{
		LicenseKey: licenseKey, VideoID: videoID, OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, v any) {
	if p == nil || p.conn == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("events: marshal %s: %v", subject, err)
		return
	}

	for i := 0; i <= p.maxRetries; i++ {
		if err = p.conn.Publish(subject, data); err == nil {
			return
		}
		// Backoff
		time.Sleep(time.Duration(i*100) * time.Millisecond)
	}
	log.Printf("events: publish %s failed after %d retries: %v", subject, p.maxRetries, err)
}
