package playback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/reelacademy/ra-lms/internal/data"
	"github.com/reelacademy/ra-lms/internal/drm"
	"github.com/reelacademy/ra-lms/internal/playback"
)

type MockLookup struct {
	License *data.License
	Err     error
}

func (m *MockLookup) GetByKey(ctx context.Context, key string) (*data.License, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.License, nil
}

type MockIssuer struct {
	LastVideoID   string
	LastWatermark string
	Err           error
}

func (m *MockIssuer) IssueOTP(ctx context.Context, videoID, watermark string) (*drm.OTP, error) {
	m.LastVideoID = videoID
	m.LastWatermark = watermark
	if m.Err != nil {
		return nil, m.Err
	}
	return &drm.OTP{OTP: "otp-1", PlaybackInfo: "pb-1"}, nil
}

type MockMetrics struct {
	Issued   int
	Failed   int
	Observed []time.Duration
}

func (m *MockMetrics) OTPIssued() { m.Issued++ }
func (m *MockMetrics) OTPFailed() { m.Failed++ }
func (m *MockMetrics) ObserveDRM(d time.Duration) {
	m.Observed = append(m.Observed, d)
}

const testKey = "AB12-CD34-EF56-GH78"

func strPtr(s string) *string { return &s }

func TestWatermark(t *testing.T) {
	if got := playback.Watermark(strPtr("Jane"), testKey); got != "Jane (AB12-CD34)" {
		t.Errorf("Expected \"Jane (AB12-CD34)\", got %q", got)
	}
	if got := playback.Watermark(nil, testKey); got != "AB12-CD34" {
		t.Errorf("Expected bare prefix, got %q", got)
	}
	if got := playback.Watermark(strPtr(""), testKey); got != "AB12-CD34" {
		t.Errorf("Empty memo should fall back to prefix, got %q", got)
	}
}

func TestAuthorize_WithLicense(t *testing.T) {
	lookup := &MockLookup{License: &data.License{
		ID:   uuid.New(),
		Key:  testKey,
		Memo: strPtr("Jane"),
	}}
	issuer := &MockIssuer{}
	a := playback.NewAuthorizer(lookup, issuer, nil)

	otp, err := a.Authorize(context.Background(), "vid-1", testKey)
	if err != nil {
		t.Fatal(err)
	}
	if otp.OTP != "otp-1" {
		t.Error("OTP not passed through")
	}
	if issuer.LastWatermark != "Jane (AB12-CD34)" {
		t.Errorf("Expected watermark, got %q", issuer.LastWatermark)
	}
}

func TestAuthorize_Anonymous(t *testing.T) {
	issuer := &MockIssuer{}
	a := playback.NewAuthorizer(&MockLookup{}, issuer, nil)

	if _, err := a.Authorize(context.Background(), "vid-1", ""); err != nil {
		t.Fatal(err)
	}
	if issuer.LastWatermark != "" {
		t.Errorf("Anonymous playback must not be watermarked, got %q", issuer.LastWatermark)
	}
}

func TestAuthorize_UnknownKey_SkipsWatermark(t *testing.T) {
	lookup := &MockLookup{Err: data.ErrRecordNotFound}
	issuer := &MockIssuer{}
	a := playback.NewAuthorizer(lookup, issuer, nil)

	if _, err := a.Authorize(context.Background(), "vid-1", testKey); err != nil {
		t.Fatalf("Unknown key must not block playback, got %v", err)
	}
	if issuer.LastWatermark != "" {
		t.Error("Unknown key should issue without watermark")
	}
}

func TestAuthorize_StoreFailure(t *testing.T) {
	lookup := &MockLookup{Err: errors.New("connection reset")}
	a := playback.NewAuthorizer(lookup, &MockIssuer{}, nil)

	if _, err := a.Authorize(context.Background(), "vid-1", testKey); err == nil {
		t.Error("Store failure should surface")
	}
}

func TestAuthorize_MissingVideoID(t *testing.T) {
	a := playback.NewAuthorizer(&MockLookup{}, &MockIssuer{}, nil)
	_, err := a.Authorize(context.Background(), "", testKey)
	if !errors.Is(err, playback.ErrMissingVideoID) {
		t.Errorf("Expected ErrMissingVideoID, got %v", err)
	}
}

func TestAuthorize_IssuerFailure(t *testing.T) {
	issuer := &MockIssuer{Err: drm.ErrUnavailable}
	a := playback.NewAuthorizer(&MockLookup{}, issuer, nil)

	_, err := a.Authorize(context.Background(), "vid-1", "")
	if !errors.Is(err, drm.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestAuthorize_RecordsDRMLatency(t *testing.T) {
	metrics := &MockMetrics{}
	a := playback.NewAuthorizer(&MockLookup{}, &MockIssuer{}, metrics)

	if _, err := a.Authorize(context.Background(), "vid-1", ""); err != nil {
		t.Fatal(err)
	}
	if len(metrics.Observed) != 1 {
		t.Fatalf("Expected 1 latency observation, got %d", len(metrics.Observed))
	}
	if metrics.Observed[0] < 0 {
		t.Errorf("Expected non-negative latency, got %v", metrics.Observed[0])
	}
	if metrics.Issued != 1 || metrics.Failed != 0 {
		t.Errorf("Expected 1 issued and 0 failed, got %d and %d", metrics.Issued, metrics.Failed)
	}

	issuer := &MockIssuer{Err: drm.ErrUnavailable}
	a = playback.NewAuthorizer(&MockLookup{}, issuer, metrics)
	if _, err := a.Authorize(context.Background(), "vid-1", ""); err == nil {
		t.Fatal("Expected issuer failure")
	}
	if len(metrics.Observed) != 2 {
		t.Errorf("Failed round trips must still be observed, got %d observations", len(metrics.Observed))
	}
	if metrics.Failed != 1 {
		t.Errorf("Expected 1 failed, got %d", metrics.Failed)
	}
}

func TestEmbedURL(t *testing.T) {
	otp := &drm.OTP{OTP: "a b", PlaybackInfo: "c&d"}
	got := playback.EmbedURL("player.vdocipher.com", otp)
	want := "https://player.vdocipher.com/v2/?otp=a+b&playbackInfo=c%26d&api=1"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

type MockSink struct {
	Completions []string
}

func (m *MockSink) LessonCompleted(ctx context.Context, licenseKey, videoID string) {
	m.Completions = append(m.Completions, licenseKey+"|"+videoID)
}

func TestTracker_CompletionDedup(t *testing.T) {
	sink := &MockSink{}
	tr := playback.NewTracker(16, time.Minute, sink)

	if !tr.Completed(context.Background(), testKey, "vid-1") {
		t.Error("First completion should be fresh")
	}
	if tr.Completed(context.Background(), testKey, "vid-1") {
		t.Error("Repeat within window should be deduped")
	}
	if !tr.Completed(context.Background(), testKey, "vid-2") {
		t.Error("Different video is a separate completion")
	}
	if len(sink.Completions) != 2 {
		t.Fatalf("Expected 2 forwarded completions, got %d", len(sink.Completions))
	}
}

func TestTracker_WindowExpires(t *testing.T) {
	sink := &MockSink{}
	tr := playback.NewTracker(16, 10*time.Millisecond, sink)

	tr.Completed(context.Background(), testKey, "vid-1")
	time.Sleep(20 * time.Millisecond)
	if !tr.Completed(context.Background(), testKey, "vid-1") {
		t.Error("Completion after the window should be fresh again")
	}
}
