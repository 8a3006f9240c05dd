package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/reelacademy/ra-lms/internal/config"
)

func TestWatcher_PicksUpRateLimitChange(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	mgr, err := config.NewManager(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.StartWatcher(ctx)

	updated := `
rate_limit:
  endpoints:
    license_validate:
      rate: 99
      window: 1m
`
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if mgr.EndpointLimit("license_validate").Rate == 99 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("Watcher never applied the new limit, still %d",
		mgr.EndpointLimit("license_validate").Rate)
}
