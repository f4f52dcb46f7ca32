package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/spigell/leadscout/internal/store"
	"github.com/spigell/leadscout/internal/telemetry"
	"go.uber.org/zap"
)

func TestDiscoveryProviderFallsBackToScoring(t *testing.T) {
	t.Parallel()

	scoring := &ProviderConfig{Provider: "perplexity", APIKeyFile: "/run/key", Timeout: time.Minute}

	tests := []struct {
		name      string
		discovery *ProviderConfig
		wantKey   string
		wantProv  string
		wantTimer time.Duration
	}{
		{name: "unset", discovery: nil, wantKey: "/run/key", wantProv: "perplexity", wantTimer: time.Minute},
		{name: "blank provider", discovery: &ProviderConfig{Model: "x"}, wantKey: "/run/key", wantProv: "perplexity", wantTimer: time.Minute},
		{name: "same provider inherits key", discovery: &ProviderConfig{Provider: "perplexity", Model: "sonar"}, wantKey: "/run/key", wantProv: "perplexity", wantTimer: time.Minute},
		{name: "other provider keeps own key", discovery: &ProviderConfig{Provider: "gemini", APIKeyFile: "/run/gemini", Timeout: time.Second}, wantKey: "/run/gemini", wantProv: "gemini", wantTimer: time.Second},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := discoveryProvider(&Config{Scoring: scoring, Discovery: tt.discovery})
			if got.Provider != tt.wantProv || got.APIKeyFile != tt.wantKey || got.Timeout != tt.wantTimer {
				t.Fatalf("discoveryProvider() = %+v", got)
			}
		})
	}
}

func TestOpenBackendFileDriver(t *testing.T) {
	t.Parallel()

	b, err := openBackend(context.Background(), &StoreConfig{Driver: "file", Dir: t.TempDir(), Telemetry: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	if _, ok := b.store.(*store.FileStore); !ok {
		t.Fatalf("expected file store, got %T", b.store)
	}
	if _, ok := b.telemetry.(telemetry.Nop); !ok {
		t.Fatalf("expected disabled telemetry, got %T", b.telemetry)
	}

	if _, err := openBackend(context.Background(), &StoreConfig{Driver: "redis"}, zap.NewNop()); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestTelemetrySinkEnabled(t *testing.T) {
	t.Parallel()

	sink := telemetrySink(true, telemetry.Nop{}, zap.NewNop())
	multi, ok := sink.(telemetry.Multi)
	if !ok || len(multi) != 2 {
		t.Fatalf("expected log and persistent sinks, got %#v", sink)
	}
}

func TestKeyFromFlags(t *testing.T) {
	cmd := rankCmd
	if err := cmd.Flags().Set("user", "u"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if _, err := keyFromFlags(cmd.Flags()); err == nil {
		t.Fatalf("expected incomplete key error")
	}

	_ = cmd.Flags().Set("chat", "1")
	_ = cmd.Flags().Set("session", "s")
	key, err := keyFromFlags(cmd.Flags())
	if err != nil || key.UserID != "u" || key.ChatID != "1" {
		t.Fatalf("keyFromFlags() = %+v, %v", key, err)
	}
}
