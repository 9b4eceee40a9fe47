package main

import (
	"testing"

	"github.com/brightpath/billing/internal/config"
	"github.com/brightpath/billing/internal/platform/clearinghouse"
	"github.com/brightpath/billing/internal/platform/middleware"
	"github.com/brightpath/billing/internal/platform/x12"
)

// ---------------------------------------------------------------------------
// rateLimitFromConfig tests
// ---------------------------------------------------------------------------

func TestRateLimitFromConfig_Explicit(t *testing.T) {
	cfg := &config.Config{RateLimitRPS: 50, RateLimitBurst: 100}
	rl := rateLimitFromConfig(cfg)
	if rl.RequestsPerSecond != 50 {
		t.Errorf("RequestsPerSecond = %v, want 50", rl.RequestsPerSecond)
	}
	if rl.BurstSize != 100 {
		t.Errorf("BurstSize = %d, want 100", rl.BurstSize)
	}
}

func TestRateLimitFromConfig_FallsBackToDefaults(t *testing.T) {
	cfg := &config.Config{RateLimitRPS: 0}
	rl := rateLimitFromConfig(cfg)
	want := middleware.DefaultRateLimitConfig()
	if rl.RequestsPerSecond != want.RequestsPerSecond || rl.BurstSize != want.BurstSize {
		t.Errorf("got %+v, want defaults %+v", rl, want)
	}
}

func TestRateLimitFromConfig_NegativeRate(t *testing.T) {
	cfg := &config.Config{RateLimitRPS: -5, RateLimitBurst: 10}
	rl := rateLimitFromConfig(cfg)
	want := middleware.DefaultRateLimitConfig()
	if rl.RequestsPerSecond != want.RequestsPerSecond {
		t.Errorf("negative rate should fall back to defaults, got %+v", rl)
	}
}

// ---------------------------------------------------------------------------
// newRemittanceParser tests
// ---------------------------------------------------------------------------

func TestNewRemittanceParser_X12Default(t *testing.T) {
	cfg := &config.Config{ERAParserMode: "x12"}
	if _, ok := newRemittanceParser(cfg).(*x12.X12Parser); !ok {
		t.Errorf("expected *x12.X12Parser, got %T", newRemittanceParser(cfg))
	}
}

func TestNewRemittanceParser_FixtureMode(t *testing.T) {
	cfg := &config.Config{ERAParserMode: "fixture"}
	if _, ok := newRemittanceParser(cfg).(*x12.FixtureParser); !ok {
		t.Errorf("expected *x12.FixtureParser, got %T", newRemittanceParser(cfg))
	}
}

// ---------------------------------------------------------------------------
// newClearinghouseClient tests
// ---------------------------------------------------------------------------

func TestNewClearinghouseClient_HTTPMode(t *testing.T) {
	cfg := &config.Config{
		ClearinghouseMode: "http",
		ClearinghouseURL:  "https://clearinghouse.example.com/claims",
		ClearinghouseKey:  "test-key",
	}
	ch := newClearinghouseClient(cfg)
	if _, ok := ch.(*clearinghouse.HTTPClient); !ok {
		t.Errorf("expected *clearinghouse.HTTPClient, got %T", ch)
	}
}

func TestNewClearinghouseClient_SimulatedMode(t *testing.T) {
	cfg := &config.Config{ClearinghouseMode: "simulated"}
	ch := newClearinghouseClient(cfg)
	if _, ok := ch.(*clearinghouse.SimulatedClient); !ok {
		t.Errorf("expected *clearinghouse.SimulatedClient, got %T", ch)
	}
}

func TestNewClearinghouseClient_UnknownModeDefaultsToSimulated(t *testing.T) {
	cfg := &config.Config{ClearinghouseMode: "typo"}
	ch := newClearinghouseClient(cfg)
	if _, ok := ch.(*clearinghouse.SimulatedClient); !ok {
		t.Errorf("unknown mode must not reach a real endpoint, got %T", ch)
	}
}
