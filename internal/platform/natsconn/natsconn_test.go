package natsconn

import (
	"testing"
	"time"
)

func TestWithDefaults_FromEnv(t *testing.T) {
	t.Setenv("NATS_URL", "nats://bus:4222")
	t.Setenv("NATS_MAX_RECONNECTS", "9")
	t.Setenv("NATS_RECONNECT_WAIT", "750ms")

	o := Options{Name: "social"}.withDefaults()
	if o.URL != "nats://bus:4222" || o.MaxReconnects != 9 || o.ReconnectWait != 750*time.Millisecond {
		t.Fatalf("unexpected options %+v", o)
	}
	if o.MaxPending != defaultMaxPending || o.Logger == nil || o.Name != "social" {
		t.Fatalf("unexpected defaults %+v", o)
	}
}

func TestWithDefaults_BadEnvFallsBack(t *testing.T) {
	t.Setenv("NATS_URL", "")
	t.Setenv("NATS_MAX_RECONNECTS", "-1")
	t.Setenv("NATS_RECONNECT_WAIT", "soon")

	o := Options{}.withDefaults()
	if o.URL != defaultURL || o.MaxReconnects != defaultMaxReconnects || o.ReconnectWait != defaultReconnectWait {
		t.Fatalf("expected built-in defaults, got %+v", o)
	}
}

func TestWithDefaults_ExplicitWins(t *testing.T) {
	t.Setenv("NATS_MAX_RECONNECTS", "9")
	o := Options{URL: "nats://x:1", MaxReconnects: 2, ReconnectWait: time.Second, MaxPending: 16}.withDefaults()
	if o.URL != "nats://x:1" || o.MaxReconnects != 2 || o.ReconnectWait != time.Second || o.MaxPending != 16 {
		t.Fatalf("explicit options overwritten: %+v", o)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, _, err := Connect(Options{
		URL:           "nats://127.0.0.1:19999",
		MaxReconnects: 1,
		ReconnectWait: 10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error connecting to an unreachable server")
	}
}
