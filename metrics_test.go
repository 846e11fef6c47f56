package authkit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRefreshReuseDetected)

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 {
		t.Fatalf("expected login success count 2, got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricRefreshReuseDetected] != 1 {
		t.Fatalf("expected reuse count 1, got %d", snap.Counters[MetricRefreshReuseDetected])
	}
	if snap.Counters[MetricLogout] != 0 {
		t.Fatalf("expected untouched counter 0, got %d", snap.Counters[MetricLogout])
	}
}

func TestMetricsDisabledNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricAuthenticateLatency, time.Millisecond)

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 0 {
		t.Fatal("expected disabled metrics to stay zero")
	}
	if len(snap.Histograms) != 0 {
		t.Fatal("expected no histograms when disabled")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	nilMetrics.Observe(MetricAuthenticateLatency, time.Millisecond)
	_ = nilMetrics.Snapshot()
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricAuthenticateLatency, 2*time.Millisecond)   // bucket 0 (<=5ms)
	m.Observe(MetricAuthenticateLatency, 30*time.Millisecond)  // bucket 3 (<=50ms)
	m.Observe(MetricAuthenticateLatency, 10*time.Second)       // bucket 7 (+Inf)

	buckets := m.Snapshot().Histograms[MetricAuthenticateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected bucket distribution: %v", buckets)
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot().Counters[MetricRefreshSuccess]; got != workers*perWorker {
		t.Fatalf("expected %d increments, got %d", workers*perWorker, got)
	}
}

func TestManagerRecordsOutcomeMetrics(t *testing.T) {
	provider := newMockProvider()
	manager, _, done := newTestManager(t, managerTestConfig(), provider)
	defer done()
	ctx := context.Background()

	created := signupAlice(t, manager)
	if _, err := manager.Login(ctx, "alice@example.com", "wrong-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := manager.Refresh(ctx, created.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := manager.Refresh(ctx, created.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected reuse rejection, got %v", err)
	}

	snap := manager.MetricsSnapshot()
	expectations := map[MetricID]uint64{
		MetricSignupSuccess:        1,
		MetricLoginFailure:         1,
		MetricRefreshSuccess:       1,
		MetricRefreshFailure:       1,
		MetricRefreshReuseDetected: 1,
		MetricSessionCreated:       1,
	}
	for id, want := range expectations {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("metric %d: expected %d, got %d", id, want, got)
		}
	}
}
