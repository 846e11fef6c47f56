package authkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newAuditedManager(t *testing.T, sink AuditSink) (*Manager, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	cfg := managerTestConfig()
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false

	manager, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountProvider(newMockProvider()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return manager, func() {
		manager.Close()
		rdb.Close()
		mr.Close()
	}
}

func collectEvents(t *testing.T, sink *ChannelSink, n int) []AuditEvent {
	t.Helper()

	events := make([]AuditEvent, 0, n)
	deadline := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case event := <-sink.Events():
			events = append(events, event)
		case <-deadline:
			t.Fatalf("timed out waiting for audit events, got %d of %d", len(events), n)
		}
	}
	return events
}

func TestAuditLoginEvents(t *testing.T) {
	sink := NewChannelSink(64)
	manager, done := newAuditedManager(t, sink)
	defer done()

	ctx := WithClientIP(context.Background(), "203.0.113.7")

	result, err := manager.Signup(ctx, SignupRequest{
		Email:       "alice@example.com",
		Password:    "correct-horse",
		DisplayName: "Alice",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := manager.Login(ctx, "alice@example.com", "wrong-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	events := collectEvents(t, sink, 2)

	signup := events[0]
	if signup.EventType != auditEventSignupSuccess {
		t.Fatalf("expected signup_success first, got %q", signup.EventType)
	}
	if !signup.Success || signup.AccountID != result.Account.ID {
		t.Fatalf("unexpected signup event: %+v", signup)
	}
	if signup.IP != "203.0.113.7" {
		t.Fatalf("expected client IP propagated, got %q", signup.IP)
	}

	failure := events[1]
	if failure.EventType != auditEventLoginFailure {
		t.Fatalf("expected login_failure, got %q", failure.EventType)
	}
	if failure.Success {
		t.Fatal("expected failure event to report success=false")
	}
	if failure.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("expected error code invalid_credentials, got %q", failure.Error)
	}
	if failure.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("unexpected failure metadata: %v", failure.Metadata)
	}
}

func TestAuditReuseDetection(t *testing.T) {
	sink := NewChannelSink(64)
	manager, done := newAuditedManager(t, sink)
	defer done()
	ctx := context.Background()

	result, err := manager.Signup(ctx, SignupRequest{
		Email:       "alice@example.com",
		Password:    "correct-horse",
		DisplayName: "Alice",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := manager.Refresh(ctx, result.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := manager.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid on reuse, got %v", err)
	}

	events := collectEvents(t, sink, 3)
	reuse := events[2]
	if reuse.EventType != auditEventRefreshReuseDetected {
		t.Fatalf("expected refresh_reuse_detected, got %q", reuse.EventType)
	}
	if reuse.AccountID != result.Account.ID {
		t.Fatalf("expected reuse event bound to account, got %+v", reuse)
	}
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := blockingSink{release: block}

	d := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)

	// One event occupies the worker, one fills the buffer; the rest drop.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "x"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}

	close(block)
	d.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, AuditEvent) {
	<-s.release
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		EventType: "login_success",
		AccountID: "acc-1",
		Success:   true,
	})

	var decoded AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.EventType != "login_success" || decoded.AccountID != "acc-1" || !decoded.Success {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 16,
		DropIfFull: false,
	}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "x"})
	}
	d.Close()

	received := 0
	for {
		select {
		case <-sink.Events():
			received++
		default:
			if received != 5 {
				t.Fatalf("expected 5 drained events, got %d", received)
			}
			return
		}
	}
}

func TestErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want auditErrorCode
	}{
		{nil, ""},
		{ErrDuplicateEmail, auditErrDuplicate},
		{ErrInvalidCredentials, auditErrInvalidCredentials},
		{ErrRefreshInvalid, auditErrRefreshInvalid},
		{ErrSignupInvalid, auditErrSignupInvalid},
		{ErrPasswordPolicy, auditErrPasswordPolicy},
		{errors.New("anything else"), auditErrInternal},
	}

	for _, tc := range cases {
		if got := errorCode(tc.err); got != tc.want {
			t.Fatalf("errorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
