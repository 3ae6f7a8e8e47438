package pwreset

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDispatcherDeliversAndFlushes(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventTokenIssued})
	}
	d.Close()

	received := 0
	for {
		select {
		case <-sink.Events():
			received++
		default:
			if received != 5 {
				t.Fatalf("expected 5 events after Close, got %d", received)
			}
			return
		}
	}
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, nil)
	if d != nil {
		t.Fatal("disabled dispatcher must be nil")
	}
	// nil receiver is safe on every method.
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports drops")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// A sink that blocks until released keeps the buffer saturated.
	blocked := make(chan struct{})
	sink := blockingSink{unblock: blocked}

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no drops recorded with saturated buffer")
		}
		d.Emit(context.Background(), AuditEvent{EventType: auditEventResetRequest})
	}

	close(blocked)
	d.Close()
}

type blockingSink struct {
	unblock <-chan struct{}
}

func (s blockingSink) Emit(ctx context.Context, event AuditEvent) {
	<-s.unblock
}

func TestDispatcherEmitAfterClose(t *testing.T) {
	sink := NewChannelSink(4)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	d.Emit(context.Background(), AuditEvent{EventType: auditEventResetRequest})

	select {
	case event := <-sink.Events():
		t.Fatalf("event delivered after Close: %+v", event)
	default:
	}
}

func TestJSONWriterSinkLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		EventType:   auditEventPasswordApplied,
		AccountName: "jdoe",
		Success:     true,
	})
	sink.Emit(context.Background(), AuditEvent{
		EventType: auditEventResetRedeem,
		Success:   false,
		Error:     "no outstanding token",
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %q", len(lines), buf.String())
	}

	var first AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not valid JSON: %v", err)
	}
	if first.EventType != auditEventPasswordApplied || first.AccountName != "jdoe" || !first.Success {
		t.Fatalf("unexpected first event: %+v", first)
	}
}

func TestEngineEmitsAuditTrail(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	dir := newFakeDirectory()
	dir.addAccount("jdoe", "CN=John Doe,DC=example,DC=com", "jdoe@example.com")

	sink := NewChannelSink(32)
	engine := newTestEngine(t, rdb, dir)
	engine.audit = newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 32}, sink)

	ref, err := engine.RequestReset(ctx, "jdoe", "jdoe@example.com", testRealm)
	if err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}
	if _, err := engine.RedeemReset(ctx, "jdoe", ref.Token, testRealm); err != nil {
		t.Fatalf("RedeemReset failed: %v", err)
	}
	engine.Close()

	seen := map[string]int{}
	for {
		select {
		case event := <-sink.Events():
			seen[event.EventType]++
			if strings.Contains(event.Error, ref.Token) {
				t.Fatalf("token leaked into audit event: %+v", event)
			}
		default:
			for _, want := range []string{
				auditEventResetRequest,
				auditEventTokenIssued,
				auditEventResetRedeem,
				auditEventPasswordApplied,
			} {
				if seen[want] == 0 {
					t.Fatalf("missing %s event, saw %v", want, seen)
				}
			}
			return
		}
	}
}
