package natsresults

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/a-h/localcluster"
	"github.com/nats-io/nats.go"
)

// mockPublisher fails the first failures calls, then records messages.
type mockPublisher struct {
	messages []*nats.Msg
	failures int
	calls    int
}

func (m *mockPublisher) PublishMsg(msg *nats.Msg) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("nats: connection closed")
	}
	m.messages = append(m.messages, msg)
	return nil
}

func TestNew(t *testing.T) {
	p, err := New(&nats.Conn{}, Config{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.config.MaxRetries != 3 {
		t.Errorf("expected default MaxRetries=3, got %d", p.config.MaxRetries)
	}
	if p.config.SubjectPrefix != "localcluster" {
		t.Errorf("expected the default subject prefix, got %q", p.config.SubjectPrefix)
	}
	if _, err = New(nil, Config{}); err == nil || err.Error() != "NATS connection cannot be nil" {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err = NewWithPublisher(nil, Config{}); err == nil {
		t.Error("expected an error for a nil publisher")
	}
}

func TestPutTrial(t *testing.T) {
	mock := &mockPublisher{}
	p, err := NewWithPublisher(mock, Config{
		SubjectPrefix: "sbm",
		Headers:       nats.Header{"env": []string{"test"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trial := localcluster.Trial{
		RunID: "run1",
		Seq:   12,
		K:     100,
		Disk:  localcluster.Measurement{TimeMillis: 40, ClusterSize: 1000, SymmetricDifference: 2},
	}
	if err = p.PutTrial(context.Background(), trial); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.messages))
	}
	msg := mock.messages[0]
	if msg.Subject != "sbm.trial.k100" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	expectedHeaders := map[string]string{
		"run-id":      "run1",
		"k":           "100",
		"kind":        "trial",
		"Nats-Msg-Id": "run1-trial-12",
		"env":         "test",
	}
	for k, v := range expectedHeaders {
		if actual := msg.Header.Get(k); actual != v {
			t.Errorf("expected header %s=%q, got %q", k, v, actual)
		}
	}
	var actual localcluster.Trial
	if err = json.Unmarshal(msg.Data, &actual); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if actual != trial {
		t.Errorf("expected %+v, got %+v", trial, actual)
	}
}

func TestPutAggregate(t *testing.T) {
	mock := &mockPublisher{}
	p, err := NewWithPublisher(mock, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = p.PutAggregate(context.Background(), localcluster.Aggregate{RunID: "run1", K: 20}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := mock.messages[0]
	if msg.Subject != "localcluster.aggregate.k20" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if id := msg.Header.Get(nats.MsgIdHdr); id != "run1-aggregate-20" {
		t.Errorf("unexpected message id %q", id)
	}
}

func TestRetries(t *testing.T) {
	t.Run("Succeeds after failures", func(t *testing.T) {
		mock := &mockPublisher{failures: 2}
		p, _ := NewWithPublisher(mock, Config{RetryDelay: time.Millisecond})
		if err := p.PutTrial(context.Background(), localcluster.Trial{RunID: "r"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mock.calls != 3 || len(mock.messages) != 1 {
			t.Errorf("expected 3 calls and 1 message, got %d and %d", mock.calls, len(mock.messages))
		}
	})
	t.Run("Gives up", func(t *testing.T) {
		mock := &mockPublisher{failures: 100}
		p, _ := NewWithPublisher(mock, Config{MaxRetries: 2, RetryDelay: time.Millisecond})
		if err := p.PutTrial(context.Background(), localcluster.Trial{RunID: "r"}); err == nil {
			t.Fatal("expected an error")
		}
		if mock.calls != 3 {
			t.Errorf("expected 3 calls, got %d", mock.calls)
		}
	})
	t.Run("Stops when the context is canceled", func(t *testing.T) {
		mock := &mockPublisher{failures: 100}
		p, _ := NewWithPublisher(mock, Config{RetryDelay: time.Hour})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := p.PutTrial(ctx, localcluster.Trial{RunID: "r"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if mock.calls != 1 {
			t.Errorf("expected 1 call, got %d", mock.calls)
		}
	})
}
