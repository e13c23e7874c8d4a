package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/snappy-loop/imagine/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishRunCompleted(t *testing.T) {
	w := &fakeWriter{}
	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &Producer{writer: w, topic: "imagine.runs.v1", now: func() time.Time { return finished }}

	runID := uuid.New()
	err := p.PublishRunCompleted(context.Background(), &models.GenerationResult{
		RunID:     runID,
		Requested: 3,
		Succeeded: 2,
		Failed:    1,
		ImageURLs: []string{"https://b.s3.amazonaws.com/1_1.png", "https://b.s3.amazonaws.com/1_3.png"},
	})
	if err != nil {
		t.Fatalf("PublishRunCompleted: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	if string(w.msgs[0].Key) != runID.String() {
		t.Errorf("key = %q, want run id", w.msgs[0].Key)
	}

	var got RunCompletedMessage
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.RunID != runID || got.Requested != 3 || got.Succeeded != 2 || got.Failed != 1 {
		t.Errorf("message = %+v", got)
	}
	if len(got.ImageURLs) != 2 || !got.FinishedAt.Equal(finished) {
		t.Errorf("message = %+v", got)
	}
}

func TestPublishRunCompleted_EmptyURLsEncodeAsArray(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "t", now: time.Now}

	if err := p.PublishRunCompleted(context.Background(), &models.GenerationResult{RunID: uuid.New(), Requested: 1, Failed: 1}); err != nil {
		t.Fatalf("PublishRunCompleted: %v", err)
	}

	var raw map[string]json.RawMessage
	json.Unmarshal(w.msgs[0].Value, &raw)
	if string(raw["image_urls"]) != "[]" {
		t.Errorf("image_urls = %s, want []", raw["image_urls"])
	}
}

func TestPublishRunCompleted_WriteError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("no brokers")}, topic: "t", now: time.Now}

	if err := p.PublishRunCompleted(context.Background(), &models.GenerationResult{RunID: uuid.New()}); err == nil {
		t.Error("expected error")
	}
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "t", now: time.Now}
	p.Close()
	if !w.closed {
		t.Error("writer not closed")
	}
}
