package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCollection struct {
	filter interface{}
	update interface{}
	upsert bool
	err    error
}

func (f *fakeCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.filter = filter
	f.update = update
	for _, o := range opts {
		if o != nil && o.Upsert != nil {
			f.upsert = *o.Upsert
		}
	}
	return &mongo.UpdateResult{}, f.err
}

func TestMongoSinkPushesEvent(t *testing.T) {
	coll := &fakeCollection{}
	sink := newMongoSink(coll, "")

	err := sink.Record(context.Background(), "tg-1", Event{Name: EventCompanyProcessed, Candidate: "Alpha", FinalScore: Float(7)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	filter, ok := coll.filter.(bson.M)
	if !ok || filter["tracking_id"] != "tg-1" {
		t.Fatalf("unexpected filter %#v", coll.filter)
	}
	update, ok := coll.update.(bson.M)
	if !ok {
		t.Fatalf("unexpected update %#v", coll.update)
	}
	push, ok := update["$push"].(bson.M)
	if !ok {
		t.Fatalf("expected $push update, got %#v", update)
	}
	event, ok := push[LogField].(Event)
	if !ok || event.Name != EventCompanyProcessed || event.Timestamp.IsZero() {
		t.Fatalf("unexpected pushed event %#v", push[LogField])
	}
	if !coll.upsert {
		t.Fatalf("expected upsert")
	}
}

func TestLogSinkWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := LogSink{Logger: zap.New(core)}

	if err := sink.Record(context.Background(), "tg-2", Event{Name: EventRetryFailedCompanies, Count: Int(3), Message: "Retrying failed companies", Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["tracking_id"] != "tg-2" || ctx["event"] != EventRetryFailedCompanies || ctx["count"] != int64(3) {
		t.Fatalf("unexpected fields %v", ctx)
	}
}

type failingSink struct{ err error }

func (f failingSink) Record(context.Context, string, Event) error { return f.err }

func TestMultiReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	coll := &fakeCollection{}
	multi := Multi{failingSink{err: boom}, newMongoSink(coll, "telegram_id"), Nop{}}

	if err := multi.Record(context.Background(), "id", Event{Name: EventRankingStarted}); !errors.Is(err, boom) {
		t.Fatalf("expected first error, got %v", err)
	}
	if filter, _ := coll.filter.(bson.M); filter["telegram_id"] != "id" {
		t.Fatalf("later sinks must still receive the event")
	}
}
