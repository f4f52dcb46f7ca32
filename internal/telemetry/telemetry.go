package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/spigell/leadscout/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	EventRankingStarted       = "ranking_started"
	EventProcessingCompany    = "processing_company"
	EventCompanyProcessed     = "company_processed"
	EventCompanyFailed        = "company_failed"
	EventRetryFailedCompanies = "retry_failed_companies"
	EventFailedCompaniesSaved = "failed_companies_saved"
	EventRankingCompleted     = "ranking_completed"
)

// LogField is the array every run event is pushed onto.
const LogField = "supervisor_logs"

// Event is one progress record of a ranking run.
type Event struct {
	Timestamp  time.Time      `bson:"timestamp" json:"timestamp"`
	Name       string         `bson:"event" json:"event"`
	Candidate  string         `bson:"company,omitempty" json:"company,omitempty"`
	FinalScore *float64       `bson:"final_score,omitempty" json:"final_score,omitempty"`
	Count      *int           `bson:"count,omitempty" json:"count,omitempty"`
	Message    string         `bson:"message" json:"message"`
	Fields     map[string]any `bson:"fields,omitempty" json:"fields,omitempty"`
}

// Sink receives run events. Implementations must not fail the run.
type Sink interface {
	Record(ctx context.Context, trackingID string, event Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Record(context.Context, string, Event) error { return nil }

// LogSink writes events to a zap logger.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Record(_ context.Context, trackingID string, event Event) error {
	fields := []zap.Field{
		zap.String(logger.FieldTrackingID, trackingID),
		zap.String("event", event.Name),
	}
	if event.Candidate != "" {
		fields = append(fields, zap.String(logger.FieldCandidateName, event.Candidate))
	}
	if event.FinalScore != nil {
		fields = append(fields, zap.Float64("final_score", *event.FinalScore))
	}
	if event.Count != nil {
		fields = append(fields, zap.Int("count", *event.Count))
	}
	if len(event.Fields) > 0 {
		fields = append(fields, zap.Any("fields", event.Fields))
	}
	logger.OrNop(s.Logger).Info(event.Message, fields...)
	return nil
}

type updater interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// MongoSink appends events to the run document keyed by tracking id.
type MongoSink struct {
	collection updater
	keyField   string
}

func NewMongoSink(collection *mongo.Collection, keyField string) *MongoSink {
	return newMongoSink(collection, keyField)
}

func newMongoSink(collection updater, keyField string) *MongoSink {
	if strings.TrimSpace(keyField) == "" {
		keyField = "tracking_id"
	}
	return &MongoSink{collection: collection, keyField: keyField}
}

func (s *MongoSink) Record(ctx context.Context, trackingID string, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.collection.UpdateOne(ctx,
		bson.M{s.keyField: trackingID},
		bson.M{"$push": bson.M{LogField: event}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Multi fans an event out to several sinks and returns the first error.
type Multi []Sink

func (m Multi) Record(ctx context.Context, trackingID string, event Event) error {
	var first error
	for _, sink := range m {
		if err := sink.Record(ctx, trackingID, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Float returns a pointer for optional numeric event fields.
func Float(v float64) *float64 { return &v }

func Int(v int) *int { return &v }
