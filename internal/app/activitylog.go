package app

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// ActivitySink is the audit trail backend. The primary sink writes to the
// relational store; a Mongo sink can be configured alongside it for
// off-box retention.
type ActivitySink interface {
	Record(ctx context.Context, entry ActivityLog) error
	Recent(ctx context.Context, limit int) ([]ActivityLog, error)
}

type gormActivitySink struct {
	db *gorm.DB
}

func NewGormActivitySink(db *gorm.DB) ActivitySink {
	return &gormActivitySink{db: db}
}

func (s *gormActivitySink) Record(ctx context.Context, entry ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

func (s *gormActivitySink) Recent(ctx context.Context, limit int) ([]ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []ActivityLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

type mongoActivitySink struct {
	col *mongo.Collection
}

// NewMongoActivitySink connects to the configured Mongo deployment and
// returns a sink over its activity_log collection.
func NewMongoActivitySink(ctx context.Context, uri, database string) (ActivitySink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	if database == "" {
		database = "viego"
	}
	return &mongoActivitySink{col: client.Database(database).Collection("activity_log")}, nil
}

func (s *mongoActivitySink) Record(ctx context.Context, entry ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, entry)
	return err
}

func (s *mongoActivitySink) Recent(ctx context.Context, limit int) ([]ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []ActivityLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// teeActivitySink fans writes out to every sink; reads come from the
// first one.
type teeActivitySink struct {
	sinks []ActivitySink
}

func NewTeeActivitySink(sinks ...ActivitySink) ActivitySink {
	return &teeActivitySink{sinks: sinks}
}

func (s *teeActivitySink) Record(ctx context.Context, entry ActivityLog) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *teeActivitySink) Recent(ctx context.Context, limit int) ([]ActivityLog, error) {
	if len(s.sinks) == 0 {
		return nil, nil
	}
	return s.sinks[0].Recent(ctx, limit)
}

// logActivity records asynchronously; an audit write must never fail a
// user request.
func (srv *Server) logActivity(userID int64, action, targetType string, targetID int64, detail string) {
	if srv.activity == nil {
		return
	}
	entry := ActivityLog{
		UserID:     userID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	safeGo("activity-log", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.activity.Record(ctx, entry); err != nil {
			log.Printf("⚠️ Failed to record activity %s: %v", action, err)
		}
	})
}
