package dbmongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tenantlink/internal/notif"
)

const DefaultDeliveryCollection = "delivery_attempts"

// DeliveryLog appends one document per channel attempt. It implements
// notif.DeliveryRecorder.
type DeliveryLog struct {
	coll *mongo.Collection
}

func NewDeliveryLog(db *mongo.Database, collection string) *DeliveryLog {
	if collection == "" {
		collection = DefaultDeliveryCollection
	}
	return &DeliveryLog{coll: db.Collection(collection)}
}

// EnsureIndexes creates the lookup indexes; it is safe to call on every start.
func (l *DeliveryLog) EnsureIndexes(ctx context.Context) error {
	_, err := l.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "attempted_at", Value: -1}}},
		{Keys: bson.D{{Key: "notification_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create delivery log indexes: %w", err)
	}
	return nil
}

func (l *DeliveryLog) Record(ctx context.Context, attempt notif.DeliveryAttempt) error {
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now().UTC()
	}
	if _, err := l.coll.InsertOne(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}
	return nil
}

// ForNotification returns the attempts for one notification, oldest first.
func (l *DeliveryLog) ForNotification(ctx context.Context, notificationID string) ([]notif.DeliveryAttempt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "attempted_at", Value: 1}})
	cur, err := l.coll.Find(ctx, bson.M{"notification_id": notificationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery attempts: %w", err)
	}
	defer cur.Close(ctx)

	var out []notif.DeliveryAttempt
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode delivery attempts: %w", err)
	}
	return out, nil
}
