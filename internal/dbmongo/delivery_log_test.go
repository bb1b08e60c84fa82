package dbmongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"tenantlink/internal/notif"
)

func TestDeliveryLog(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("record inserts attempt", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		log := &DeliveryLog{coll: mt.Coll}

		err := log.Record(context.Background(), notif.DeliveryAttempt{
			NotificationID: "n1",
			UserID:         "u1",
			Channel:        notif.ChannelEmail,
			Target:         "a@example.com",
			Outcome:        notif.OutcomeSent,
		})
		require.NoError(mt, err)
	})

	mt.Run("record surfaces write errors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key",
		}))
		log := &DeliveryLog{coll: mt.Coll}

		err := log.Record(context.Background(), notif.DeliveryAttempt{Channel: notif.ChannelSMS})
		require.Error(mt, err)
		assert.True(mt, mongo.IsDuplicateKeyError(err))
	})

	mt.Run("for notification decodes attempts", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "notification_id", Value: "n1"},
			{Key: "channel", Value: notif.ChannelPush},
			{Key: "target", Value: "***abc"},
			{Key: "outcome", Value: notif.OutcomeFailed},
			{Key: "error", Value: "DeviceNotRegistered"},
			{Key: "attempted_at", Value: at},
		})
		end := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, end)
		log := &DeliveryLog{coll: mt.Coll}

		got, err := log.ForNotification(context.Background(), "n1")
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, notif.ChannelPush, got[0].Channel)
		assert.Equal(mt, "DeviceNotRegistered", got[0].Error)
		assert.True(mt, at.Equal(got[0].AttemptedAt))
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, (&DeliveryLog{coll: mt.Coll}).EnsureIndexes(context.Background()))
	})
}
