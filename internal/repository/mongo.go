package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/otodzorelashvili/Sea-Backend/internal/models"
)

type mongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) MessageStore {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "sender_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("sender_created_idx"),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &mongoStore{col: col}
}

func (r *mongoStore) InsertMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	m.Status = models.StatusSent
	m.CreatedAt = time.Now().UTC()
	res, err := r.col.InsertOne(ctx, m)
	if err != nil {
		return nil, err
	}
	oid := res.InsertedID.(primitive.ObjectID)
	m.ID = oid.Hex()
	return m, nil
}

func (r *mongoStore) UpdateStatus(ctx context.Context, ids []string, status string) error {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil
	}
	_, err := r.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		bson.M{"$set": bson.M{"status": status}})
	return err
}

func (r *mongoStore) SendersOf(ctx context.Context, ids []string) (map[string][]string, error) {
	oids := objectIDs(ids)
	out := make(map[string][]string)
	if len(oids) == 0 {
		return out, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(bson.M{"sender_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var doc struct {
			ID       primitive.ObjectID `bson:"_id"`
			SenderID string             `bson:"sender_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.SenderID] = append(out[doc.SenderID], doc.ID.Hex())
	}
	return out, cur.Err()
}

// objectIDs drops ids that are not valid hex ObjectIDs instead of failing the
// whole batch.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		out = append(out, oid)
	}
	return out
}
