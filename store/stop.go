package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/twetter99/afluencia360/schema"
)

type StopCatalog interface {
	CreateStop(stop schema.Stop) error
	GetStop(stopCode string) (*schema.Stop, error)
	ListStops() ([]schema.Stop, error)
	UpdateStop(stop schema.Stop) (*schema.Stop, error)
	// DeactivateStop soft-deletes: the stop stays in the catalog with
	// status inactive and its records are kept.
	DeactivateStop(stopCode string) error
	// DeleteStop removes the catalog entry. Record purging is a separate
	// concern, see RecordStore.DeleteRecordsByStop.
	DeleteStop(stopCode string) error
}

func (m *mongoDB) CreateStop(stop schema.Stop) error {
	c := m.client.Database(m.database).Collection(schema.StopCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if stop.Status == "" {
		stop.Status = schema.StopStatusActive
	}
	if stop.CreatedAt == "" {
		stop.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if stop.Photos == nil {
		stop.Photos = []string{}
	}

	_, err := c.InsertOne(ctx, stop)
	if mongo.IsDuplicateKeyError(err) {
		return ErrStopExists
	}
	return err
}

func (m *mongoDB) GetStop(stopCode string) (*schema.Stop, error) {
	c := m.client.Database(m.database).Collection(schema.StopCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stop schema.Stop
	err := c.FindOne(ctx, bson.M{"_id": stopCode}).Decode(&stop)
	if err == mongo.ErrNoDocuments {
		return nil, ErrStopNotFound
	}
	if err != nil {
		return nil, err
	}
	return &stop, nil
}

func (m *mongoDB) ListStops() ([]schema.Stop, error) {
	c := m.client.Database(m.database).Collection(schema.StopCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cursor, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stops := []schema.Stop{}
	if err := cursor.All(ctx, &stops); err != nil {
		return nil, err
	}
	return stops, nil
}

func (m *mongoDB) UpdateStop(stop schema.Stop) (*schema.Stop, error) {
	c := m.client.Database(m.database).Collection(schema.StopCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	stop.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	doc, err := toBsonDoc(stop)
	if err != nil {
		return nil, err
	}
	delete(doc, "_id")

	result, err := c.UpdateOne(ctx, bson.M{"_id": stop.StopCode}, bson.M{"$set": doc})
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, ErrStopNotFound
	}
	return &stop, nil
}

func (m *mongoDB) DeactivateStop(stopCode string) error {
	c := m.client.Database(m.database).Collection(schema.StopCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":    schema.StopStatusInactive,
		"updatedAt": time.Now().UTC().Format(time.RFC3339),
	}}
	result, err := c.UpdateOne(ctx, bson.M{"_id": stopCode}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrStopNotFound
	}
	return nil
}

func (m *mongoDB) DeleteStop(stopCode string) error {
	c := m.client.Database(m.database).Collection(schema.StopCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result, err := c.DeleteOne(ctx, bson.M{"_id": stopCode})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrStopNotFound
	}
	return nil
}
