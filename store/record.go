package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/twetter99/afluencia360/schema"
)

type RecordStore interface {
	// SaveRecord upserts by (stopCode, date) and reports whether the
	// write inserted or fully replaced an existing record.
	SaveRecord(rec schema.Record) (string, error)
	GetRecord(stopCode, date string) (*schema.Record, error)
	GetLatestRecord(stopCode string) (*schema.Record, error)
	ListRecords(filter schema.RecordFilter) ([]schema.Record, error)
	DeleteRecord(id string) error
	DeleteRecordsByStop(stopCode string) (int64, error)
}

func (m *mongoDB) SaveRecord(rec schema.Record) (string, error) {
	c := m.client.Database(m.database).Collection(schema.RecordCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if rec.UploadedAt == "" {
		rec.UploadedAt = time.Now().UTC().Format(time.RFC3339)
	}

	// Full replace, never a field merge: a second upload for the same
	// (stopCode, date) must drop every field the first one set.
	filter := bson.M{"stopCode": rec.StopCode, "date": rec.Date}

	action := ActionInserted
	rec.ID = uuid.New().String()
	var existing struct {
		ID string `bson:"_id"`
	}
	err := c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Decode(&existing)
	switch err {
	case nil:
		rec.ID = existing.ID
		action = ActionUpdated
	case mongo.ErrNoDocuments:
	default:
		return "", err
	}

	if _, err := c.ReplaceOne(ctx, filter, rec, options.Replace().SetUpsert(true)); err != nil {
		return "", err
	}
	return action, nil
}

func (m *mongoDB) GetRecord(stopCode, date string) (*schema.Record, error) {
	c := m.client.Database(m.database).Collection(schema.RecordCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var rec schema.Record
	err := c.FindOne(ctx, bson.M{"stopCode": stopCode, "date": date}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *mongoDB) GetLatestRecord(stopCode string) (*schema.Record, error) {
	c := m.client.Database(m.database).Collection(schema.RecordCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	var rec schema.Record
	err := c.FindOne(ctx, bson.M{"stopCode": stopCode}, opts).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *mongoDB) ListRecords(filter schema.RecordFilter) ([]schema.Record, error) {
	c := m.client.Database(m.database).Collection(schema.RecordCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.StopCode != "" {
		query["stopCode"] = filter.StopCode
	}
	if len(filter.StopCodes) > 0 {
		query["stopCode"] = bson.M{"$in": filter.StopCodes}
	}
	if filter.Entity != "" {
		query["entity"] = filter.Entity
	}
	dateRange := bson.M{}
	if filter.StartDate != "" {
		dateRange["$gte"] = filter.StartDate
	}
	if filter.EndDate != "" {
		dateRange["$lte"] = filter.EndDate
	}
	if len(dateRange) > 0 {
		query["date"] = dateRange
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []schema.Record{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *mongoDB) DeleteRecord(id string) error {
	c := m.client.Database(m.database).Collection(schema.RecordCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m *mongoDB) DeleteRecordsByStop(stopCode string) (int64, error) {
	c := m.client.Database(m.database).Collection(schema.RecordCollection)

	var deleted int64
	for {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		cursor, err := c.Find(ctx, bson.M{"stopCode": stopCode},
			options.Find().SetProjection(bson.M{"_id": 1}).SetLimit(batchSize))
		if err != nil {
			cancel()
			return deleted, err
		}

		var batch []struct {
			ID string `bson:"_id"`
		}
		if err := cursor.All(ctx, &batch); err != nil {
			cancel()
			return deleted, err
		}
		if len(batch) == 0 {
			cancel()
			return deleted, nil
		}

		ids := make([]string, len(batch))
		for i, doc := range batch {
			ids[i] = doc.ID
		}
		result, err := c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
		cancel()
		if err != nil {
			return deleted, err
		}
		deleted += result.DeletedCount
	}
}

// toBsonDoc flattens a struct through its bson tags so upserts can $set
// every field without clobbering the document id.
func toBsonDoc(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
