package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/twetter99/afluencia360/schema"
)

type IoTDayStore interface {
	// SaveIoTDay upserts the full sensor day under (stopCode, date).
	SaveIoTDay(stopCode string, day schema.IoTDay) error
	GetIoTDay(stopCode, date string) (*schema.IoTDay, error)
	// GetLatestIoTDay and ListIoTDays scan the whole collection when
	// stopCode is empty.
	GetLatestIoTDay(stopCode string) (*schema.IoTDay, error)
	ListIoTDays(stopCode string) ([]schema.IoTDay, error)
	DeleteIoTDaysByStop(stopCode string) (int64, error)
}

type iotDayDoc struct {
	StopCode string        `bson:"stopCode"`
	Date     string        `bson:"date"`
	Day      schema.IoTDay `bson:"day"`
}

func (m *mongoDB) SaveIoTDay(stopCode string, day schema.IoTDay) error {
	c := m.client.Database(m.database).Collection(schema.IoTDayCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	filter := bson.M{"stopCode": stopCode, "date": day.Meta.Date}
	update := bson.M{"$set": iotDayDoc{StopCode: stopCode, Date: day.Meta.Date, Day: day}}
	_, err := c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (m *mongoDB) GetIoTDay(stopCode, date string) (*schema.IoTDay, error) {
	c := m.client.Database(m.database).Collection(schema.IoTDayCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var doc iotDayDoc
	err := c.FindOne(ctx, bson.M{"stopCode": stopCode, "date": date}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrIoTDayNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc.Day, nil
}

func (m *mongoDB) GetLatestIoTDay(stopCode string) (*schema.IoTDay, error) {
	c := m.client.Database(m.database).Collection(schema.IoTDayCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := bson.M{}
	if stopCode != "" {
		query["stopCode"] = stopCode
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	var doc iotDayDoc
	err := c.FindOne(ctx, query, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrIoTDayNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc.Day, nil
}

func (m *mongoDB) ListIoTDays(stopCode string) ([]schema.IoTDay, error) {
	c := m.client.Database(m.database).Collection(schema.IoTDayCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := bson.M{}
	if stopCode != "" {
		query["stopCode"] = stopCode
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []iotDayDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	days := make([]schema.IoTDay, len(docs))
	for i, doc := range docs {
		days[i] = doc.Day
	}
	return days, nil
}

func (m *mongoDB) DeleteIoTDaysByStop(stopCode string) (int64, error) {
	c := m.client.Database(m.database).Collection(schema.IoTDayCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result, err := c.DeleteMany(ctx, bson.M{"stopCode": stopCode})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
