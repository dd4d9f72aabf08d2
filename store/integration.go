package store

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/twetter99/afluencia360/schema"
)

type IntegrationStore interface {
	// GetCRTMConfig returns the connector config, seeding the default on
	// first read.
	GetCRTMConfig(defaults schema.CRTMConfig) (*schema.CRTMConfig, error)
	UpdateCRTMConfig(config schema.CRTMConfig) error
	SaveExportRun(run schema.ExportRun) (*schema.ExportRun, error)
	GetExportRun(id string) (*schema.ExportRun, error)
	ListExportRuns(limit int64) ([]schema.ExportRun, error)
}

type crtmConfigDoc struct {
	ID     string            `bson:"_id"`
	Config schema.CRTMConfig `bson:"config"`
}

func (m *mongoDB) GetCRTMConfig(defaults schema.CRTMConfig) (*schema.CRTMConfig, error) {
	c := m.client.Database(m.database).Collection(schema.IntegrationCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var doc crtmConfigDoc
	err := c.FindOne(ctx, bson.M{"_id": schema.CRTMConfigID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		seed := crtmConfigDoc{ID: schema.CRTMConfigID, Config: defaults}
		update := bson.M{"$setOnInsert": bson.M{"config": seed.Config}}
		if _, err := c.UpdateOne(ctx, bson.M{"_id": schema.CRTMConfigID}, update, options.Update().SetUpsert(true)); err != nil {
			return nil, err
		}
		config := defaults
		return &config, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc.Config, nil
}

func (m *mongoDB) UpdateCRTMConfig(config schema.CRTMConfig) error {
	c := m.client.Database(m.database).Collection(schema.IntegrationCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"config": config}}
	_, err := c.UpdateOne(ctx, bson.M{"_id": schema.CRTMConfigID}, update, options.Update().SetUpsert(true))
	return err
}

func (m *mongoDB) SaveExportRun(run schema.ExportRun) (*schema.ExportRun, error) {
	c := m.client.Database(m.database).Collection(schema.ExportRunCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if _, err := c.InsertOne(ctx, run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (m *mongoDB) GetExportRun(id string) (*schema.ExportRun, error) {
	c := m.client.Database(m.database).Collection(schema.ExportRunCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var run schema.ExportRun
	err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if err == mongo.ErrNoDocuments {
		return nil, ErrExportRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (m *mongoDB) ListExportRuns(limit int64) ([]schema.ExportRun, error) {
	c := m.client.Database(m.database).Collection(schema.ExportRunCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	runs := []schema.ExportRun{}
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
