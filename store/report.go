package store

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/twetter99/afluencia360/schema"
)

type ReportStore interface {
	SaveReport(report schema.Report) (*schema.Report, error)
	GetReport(id string) (*schema.Report, error)
	ListReports(limit int64) ([]schema.Report, error)
	DeleteReport(id string) error
	// SeedReportTemplates inserts the default templates unless they are
	// already present.
	SeedReportTemplates(templates []schema.ReportTemplate) error
	ListReportTemplates() ([]schema.ReportTemplate, error)
}

func (m *mongoDB) SaveReport(report schema.Report) (*schema.Report, error) {
	c := m.client.Database(m.database).Collection(schema.ReportCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if _, err := c.InsertOne(ctx, report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (m *mongoDB) GetReport(id string) (*schema.Report, error) {
	c := m.client.Database(m.database).Collection(schema.ReportCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var report schema.Report
	err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (m *mongoDB) ListReports(limit int64) ([]schema.Report, error) {
	c := m.client.Database(m.database).Collection(schema.ReportCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "generatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reports := []schema.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (m *mongoDB) DeleteReport(id string) error {
	c := m.client.Database(m.database).Collection(schema.ReportCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (m *mongoDB) SeedReportTemplates(templates []schema.ReportTemplate) error {
	c := m.client.Database(m.database).Collection(schema.ReportTemplateCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	for _, tpl := range templates {
		doc, err := toBsonDoc(tpl)
		if err != nil {
			return err
		}
		delete(doc, "_id")
		update := bson.M{"$setOnInsert": doc}
		if _, err := c.UpdateOne(ctx, bson.M{"_id": tpl.ID}, update, options.Update().SetUpsert(true)); err != nil {
			return err
		}
	}
	return nil
}

func (m *mongoDB) ListReportTemplates() ([]schema.ReportTemplate, error) {
	c := m.client.Database(m.database).Collection(schema.ReportTemplateCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cursor, err := c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	templates := []schema.ReportTemplate{}
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}
