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

type UploadStore interface {
	CreateUpload(upload schema.Upload) (*schema.Upload, error)
	UpdateUpload(upload schema.Upload) error
	GetUpload(id string) (*schema.Upload, error)
	ListUploads(limit int64) ([]schema.Upload, error)
	SaveRowErrors(uploadID string, rowErrors []schema.RowError) error
	ListRowErrors(uploadID string) ([]schema.RowError, error)
}

func (m *mongoDB) CreateUpload(upload schema.Upload) (*schema.Upload, error) {
	c := m.client.Database(m.database).Collection(schema.UploadCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if upload.ID == "" {
		upload.ID = uuid.New().String()
	}
	if upload.UploadedAt == "" {
		upload.UploadedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if upload.Status == "" {
		upload.Status = schema.UploadStatusUploaded
	}

	if _, err := c.InsertOne(ctx, upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

func (m *mongoDB) UpdateUpload(upload schema.Upload) error {
	c := m.client.Database(m.database).Collection(schema.UploadCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	upload.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	doc, err := toBsonDoc(upload)
	if err != nil {
		return err
	}
	delete(doc, "_id")

	result, err := c.UpdateOne(ctx, bson.M{"_id": upload.ID}, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUploadNotFound
	}
	return nil
}

func (m *mongoDB) GetUpload(id string) (*schema.Upload, error) {
	c := m.client.Database(m.database).Collection(schema.UploadCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var upload schema.Upload
	err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&upload)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (m *mongoDB) ListUploads(limit int64) ([]schema.Upload, error) {
	c := m.client.Database(m.database).Collection(schema.UploadCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	uploads := []schema.Upload{}
	if err := cursor.All(ctx, &uploads); err != nil {
		return nil, err
	}
	return uploads, nil
}

func (m *mongoDB) SaveRowErrors(uploadID string, rowErrors []schema.RowError) error {
	if len(rowErrors) == 0 {
		return nil
	}
	c := m.client.Database(m.database).Collection(schema.RowErrorCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	docs := make([]interface{}, len(rowErrors))
	for i, rowError := range rowErrors {
		if rowError.ID == "" {
			rowError.ID = uuid.New().String()
		}
		rowError.UploadID = uploadID
		docs[i] = rowError
	}
	_, err := c.InsertMany(ctx, docs)
	return err
}

func (m *mongoDB) ListRowErrors(uploadID string) ([]schema.RowError, error) {
	c := m.client.Database(m.database).Collection(schema.RowErrorCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "row", Value: 1}})
	cursor, err := c.Find(ctx, bson.M{"uploadId": uploadID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rowErrors := []schema.RowError{}
	if err := cursor.All(ctx, &rowErrors); err != nil {
		return nil, err
	}
	return rowErrors, nil
}
