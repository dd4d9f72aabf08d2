package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/twetter99/afluencia360/schema"
)

type AlertStore interface {
	ListAlerts() ([]schema.Alert, error)
	GetAlert(id string) (*schema.Alert, error)
	// SaveAlert upserts by key: concurrent recomputations collapse to
	// last-writer-wins on the same incident instead of duplicating it.
	SaveAlert(alert schema.Alert) error
	AcknowledgeAlert(id, user string) (*schema.Alert, error)
	ResolveAlert(id, user string) (*schema.Alert, error)
}

func (m *mongoDB) ListAlerts() ([]schema.Alert, error) {
	c := m.client.Database(m.database).Collection(schema.AlertCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cursor, err := c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	alerts := []schema.Alert{}
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (m *mongoDB) GetAlert(id string) (*schema.Alert, error) {
	c := m.client.Database(m.database).Collection(schema.AlertCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var alert schema.Alert
	err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&alert)
	if err == mongo.ErrNoDocuments {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (m *mongoDB) SaveAlert(alert schema.Alert) error {
	c := m.client.Database(m.database).Collection(schema.AlertCollection)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	// Full replace so fields the merge cleared (ack and resolution stamps
	// on a reopened alert) do not linger from the stored document.
	filter := bson.M{"key": alert.Key}

	var existing struct {
		ID string `bson:"_id"`
	}
	err := c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Decode(&existing)
	switch err {
	case nil:
		alert.ID = existing.ID
	case mongo.ErrNoDocuments:
	default:
		return err
	}

	_, err = c.ReplaceOne(ctx, filter, alert, options.Replace().SetUpsert(true))
	return err
}

func (m *mongoDB) AcknowledgeAlert(id, user string) (*schema.Alert, error) {
	return m.transitionAlert(id, func(alert *schema.Alert, nowIso string) {
		alert.Status = schema.AlertStatusAck
		alert.AckBy = user
		alert.AckAt = nowIso
	})
}

func (m *mongoDB) ResolveAlert(id, user string) (*schema.Alert, error) {
	return m.transitionAlert(id, func(alert *schema.Alert, nowIso string) {
		alert.Status = schema.AlertStatusResolved
		alert.ResolvedBy = user
		alert.ResolvedAt = nowIso
	})
}

func (m *mongoDB) transitionAlert(id string, apply func(*schema.Alert, string)) (*schema.Alert, error) {
	alert, err := m.GetAlert(id)
	if err != nil {
		return nil, err
	}

	nowIso := time.Now().UTC().Format(time.RFC3339)
	apply(alert, nowIso)
	if alert.LastSeenAt == "" {
		alert.LastSeenAt = nowIso
	}

	if err := m.SaveAlert(*alert); err != nil {
		return nil, err
	}
	return alert, nil
}
