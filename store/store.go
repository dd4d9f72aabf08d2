package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultTimeout = 5 * time.Second

	// batchSize caps one bulk delete. Kept at the connector's historical
	// batch limit so purge progress is reportable in bounded steps.
	batchSize = 500
)

const (
	ActionInserted = "inserted"
	ActionUpdated  = "updated"
)

var (
	ErrRecordNotFound    = fmt.Errorf("record not found")
	ErrIoTDayNotFound    = fmt.Errorf("sensor day not found")
	ErrStopNotFound      = fmt.Errorf("stop not found")
	ErrStopExists        = fmt.Errorf("stop already exists")
	ErrAlertNotFound     = fmt.Errorf("alert not found")
	ErrUploadNotFound    = fmt.Errorf("upload not found")
	ErrReportNotFound    = fmt.Errorf("report not found")
	ErrExportRunNotFound = fmt.Errorf("export run not found")
)

// Store is the full persistence surface of the service.
type Store interface {
	Healther
	RecordStore
	IoTDayStore
	StopCatalog
	AlertStore
	UploadStore
	ReportStore
	IntegrationStore

	Close()
}

type Healther interface {
	Ping() error
}

type mongoDB struct {
	client   *mongo.Client
	database string
}

// NewMongoStore composes every store interface over one mongo client.
func NewMongoStore(client *mongo.Client, database string) Store {
	return &mongoDB{
		client:   client,
		database: database,
	}
}

func (m *mongoDB) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoDB) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	_ = m.client.Disconnect(ctx)
}
