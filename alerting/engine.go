package alerting

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/twetter99/afluencia360/ingest"
	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
	"github.com/twetter99/afluencia360/utils"
)

const defaultWorkers = 8

// RecordSource is the slice of the store the engine reads records from.
type RecordSource interface {
	GetLatestRecord(stopCode string) (*schema.Record, error)
	ListRecords(filter schema.RecordFilter) ([]schema.Record, error)
}

// StopSource lists the catalog when no explicit stop scope is given.
type StopSource interface {
	ListStops() ([]schema.Stop, error)
}

// AlertSink reads and upserts stored alerts.
type AlertSink interface {
	ListAlerts() ([]schema.Alert, error)
	SaveAlert(alert schema.Alert) error
}

// Engine recomputes operational alerts over the whole catalog or a subset of
// stops. Recompute is idempotent: running it twice against unchanged data
// leaves the alert set identical.
type Engine struct {
	records RecordSource
	stops   StopSource
	alerts  AlertSink
	lang    string
	workers int
	now     func() time.Time
}

func NewEngine(records RecordSource, stops StopSource, alerts AlertSink) *Engine {
	return &Engine{
		records: records,
		stops:   stops,
		alerts:  alerts,
		lang:    "es",
		workers: defaultWorkers,
		now:     time.Now,
	}
}

// Recompute evaluates every candidate stop, merges triggered candidates into
// stored alerts and resolves stored alerts whose key no longer fires. A stop
// whose evaluation fails is logged and skipped; its stored alerts are left
// untouched rather than spuriously resolved.
func (e *Engine) Recompute(ctx context.Context, stopCodes []string) ([]schema.Alert, error) {
	now := e.now().UTC()
	nowIso := now.Format(time.RFC3339)
	today := now.Format("2006-01-02")
	start := shiftDate(today, -7)

	codes := make([]string, 0, len(stopCodes))
	for _, code := range stopCodes {
		codes = append(codes, ingest.ResolveStopCode(code, ""))
	}
	if len(codes) == 0 {
		stops, err := e.stops.ListStops()
		if err != nil {
			return nil, err
		}
		for _, stop := range stops {
			// Deactivated shelters stop reporting by definition; keeping
			// them as candidates would raise a NO_DATA alert forever.
			if stop.Status == schema.StopStatusInactive {
				continue
			}
			codes = append(codes, stop.StopCode)
		}
	}

	localizer := utils.NewLocalizer(e.lang)

	var (
		mu         sync.Mutex
		candidates []schema.Alert
		evaluated  = map[string]bool{}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, code := range codes {
		code := code
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			latest, err := e.records.GetLatestRecord(code)
			if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
				log.WithField("prefix", "alerting").WithField("stop_code", code).WithError(err).Warn("skip stop evaluation")
				return nil
			}

			records, err := e.records.ListRecords(schema.RecordFilter{
				StopCode:  code,
				StartDate: start,
				EndDate:   today,
				Limit:     800,
			})
			if err != nil {
				log.WithField("prefix", "alerting").WithField("stop_code", code).WithError(err).Warn("skip stop evaluation")
				return nil
			}

			stopCandidates := evaluateStop(localizer, code, latest, records, today, now)

			mu.Lock()
			candidates = append(candidates, stopCandidates...)
			evaluated[code] = true
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stored, err := e.alerts.ListAlerts()
	if err != nil {
		return nil, err
	}
	byKey := map[string]*schema.Alert{}
	for i := range stored {
		byKey[stored[i].Key] = &stored[i]
	}

	activeKeys := map[string]bool{}
	for _, candidate := range candidates {
		activeKeys[candidate.Key] = true
		merged := MergeAlert(byKey[candidate.Key], candidate)
		if err := e.alerts.SaveAlert(merged); err != nil {
			return nil, err
		}
	}

	for _, existing := range stored {
		stillFiring := activeKeys[existing.Key]
		open := existing.Status == schema.AlertStatusOpen || existing.Status == schema.AlertStatusAck
		if stillFiring || !open || !evaluated[existing.StopCode] {
			continue
		}
		if err := e.alerts.SaveAlert(ResolveAlertBySystem(existing, nowIso)); err != nil {
			return nil, err
		}
	}

	final, err := e.alerts.ListAlerts()
	if err != nil {
		return nil, err
	}
	return SortAlerts(final), nil
}
