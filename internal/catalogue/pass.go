package catalogue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	apperrors "github.com/anime-shed/image-search-go/internal/errors"
	"github.com/anime-shed/image-search-go/internal/logger"
	"github.com/anime-shed/image-search-go/internal/observer"
	"github.com/anime-shed/image-search-go/internal/worker"
)

// Pass is a deferred job: a set of taggers over a selection. Building a
// pass does no work; Run does.
type Pass struct {
	cat       *Catalogue
	entries   []analyzer.Entry
	selection Selection
}

// Selection returns the rows the pass covers.
func (p *Pass) Selection() Selection { return p.selection }

// Taggers returns the tagger names of the pass in order.
func (p *Pass) Taggers() []string {
	names := make([]string, len(p.entries))
	for i, e := range p.entries {
		names[i] = e.Name
	}
	return names
}

// Report summarizes a finished pass.
type Report struct {
	PassID   string        `json:"pass_id"`
	Rows     int           `json:"rows"`
	Units    int           `json:"units"`
	Writes   int           `json:"writes"`
	Failures int           `json:"failures"`
	Duration time.Duration `json:"duration_ns"`
}

// unitResult holds the encoded column value of one (image, tagger) unit.
type unitResult struct {
	value    any
	err      error
	duration time.Duration
}

// Run tags every selected image with every tagger of the pass. Each image
// is decoded once and its units run on workers; the connection is held for
// the whole pass. Successful results are written in one transaction after
// all units finish, and the first unit failure is returned afterwards.
// Once rows are resolved the pass runs to completion even if ctx is
// cancelled.
func (p *Pass) Run(ctx context.Context, workers *worker.WorkerPool) (*Report, error) {
	start := time.Now()
	report := &Report{PassID: uuid.NewString()}
	log := logger.ForPass(report.PassID).WithField("taggers", p.Taggers())

	if len(p.entries) == 0 || p.selection.IsEmpty() {
		report.Duration = time.Since(start)
		return report, nil
	}

	h, err := p.cat.pool.Acquire(ctx)
	if err != nil {
		return report, err
	}
	defer h.Release()
	conn := h.Conn()

	rows, err := queryRows(ctx, conn, p.selection, nil)
	if err != nil {
		return report, err
	}
	ctx = context.WithoutCancel(ctx)

	report.Rows = len(rows)
	report.Units = len(rows) * len(p.entries)
	p.publish(ctx, observer.PassEvent{
		EventType: observer.PassStarted,
		PassID:    report.PassID,
		Success:   true,
		Metadata: map[string]interface{}{
			"rows":      report.Rows,
			"taggers":   p.Taggers(),
			"selection": p.selection.String(),
		},
	})
	log.WithField("rows", report.Rows).Info("Pass started")

	results := make([]unitResult, report.Units)
	batch := workers.NewBatch()
	for ri, row := range rows {
		img, loadErr := p.cat.loader.Load(ctx, row.path)
		var frame *analyzer.Frame
		if loadErr != nil {
			loadErr = apperrors.NewAnalysisFailure(fmt.Sprintf("image %s could not be loaded from %q", row.id, row.path), loadErr)
		} else {
			frame = analyzer.NewFrame(img)
		}

		for ei, entry := range p.entries {
			res := &results[ri*len(p.entries)+ei]
			if loadErr != nil {
				res.err = loadErr
				p.publishUnit(ctx, report.PassID, row.id, entry.Name, res)
				continue
			}
			imageID, name, tagger := row.id, entry.Name, entry.Tagger
			err := batch.Submit(func() {
				began := time.Now()
				res.value, res.err = tagUnit(tagger, frame, name, imageID)
				res.duration = time.Since(began)
				p.publishUnit(ctx, report.PassID, imageID, name, res)
			}, func(recovered any) {
				logger.ForUnit(report.PassID, imageID, name).WithField("panic", recovered).Error("Tagger panicked")
				res.value = nil
				res.err = apperrors.NewAnalysisFailure(fmt.Sprintf("tagger %s panicked on image %s: %v", name, imageID, recovered), nil)
				p.publishUnit(ctx, report.PassID, imageID, name, res)
			})
			if err != nil {
				res.err = apperrors.NewInternalError("worker pool rejected unit", err)
			}
		}
	}
	batch.Wait()

	var firstErr error
	for _, res := range results {
		if res.err != nil {
			report.Failures++
			if firstErr == nil {
				firstErr = res.err
			}
		}
	}

	report.Writes, err = p.write(ctx, conn, rows, results)
	report.Duration = time.Since(start)
	if err != nil {
		p.publishFinished(ctx, report, err)
		log.WithError(err).Error("Pass could not write results")
		return report, err
	}

	p.publishFinished(ctx, report, firstErr)
	entry := log.WithFields(logrus.Fields{
		"rows":        report.Rows,
		"writes":      report.Writes,
		"failures":    report.Failures,
		"duration_ms": report.Duration.Milliseconds(),
	})
	if firstErr != nil {
		entry.WithError(firstErr).Warn("Pass finished with failures")
		return report, firstErr
	}
	entry.Info("Pass completed")
	return report, nil
}

// write stores every successful unit in one transaction, null values
// included.
func (p *Pass) write(ctx context.Context, conn *sql.Conn, rows []imageRow, results []unitResult) (int, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewStorageFailure("begin pass transaction", err)
	}
	defer tx.Rollback()

	stmts := make([]*sql.Stmt, len(p.entries))
	for ei, e := range p.entries {
		query := fmt.Sprintf("UPDATE images SET %s = ? WHERE id = ?", quoteIdent(ColumnName(e.Name)))
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return 0, apperrors.NewStorageFailure(fmt.Sprintf("prepare update for tagger %q", e.Name), err)
		}
		defer stmt.Close()
		stmts[ei] = stmt
	}

	writes := 0
	for ri, row := range rows {
		for ei, e := range p.entries {
			res := results[ri*len(p.entries)+ei]
			if res.err != nil {
				continue
			}
			if _, err := stmts[ei].ExecContext(ctx, res.value, row.id); err != nil {
				return 0, apperrors.NewStorageFailure(fmt.Sprintf("write %s of image %s", e.Name, row.id), err)
			}
			writes++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewStorageFailure("commit pass transaction", err)
	}
	return writes, nil
}

// tagUnit runs one tagger and encodes its value for the tag column.
func tagUnit(tagger analyzer.Tagger, frame *analyzer.Frame, name, imageID string) (any, error) {
	v, err := tagger.Tag(frame)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeAnalysisFailure) {
			return nil, err
		}
		return nil, apperrors.NewAnalysisFailure(fmt.Sprintf("tagger %s failed on image %s", name, imageID), err)
	}
	arg, err := encodeValue(tagger.Kind(), v)
	if err != nil {
		return nil, apperrors.NewAnalysisFailure(fmt.Sprintf("tagger %s returned an unstorable value for image %s", name, imageID), err)
	}
	return arg, nil
}

func (p *Pass) publish(ctx context.Context, event observer.PassEvent) {
	if p.cat.events == nil {
		return
	}
	event.Timestamp = time.Now()
	p.cat.events.NotifyObservers(ctx, event)
}

func (p *Pass) publishUnit(ctx context.Context, passID, imageID, tagger string, res *unitResult) {
	event := observer.PassEvent{
		EventType: observer.UnitCompleted,
		PassID:    passID,
		ImageID:   imageID,
		Tagger:    tagger,
		Duration:  res.duration,
		Success:   res.err == nil,
	}
	if res.err != nil {
		event.EventType = observer.UnitFailed
		event.Error = res.err.Error()
	}
	p.publish(ctx, event)
}

func (p *Pass) publishFinished(ctx context.Context, report *Report, err error) {
	event := observer.PassEvent{
		EventType: observer.PassCompleted,
		PassID:    report.PassID,
		Duration:  report.Duration,
		Success:   err == nil,
		Metadata: map[string]interface{}{
			"rows":     report.Rows,
			"writes":   report.Writes,
			"failures": report.Failures,
		},
	}
	if err != nil {
		event.EventType = observer.PassFailed
		event.Error = err.Error()
	}
	p.publish(ctx, event)
}
