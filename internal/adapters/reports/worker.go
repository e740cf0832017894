// Package reports runs asynchronous estimate exports: a queued worker
// computes a population estimate, renders it to the requested formats, and
// publishes the artifacts to blob storage with an audit trail.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fiacore/internal/blob"
	"fiacore/internal/core"
)

// Format identifies an artifact rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures a stored estimate artifact.
type Artifact struct {
	ID          string    `json:"id"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Key         string    `json:"key"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks an export request and resulting artifacts.
type Record struct {
	ID          string       `json:"id"`
	Request     core.Request `json:"request"`
	Formats     []Format     `json:"formats"`
	Status      Status       `json:"status"`
	Error       string       `json:"error,omitempty"`
	Artifacts   []Artifact   `json:"artifacts,omitempty"`
	RequestedBy string       `json:"requested_by"`
	Reason      string       `json:"reason,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

func (r Record) copy() Record {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}

// Input represents an enqueue request for the worker.
type Input struct {
	Request     core.Request
	Formats     []Format
	RequestedBy string
	Reason      string
}

// Estimator computes population estimates; satisfied by core.EstimateService.
type Estimator interface {
	Estimate(ctx context.Context, req core.Request) (core.Estimate, error)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Status     Status         `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Worker executes estimate exports asynchronously.
type Worker struct {
	estimator Estimator
	blobs     blob.Store
	audit     AuditLogger
	logger    *zap.Logger

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id    string
	input Input
}

// NewWorker constructs an export worker.
func NewWorker(estimator Estimator, blobs blob.Store, audit AuditLogger, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		estimator: estimator,
		blobs:     blobs,
		audit:     audit,
		logger:    logger,
		queue:     make(chan task, 32),
		jobs:      make(map[string]*Record),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// Enqueue schedules an export job and returns the queued record.
func (w *Worker) Enqueue(ctx context.Context, input Input) (Record, error) {
	if w.estimator == nil {
		return Record{}, fmt.Errorf("estimator not configured")
	}
	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	seen := make(map[Format]struct{}, len(formats))
	uniq := make([]Format, 0, len(formats))
	for _, f := range formats {
		if f != FormatJSON && f != FormatCSV {
			return Record{}, fmt.Errorf("unsupported export format %s", f)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		uniq = append(uniq, f)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	record := Record{
		ID:          id,
		Request:     input.Request,
		Formats:     uniq,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()

	w.recordAudit(ctx, input.RequestedBy, StatusQueued, input.Reason, nil)

	select {
	case w.queue <- task{id: id, input: input}:
	default:
		// The record was already registered; leaving it queued would strand
		// it forever since no task ever reaches the loop.
		w.fail(id, "export queue full")
		return Record{}, fmt.Errorf("export queue full")
	}
	return queued, nil
}

// Get returns a snapshot of the export record.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(t task) {
	w.setStatus(t.id, StatusRunning, "")

	est, err := w.estimator.Estimate(w.ctx, t.input.Request)
	if err != nil {
		w.fail(t.id, fmt.Sprintf("estimate failed: %v", err))
		return
	}

	record, ok := w.Get(t.id)
	if !ok {
		return
	}
	artifacts := make([]Artifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		payload, contentType, err := render(format, est)
		if err != nil {
			w.fail(t.id, err.Error())
			return
		}
		artifact := Artifact{
			ID:          uuid.NewString(),
			Format:      format,
			ContentType: contentType,
			SizeBytes:   int64(len(payload)),
			CreatedAt:   time.Now().UTC(),
		}
		if w.blobs != nil {
			key := fmt.Sprintf("estimates/%s/%s.%s", t.id, artifact.ID, format)
			info, err := w.blobs.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
				ContentType: contentType,
				Metadata: map[string]string{
					"family":     string(est.Request.Family),
					"evaluation": est.EvaluationID,
				},
			})
			if err != nil {
				w.fail(t.id, fmt.Sprintf("store artifact failed: %v", err))
				return
			}
			artifact.Key = info.Key
			artifact.URL = info.URL
		}
		artifacts = append(artifacts, artifact)
	}
	w.complete(t.id, artifacts)
	w.logger.Info("estimate export complete",
		zap.String("export", t.id),
		zap.String("evaluation", est.EvaluationID),
		zap.Int("artifacts", len(artifacts)))
}

func (w *Worker) setStatus(id string, status Status, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	var actor, reason string
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
		actor = record.RequestedBy
		reason = record.Reason
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, actor, status, reason, nil)
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	var actor string
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
		actor = record.RequestedBy
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, actor, StatusSucceeded, "", map[string]any{"artifacts": len(artifacts)})
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	var actor string
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
		actor = record.RequestedBy
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, actor, StatusFailed, "", map[string]any{"error": reason})
	w.logger.Warn("estimate export failed", zap.String("export", id), zap.String("reason", reason))
}

func (w *Worker) recordAudit(ctx context.Context, actor string, status Status, reason string, metadata map[string]any) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Action:     "estimate_export",
		Actor:      actor,
		Status:     status,
		Reason:     reason,
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	})
}

// groupRow is the flattened serialization of one output group.
type groupRow struct {
	Species   string  `json:"species,omitempty"`
	Ownership string  `json:"ownership,omitempty"`
	Component string  `json:"component,omitempty"`
	SizeClass string  `json:"size_class,omitempty"`
	Total     float64 `json:"total"`
}

// estimateDocument is the export view of a computed estimate. The group map
// keys are structs, so groups are flattened into rows for serialization.
type estimateDocument struct {
	core.Estimate
	GroupRows []groupRow `json:"groups,omitempty"`
}

func flattenGroups(est core.Estimate) []groupRow {
	rows := make([]groupRow, 0, len(est.Groups))
	for key, total := range est.Groups {
		rows = append(rows, groupRow{
			Species:   key.Species,
			Ownership: key.Ownership,
			Component: key.Component,
			SizeClass: key.SizeClass,
			Total:     total,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Species != rows[j].Species {
			return rows[i].Species < rows[j].Species
		}
		if rows[i].Ownership != rows[j].Ownership {
			return rows[i].Ownership < rows[j].Ownership
		}
		if rows[i].Component != rows[j].Component {
			return rows[i].Component < rows[j].Component
		}
		return rows[i].SizeClass < rows[j].SizeClass
	})
	return rows
}

func render(format Format, est core.Estimate) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		doc := estimateDocument{Estimate: est, GroupRows: flattenGroups(est)}
		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		payload, err := renderCSV(est)
		if err != nil {
			return nil, "", err
		}
		return payload, "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %s", format)
	}
}

func renderCSV(est core.Estimate) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	header := []string{"row_type", "estimation_unit", "species", "ownership", "component", "size_class", "area_acres", "value"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	totalArea := 0.0
	for _, unit := range est.Units {
		totalArea += unit.AreaAcres
		row := []string{"unit_total", unit.EstimationUnitID, "", "", "", "", formatFloat(unit.AreaAcres), formatFloat(unit.Total)}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	for _, g := range flattenGroups(est) {
		row := []string{"group_total", "", g.Species, g.Ownership, g.Component, g.SizeClass, "", formatFloat(g.Total)}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	summary := []string{"population_total", "", "", "", "", "", formatFloat(totalArea), formatFloat(est.Total)}
	if err := writer.Write(summary); err != nil {
		return nil, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
