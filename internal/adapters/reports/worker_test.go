package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fiacore/internal/blob"
	"fiacore/internal/core"
	"fiacore/pkg/domain"
)

type stubEstimator struct {
	mu    sync.Mutex
	est   core.Estimate
	err   error
	calls int
}

func (s *stubEstimator) Estimate(_ context.Context, _ core.Request) (core.Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return core.Estimate{}, s.err
	}
	return s.est, nil
}

func sampleEstimate() core.Estimate {
	return core.Estimate{
		EvaluationID: "eval-1",
		Request: core.Request{
			Geography: "OR",
			Family:    domain.FamilyVolume,
		},
		Total:   1234.5,
		PerAcre: 1.2345,
		Units: []core.UnitTotal{
			{EstimationUnitID: "unit-1", AreaAcres: 1000, Total: 1234.5},
		},
		Groups: map[core.GroupKey]float64{
			{Species: "douglas-fir"}:    1000.0,
			{Species: "ponderosa-pine"}: 234.5,
		},
	}
}

func startWorker(t *testing.T, estimator Estimator, blobs blob.Store, audit AuditLogger) *Worker {
	t.Helper()
	worker := NewWorker(estimator, blobs, audit, zap.NewNop())
	worker.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = worker.Stop(ctx)
	})
	return worker
}

func waitForStatus(t *testing.T, worker *Worker, id string, want Status) Record {
	t.Helper()
	var record Record
	require.Eventually(t, func() bool {
		var ok bool
		record, ok = worker.Get(id)
		return ok && record.Status == want
	}, 5*time.Second, 10*time.Millisecond, "export %s never reached %s", id, want)
	return record
}

func TestWorkerExportSucceeds(t *testing.T) {
	blobs := blob.NewMemory()
	audit := &MemoryAuditLog{}
	worker := startWorker(t, &stubEstimator{est: sampleEstimate()}, blobs, audit)

	queued, err := worker.Enqueue(context.Background(), Input{
		Request:     core.Request{Geography: "OR", Family: domain.FamilyVolume},
		RequestedBy: "analyst",
		Reason:      "annual report",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, queued.Status)
	assert.Equal(t, []Format{FormatJSON, FormatCSV}, queued.Formats)

	record := waitForStatus(t, worker, queued.ID, StatusSucceeded)
	require.Len(t, record.Artifacts, 2)
	require.NotNil(t, record.CompletedAt)

	byFormat := map[Format]Artifact{}
	for _, artifact := range record.Artifacts {
		byFormat[artifact.Format] = artifact
		assert.NotEmpty(t, artifact.Key)
		assert.Greater(t, artifact.SizeBytes, int64(0))
	}

	// JSON artifact round-trips and carries the flattened groups.
	_, rc, err := blobs.Get(context.Background(), byFormat[FormatJSON].Key)
	require.NoError(t, err)
	payload, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	var doc struct {
		EvaluationID string `json:"evaluation_id"`
		Total        float64
		Groups       []struct {
			Species string  `json:"species"`
			Total   float64 `json:"total"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.Equal(t, "eval-1", doc.EvaluationID)
	assert.Equal(t, 1234.5, doc.Total)
	require.Len(t, doc.Groups, 2)
	assert.Equal(t, "douglas-fir", doc.Groups[0].Species)

	// CSV artifact carries unit, group, and population rows.
	_, rc, err = blobs.Get(context.Background(), byFormat[FormatCSV].Key)
	require.NoError(t, err)
	payload, err = io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	rows, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5) // header + unit + 2 groups + population
	assert.Equal(t, "row_type", rows[0][0])
	assert.Equal(t, "unit_total", rows[1][0])
	assert.Equal(t, "unit-1", rows[1][1])
	assert.Equal(t, "group_total", rows[2][0])
	assert.Equal(t, "population_total", rows[4][0])
	assert.Equal(t, "1234.5", rows[4][7])

	// Blob metadata ties the artifact back to its estimate.
	head, err := blobs.Head(context.Background(), byFormat[FormatJSON].Key)
	require.NoError(t, err)
	assert.Equal(t, "volume", head.Metadata["family"])
	assert.Equal(t, "eval-1", head.Metadata["evaluation"])

	require.Eventually(t, func() bool {
		return len(audit.Entries()) == 3
	}, 5*time.Second, 10*time.Millisecond, "audit trail incomplete")
	statuses := make([]Status, 0, 3)
	for _, entry := range audit.Entries() {
		statuses = append(statuses, entry.Status)
	}
	assert.Equal(t, []Status{StatusQueued, StatusRunning, StatusSucceeded}, statuses)
}

func TestWorkerExportEstimateFailure(t *testing.T) {
	audit := &MemoryAuditLog{}
	worker := startWorker(t, &stubEstimator{err: fmt.Errorf("no evaluation matches")}, blob.NewMemory(), audit)

	queued, err := worker.Enqueue(context.Background(), Input{
		Request:     core.Request{Geography: "NV", Family: domain.FamilyVolume},
		RequestedBy: "analyst",
	})
	require.NoError(t, err)

	record := waitForStatus(t, worker, queued.ID, StatusFailed)
	assert.Contains(t, record.Error, "estimate failed")
	assert.Empty(t, record.Artifacts)
	require.NotNil(t, record.CompletedAt)

	require.Eventually(t, func() bool {
		entries := audit.Entries()
		return len(entries) > 0 && entries[len(entries)-1].Status == StatusFailed
	}, 5*time.Second, 10*time.Millisecond, "failed audit entry never recorded")
}

func TestWorkerEnqueueValidation(t *testing.T) {
	worker := NewWorker(&stubEstimator{est: sampleEstimate()}, blob.NewMemory(), nil, nil)

	_, err := worker.Enqueue(context.Background(), Input{
		Request: core.Request{Geography: "OR", Family: domain.FamilyVolume},
		Formats: []Format{"xlsx"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")

	queued, err := worker.Enqueue(context.Background(), Input{
		Request: core.Request{Geography: "OR", Family: domain.FamilyVolume},
		Formats: []Format{FormatJSON, FormatJSON},
	})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatJSON}, queued.Formats)
}

func TestWorkerEnqueueQueueFullFailsRecord(t *testing.T) {
	// The worker is never started, so accepted tasks sit in the channel and
	// the enqueue past capacity is rejected.
	worker := NewWorker(&stubEstimator{est: sampleEstimate()}, blob.NewMemory(), nil, nil)
	input := Input{
		Request: core.Request{Geography: "OR", Family: domain.FamilyVolume},
		Formats: []Format{FormatJSON},
	}
	for i := 0; i < cap(worker.queue); i++ {
		_, err := worker.Enqueue(context.Background(), input)
		require.NoError(t, err)
	}
	_, err := worker.Enqueue(context.Background(), input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export queue full")

	// The rejected record must not linger as queued.
	worker.mu.RLock()
	defer worker.mu.RUnlock()
	require.Len(t, worker.jobs, cap(worker.queue)+1)
	var failed *Record
	for _, record := range worker.jobs {
		if record.Status == StatusFailed {
			require.Nil(t, failed, "only the rejected record may be failed")
			failed = record
			continue
		}
		assert.Equal(t, StatusQueued, record.Status)
	}
	require.NotNil(t, failed, "rejected record not marked failed")
	assert.Equal(t, "export queue full", failed.Error)
	assert.NotNil(t, failed.CompletedAt)
}

func TestWorkerEnqueueRequiresEstimator(t *testing.T) {
	worker := NewWorker(nil, blob.NewMemory(), nil, nil)
	_, err := worker.Enqueue(context.Background(), Input{
		Request: core.Request{Geography: "OR", Family: domain.FamilyVolume},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "estimator not configured")
}

func TestWorkerGetUnknown(t *testing.T) {
	worker := NewWorker(&stubEstimator{}, nil, nil, nil)
	if _, ok := worker.Get("missing"); ok {
		t.Fatalf("expected missing record")
	}
}

func TestWorkerStop(t *testing.T) {
	worker := NewWorker(&stubEstimator{est: sampleEstimate()}, blob.NewMemory(), nil, nil)
	worker.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, worker.Stop(ctx))
}
