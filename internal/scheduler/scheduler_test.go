package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/contador-app/contador/internal/config"
	"github.com/contador-app/contador/internal/units"
)

type fakeLister struct {
	units []units.Unit
	err   error
}

func (f *fakeLister) ListAutoScan(ctx context.Context) ([]units.Unit, error) {
	return f.units, f.err
}

type fakeStarter struct {
	started []uuid.UUID
	err     error
}

func (f *fakeStarter) Start(ctx context.Context, unitID uuid.UUID) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.started = append(f.started, unitID)
	return uuid.New(), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTriggerStartsScanForEveryAutoScanUnit(t *testing.T) {
	u1 := units.Unit{ID: uuid.New(), AutoScanEnabled: true}
	u2 := units.Unit{ID: uuid.New(), AutoScanEnabled: true}

	lister := &fakeLister{units: []units.Unit{u1, u2}}
	starter := &fakeStarter{}

	s := New(&config.SchedulerConfig{Enabled: true, Schedule: "0 * * * *"}, lister, starter, testLogger())
	s.trigger(context.Background())

	if len(starter.started) != 2 {
		t.Fatalf("scans started: got %d, want 2", len(starter.started))
	}
	if starter.started[0] != u1.ID || starter.started[1] != u2.ID {
		t.Errorf("started units: got %v", starter.started)
	}
}

func TestTriggerToleratesListingFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	starter := &fakeStarter{}

	s := New(&config.SchedulerConfig{Enabled: true, Schedule: "0 * * * *"}, lister, starter, testLogger())
	s.trigger(context.Background())

	if len(starter.started) != 0 {
		t.Errorf("scans started: got %d, want 0", len(starter.started))
	}
}

func TestTriggerContinuesPastStartFailures(t *testing.T) {
	u1 := units.Unit{ID: uuid.New()}
	u2 := units.Unit{ID: uuid.New()}

	lister := &fakeLister{units: []units.Unit{u1, u2}}
	starter := &fakeStarter{err: errors.New("store unavailable")}

	s := New(&config.SchedulerConfig{Enabled: true, Schedule: "0 * * * *"}, lister, starter, testLogger())
	s.trigger(context.Background())

	if len(starter.started) != 0 {
		t.Errorf("scans started: got %d, want 0", len(starter.started))
	}
}
