package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEngineRunPass(t *testing.T) {
	f := newFixture()
	due := f.now.Add(-time.Hour)
	if _, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{
		Title: "Blood test", FrequencyDays: 30, FirstDueAt: &due,
	}); err != nil {
		t.Fatal(err)
	}
	f.svc.now = time.Now

	e := NewEngine(f.svc, zerolog.Nop(), 8, time.Second)
	e.runPass(context.Background())

	if f.notifier.scheduledCalls != 1 {
		t.Errorf("expected 1 notification from the pass, got %d", f.notifier.scheduledCalls)
	}
}

func TestEngineRunPass_CancelledContext(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.svc, zerolog.Nop(), 8, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.runPass(ctx)

	if f.notifier.scheduledCalls != 0 {
		t.Errorf("expected no work after cancellation, got %d calls", f.notifier.scheduledCalls)
	}
}
