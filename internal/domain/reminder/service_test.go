package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebridge/carebridge/internal/platform/apperr"
)

// -- Mock Repositories --

type mockPlanRepo struct {
	items map[uuid.UUID]*Plan
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{items: make(map[uuid.UUID]*Plan)}
}

func (m *mockPlanRepo) Create(_ context.Context, p *Plan) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.items[p.ID] = p
	return nil
}

func (m *mockPlanRepo) GetByID(_ context.Context, id uuid.UUID) (*Plan, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockPlanRepo) Update(_ context.Context, p *Plan) error {
	stored, ok := m.items[p.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	// last_notified_at and last_completed_at are not part of Update
	p.LastNotifiedAt = stored.LastNotifiedAt
	p.LastCompletedAt = stored.LastCompletedAt
	p.UpdatedAt = time.Now()
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockPlanRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockPlanRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Plan, error) {
	var result []*Plan
	for _, p := range m.items {
		if p.PatientID == patientID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockPlanRepo) ListActiveByPatient(_ context.Context, patientID uuid.UUID) ([]*Plan, error) {
	var result []*Plan
	for _, p := range m.items {
		if p.PatientID == patientID && p.Active {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockPlanRepo) ListDue(_ context.Context, now time.Time) ([]*Plan, error) {
	var result []*Plan
	for _, p := range m.items {
		if p.Active && !p.NextDueAt.After(now) &&
			(p.LastNotifiedAt == nil || !p.LastNotifiedAt.Equal(p.NextDueAt)) {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockPlanRepo) ClaimNotification(_ context.Context, id uuid.UUID, nextDueAt time.Time) (bool, error) {
	p, ok := m.items[id]
	if !ok || !p.Active || !p.NextDueAt.Equal(nextDueAt) {
		return false, nil
	}
	if p.LastNotifiedAt != nil && p.LastNotifiedAt.Equal(p.NextDueAt) {
		return false, nil
	}
	t := p.NextDueAt
	p.LastNotifiedAt = &t
	return true, nil
}

func (m *mockPlanRepo) Deactivate(_ context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	p, ok := m.items[id]
	if !ok || !p.Active {
		return false, nil
	}
	p.Active = false
	p.LastCompletedAt = &completedAt
	return true, nil
}

func (m *mockPlanRepo) FindSuccessor(_ context.Context, predecessorID uuid.UUID) (*Plan, error) {
	for _, p := range m.items {
		if p.PredecessorID != nil && *p.PredecessorID == predecessorID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type mockNotifier struct {
	scheduledCalls int
	hasNotice      map[uuid.UUID]bool
	completedCalls map[uuid.UUID]int
	removed        map[uuid.UUID]bool
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{
		hasNotice:      make(map[uuid.UUID]bool),
		completedCalls: make(map[uuid.UUID]int),
		removed:        make(map[uuid.UUID]bool),
	}
}

func (m *mockNotifier) ReminderScheduled(_ context.Context, _, _, reminderID uuid.UUID, _ string, _ time.Time) error {
	m.scheduledCalls++
	m.hasNotice[reminderID] = true
	return nil
}

func (m *mockNotifier) ReminderCompleted(_ context.Context, reminderID uuid.UUID, _ string) error {
	m.completedCalls[reminderID]++
	m.hasNotice[reminderID] = false
	return nil
}

func (m *mockNotifier) RemoveReminderMessages(_ context.Context, reminderID uuid.UUID) error {
	m.removed[reminderID] = true
	delete(m.hasNotice, reminderID)
	return nil
}

func (m *mockNotifier) ScheduledNoticeExists(_ context.Context, reminderID uuid.UUID) (bool, error) {
	return m.hasNotice[reminderID], nil
}

type mockLinks struct {
	links map[[2]uuid.UUID]bool
}

func newMockLinks() *mockLinks {
	return &mockLinks{links: make(map[[2]uuid.UUID]bool)}
}

func (m *mockLinks) link(doctorID, patientID uuid.UUID) {
	m.links[[2]uuid.UUID{doctorID, patientID}] = true
}

func (m *mockLinks) IsLinked(_ context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	return m.links[[2]uuid.UUID{doctorID, patientID}], nil
}

type fixture struct {
	svc      *Service
	repo     *mockPlanRepo
	links    *mockLinks
	notifier *mockNotifier
	doctorID uuid.UUID
	patient  uuid.UUID
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMockPlanRepo(),
		links:    newMockLinks(),
		notifier: newMockNotifier(),
		doctorID: uuid.New(),
		patient:  uuid.New(),
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.links.link(f.doctorID, f.patient)
	f.svc = NewService(f.repo, f.links, f.notifier, nil)
	f.svc.now = func() time.Time { return f.now }
	return f
}

// -- Create --

func TestCreate(t *testing.T) {
	f := newFixture()

	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{
		Title: "Blood test", Sector: "hematology", FrequencyDays: 30,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if want := f.now.AddDate(0, 0, 30); !p.NextDueAt.Equal(want) {
		t.Errorf("expected next due %v, got %v", want, p.NextDueAt)
	}
	if !p.Active || p.LastNotifiedAt != nil {
		t.Errorf("unexpected plan state: %+v", p)
	}
	if f.notifier.scheduledCalls != 0 {
		t.Error("expected no notice without send_now")
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()

	cases := []CreateInput{
		{Title: "", FrequencyDays: 30},
		{Title: "Blood test", FrequencyDays: 0},
		{Title: "Blood test", FrequencyDays: -5},
		{Title: "Blood test", FrequencyDays: 30, SendNow: "yes"},
	}
	for i, in := range cases {
		if _, err := f.svc.Create(context.Background(), f.doctorID, f.patient, in); apperr.KindOf(err) != apperr.KindInvalidInput {
			t.Errorf("case %d: expected invalid_input, got %v", i, err)
		}
	}
}

func TestCreate_NotLinked(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), uuid.New(), f.patient, CreateInput{Title: "Blood test", FrequencyDays: 30})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestCreate_FirstDueAt(t *testing.T) {
	f := newFixture()
	first := f.now.AddDate(0, 0, 3)

	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{
		Title: "Blood test", FrequencyDays: 30, FirstDueAt: &first,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !p.NextDueAt.Equal(first) {
		t.Errorf("expected next due %v, got %v", first, p.NextDueAt)
	}
}

func TestCreate_SendNow(t *testing.T) {
	f := newFixture()

	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{
		Title: "Blood test", FrequencyDays: 30, SendNow: "1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.notifier.scheduledCalls != 1 {
		t.Errorf("expected 1 scheduled notice, got %d", f.notifier.scheduledCalls)
	}
	if p.LastNotifiedAt == nil || !p.LastNotifiedAt.Equal(p.NextDueAt) {
		t.Errorf("expected last_notified_at stamped to next_due_at, got %v", p.LastNotifiedAt)
	}
}

func TestCreate_SendNowPreemptsSweep(t *testing.T) {
	f := newFixture()
	first := f.now.Add(-time.Hour)

	if _, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{
		Title: "Blood test", FrequencyDays: 30, FirstDueAt: &first, SendNow: true,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	notified, err := f.svc.SweepDueReminders(context.Background(), f.now)
	if err != nil {
		t.Fatalf("SweepDueReminders: %v", err)
	}
	if notified != 0 || f.notifier.scheduledCalls != 1 {
		t.Errorf("expected sweep to skip the already-notified plan, notified=%d calls=%d", notified, f.notifier.scheduledCalls)
	}
}

// -- Update --

func TestUpdate_Patch(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{Title: "Blood test", FrequencyDays: 30})
	if err != nil {
		t.Fatal(err)
	}

	title := "Iron panel"
	freq := 14
	updated, err := f.svc.Update(context.Background(), f.doctorID, p.ID, UpdateInput{Title: &title, FrequencyDays: &freq})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Iron panel" || updated.FrequencyDays != 14 {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Sector != p.Sector || !updated.NextDueAt.Equal(p.NextDueAt) {
		t.Errorf("untouched fields changed: %+v", updated)
	}
}

func TestUpdate_NextDueAtReArmsGuard(t *testing.T) {
	f := newFixture()
	due := f.now.Add(-time.Hour)
	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{
		Title: "Blood test", FrequencyDays: 30, FirstDueAt: &due, SendNow: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	// already notified for the current due date
	if notified, _ := f.svc.SweepDueReminders(context.Background(), f.now); notified != 0 {
		t.Fatalf("expected no notification before the change, got %d", notified)
	}

	newDue := f.now.Add(-time.Minute)
	updated, err := f.svc.Update(context.Background(), f.doctorID, p.ID, UpdateInput{NextDueAt: &newDue})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.LastNotifiedAt == nil || !updated.LastNotifiedAt.Equal(due) {
		t.Errorf("expected last_notified_at untouched, got %v", updated.LastNotifiedAt)
	}

	notified, err := f.svc.SweepDueReminders(context.Background(), f.now)
	if err != nil {
		t.Fatalf("SweepDueReminders: %v", err)
	}
	if notified != 1 {
		t.Errorf("expected the moved due date to notify again, got %d", notified)
	}
}

func TestUpdate_Validation(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{Title: "Blood test", FrequencyDays: 30})
	if err != nil {
		t.Fatal(err)
	}

	empty := " "
	if _, err := f.svc.Update(context.Background(), f.doctorID, p.ID, UpdateInput{Title: &empty}); apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Errorf("expected invalid_input for empty title, got %v", err)
	}
	zero := 0
	if _, err := f.svc.Update(context.Background(), f.doctorID, p.ID, UpdateInput{FrequencyDays: &zero}); apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Errorf("expected invalid_input for zero frequency, got %v", err)
	}
}

func TestUpdate_UnknownPlan(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Update(context.Background(), f.doctorID, uuid.New(), UpdateInput{})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not_found, got %v", err)
	}
}

// -- Complete --

func TestComplete(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{
		Title: "Blood test", Sector: "hematology", FrequencyDays: 30, Notes: "fasting", SendNow: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	successor, err := f.svc.Complete(context.Background(), f.doctorID, p.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	old, _ := f.repo.GetByID(context.Background(), p.ID)
	if old.Active || old.LastCompletedAt == nil {
		t.Errorf("expected old plan deactivated: %+v", old)
	}
	if successor.PredecessorID == nil || *successor.PredecessorID != p.ID {
		t.Errorf("expected successor linked to predecessor, got %+v", successor)
	}
	if successor.Title != p.Title || successor.Sector != p.Sector ||
		successor.FrequencyDays != p.FrequencyDays || successor.Notes != p.Notes {
		t.Errorf("successor did not inherit plan fields: %+v", successor)
	}
	if want := f.now.AddDate(0, 0, 30); !successor.NextDueAt.Equal(want) {
		t.Errorf("expected successor due %v, got %v", want, successor.NextDueAt)
	}
	if successor.LastNotifiedAt != nil {
		t.Error("expected successor without a stamped notification")
	}
	if f.notifier.completedCalls[p.ID] != 1 {
		t.Errorf("expected 1 conversion of the old notice, got %d", f.notifier.completedCalls[p.ID])
	}
	if !f.notifier.hasNotice[successor.ID] {
		t.Error("expected scheduled notice for the successor")
	}
}

func TestComplete_RetryForksExactlyOnce(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{Title: "Blood test", FrequencyDays: 30})
	if err != nil {
		t.Fatal(err)
	}

	first, err := f.svc.Complete(context.Background(), f.doctorID, p.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	second, err := f.svc.Complete(context.Background(), f.doctorID, p.ID)
	if err != nil {
		t.Fatalf("Complete retry: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected retry to return the existing successor, got %s and %s", first.ID, second.ID)
	}
	if len(f.repo.items) != 2 {
		t.Errorf("expected exactly 2 plans after retry, got %d", len(f.repo.items))
	}
	if f.notifier.scheduledCalls != 1 {
		t.Errorf("expected 1 successor notice after retry, got %d", f.notifier.scheduledCalls)
	}
}

func TestComplete_SuccessorStillSweepable(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{Title: "Blood test", FrequencyDays: 30})
	if err != nil {
		t.Fatal(err)
	}
	successor, err := f.svc.Complete(context.Background(), f.doctorID, p.ID)
	if err != nil {
		t.Fatal(err)
	}

	// 31 days later the successor is due and must notify despite the
	// notice emitted at completion time
	notified, err := f.svc.SweepDueReminders(context.Background(), f.now.AddDate(0, 0, 31))
	if err != nil {
		t.Fatalf("SweepDueReminders: %v", err)
	}
	if notified != 1 {
		t.Errorf("expected successor to notify when due, got %d", notified)
	}
	stored, _ := f.repo.GetByID(context.Background(), successor.ID)
	if stored.LastNotifiedAt == nil || !stored.LastNotifiedAt.Equal(stored.NextDueAt) {
		t.Errorf("expected due date stamped after sweep, got %v", stored.LastNotifiedAt)
	}
}

func TestComplete_NotLinked(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{Title: "Blood test", FrequencyDays: 30})
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Complete(context.Background(), uuid.New(), p.ID)
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestComplete_CompoundStepsShareOneTransaction(t *testing.T) {
	f := newFixture()
	var runs int
	f.svc.tx = func(ctx context.Context, fn func(context.Context) error) error {
		runs++
		return fn(ctx)
	}

	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{Title: "Blood test", FrequencyDays: 30})
	if err != nil {
		t.Fatal(err)
	}
	if runs != 0 {
		t.Fatalf("expected no transaction before Complete, got %d", runs)
	}

	successor, err := f.svc.Complete(context.Background(), f.doctorID, p.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if runs != 1 {
		t.Errorf("expected the compound sequence in one transaction, got %d", runs)
	}

	old, _ := f.repo.GetByID(context.Background(), p.ID)
	if old.Active {
		t.Error("expected old plan deactivated inside the transaction")
	}
	if !f.notifier.hasNotice[successor.ID] {
		t.Error("expected successor notice emitted inside the transaction")
	}
}

func TestComplete_TransactionFailureSurfaces(t *testing.T) {
	f := newFixture()
	f.svc.tx = func(ctx context.Context, fn func(context.Context) error) error {
		return errors.New("serialization failure")
	}

	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{Title: "Blood test", FrequencyDays: 30})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Complete(context.Background(), f.doctorID, p.ID); err == nil {
		t.Fatal("expected transaction error to surface")
	}
	old, _ := f.repo.GetByID(context.Background(), p.ID)
	if !old.Active {
		t.Error("expected plan untouched when the transaction never ran")
	}
}

// -- Delete --

func TestDelete(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{Title: "Blood test", FrequencyDays: 30, SendNow: true})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Delete(context.Background(), f.doctorID, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.repo.items) != 0 {
		t.Error("expected plan removed")
	}
	if !f.notifier.removed[p.ID] {
		t.Error("expected reminder messages removed")
	}
}

// -- Sweep --

func TestSweepDueReminders_Idempotent(t *testing.T) {
	f := newFixture()
	due := f.now.Add(-time.Hour)
	if _, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{
		Title: "Blood test", FrequencyDays: 30, FirstDueAt: &due,
	}); err != nil {
		t.Fatal(err)
	}

	notified, err := f.svc.SweepDueReminders(context.Background(), f.now)
	if err != nil {
		t.Fatalf("SweepDueReminders: %v", err)
	}
	if notified != 1 || f.notifier.scheduledCalls != 1 {
		t.Fatalf("expected 1 notification, got notified=%d calls=%d", notified, f.notifier.scheduledCalls)
	}

	// same now, same plans: nothing more to do
	notified, err = f.svc.SweepDueReminders(context.Background(), f.now)
	if err != nil {
		t.Fatalf("SweepDueReminders rerun: %v", err)
	}
	if notified != 0 || f.notifier.scheduledCalls != 1 {
		t.Errorf("expected rerun to be a no-op, got notified=%d calls=%d", notified, f.notifier.scheduledCalls)
	}
}

func TestSweepDueReminders_SkipsInactiveAndFuture(t *testing.T) {
	f := newFixture()
	due := f.now.Add(-time.Hour)
	inactive, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{
		Title: "Old plan", FrequencyDays: 30, FirstDueAt: &due,
	})
	if err != nil {
		t.Fatal(err)
	}
	off := false
	if _, err := f.svc.Update(context.Background(), f.doctorID, inactive.ID, UpdateInput{Active: &off}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Create(context.Background(), f.doctorID, f.patient, CreateInput{
		Title: "Future plan", FrequencyDays: 30,
	}); err != nil {
		t.Fatal(err)
	}

	notified, err := f.svc.SweepDueReminders(context.Background(), f.now)
	if err != nil {
		t.Fatalf("SweepDueReminders: %v", err)
	}
	if notified != 0 || f.notifier.scheduledCalls != 0 {
		t.Errorf("expected no notifications, got notified=%d calls=%d", notified, f.notifier.scheduledCalls)
	}
}
