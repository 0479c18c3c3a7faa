package reminder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebridge/carebridge/internal/platform/apperr"
	"github.com/carebridge/carebridge/pkg/parse"
)

// RelationshipChecker answers whether a doctor is currently linked to a
// patient.
type RelationshipChecker interface {
	IsLinked(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
}

// Notifier records reminder activity in the patient's message history.
type Notifier interface {
	ReminderScheduled(ctx context.Context, patientID, doctorID, reminderID uuid.UUID, title string, when time.Time) error
	ReminderCompleted(ctx context.Context, reminderID uuid.UUID, title string) error
	RemoveReminderMessages(ctx context.Context, reminderID uuid.UUID) error
	ScheduledNoticeExists(ctx context.Context, reminderID uuid.UUID) (bool, error)
}

// TxRunner executes fn with a database transaction in its context, so the
// repositories underneath share one commit point. A nil runner executes fn
// directly.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

type Service struct {
	repo     Repository
	links    RelationshipChecker
	notifier Notifier
	tx       TxRunner
	now      func() time.Time
}

func NewService(repo Repository, links RelationshipChecker, notifier Notifier, tx TxRunner) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }
	}
	return &Service{repo: repo, links: links, notifier: notifier, tx: tx, now: time.Now}
}

type CreateInput struct {
	Title         string      `json:"title"`
	Sector        string      `json:"sector"`
	Notes         string      `json:"notes"`
	FrequencyDays int         `json:"frequency_days"`
	FirstDueAt    *time.Time  `json:"first_due_at"`
	SendNow       interface{} `json:"send_now"`
}

type UpdateInput struct {
	Title         *string    `json:"title"`
	Sector        *string    `json:"sector"`
	Notes         *string    `json:"notes"`
	FrequencyDays *int       `json:"frequency_days"`
	NextDueAt     *time.Time `json:"next_due_at"`
	Active        *bool      `json:"active"`
}

func (s *Service) requireLinked(ctx context.Context, doctorID, patientID uuid.UUID) error {
	linked, err := s.links.IsLinked(ctx, doctorID, patientID)
	if err != nil {
		return apperr.Internal(err, "check care relationship")
	}
	if !linked {
		return apperr.Forbidden("you are not linked to this patient")
	}
	return nil
}

func (s *Service) getOwned(ctx context.Context, doctorID, planID uuid.UUID) (*Plan, error) {
	p, err := s.repo.GetByID(ctx, planID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("reminder not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "look up reminder")
	}
	if err := s.requireLinked(ctx, doctorID, p.PatientID); err != nil {
		return nil, err
	}
	return p, nil
}

// Create sets up a plan. With send_now the scheduled notice is emitted
// immediately and the due date stamped as notified, so the next sweep skips
// it.
func (s *Service) Create(ctx context.Context, doctorID, patientID uuid.UUID, in CreateInput) (*Plan, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperr.InvalidInput("title is required")
	}
	if in.FrequencyDays <= 0 {
		return nil, apperr.InvalidInput("frequency_days must be greater than zero")
	}
	sendNow, err := parse.FlexibleBool(in.SendNow)
	if err != nil {
		return nil, apperr.InvalidInput("send_now: %v", err)
	}
	if err := s.requireLinked(ctx, doctorID, patientID); err != nil {
		return nil, err
	}

	now := s.now()
	nextDueAt := now.AddDate(0, 0, in.FrequencyDays)
	if in.FirstDueAt != nil {
		nextDueAt = *in.FirstDueAt
	}
	p := &Plan{
		PatientID:     patientID,
		DoctorID:      doctorID,
		Title:         in.Title,
		Sector:        in.Sector,
		FrequencyDays: in.FrequencyDays,
		NextDueAt:     nextDueAt,
		Active:        true,
		Notes:         in.Notes,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Internal(err, "store reminder")
	}
	if sendNow {
		claimed, err := s.repo.ClaimNotification(ctx, p.ID, p.NextDueAt)
		if err != nil {
			return nil, apperr.Internal(err, "claim immediate notification")
		}
		if claimed {
			if err := s.notifier.ReminderScheduled(ctx, patientID, doctorID, p.ID, p.Title, p.NextDueAt); err != nil {
				return nil, apperr.Internal(err, "emit scheduled notice")
			}
			p.LastNotifiedAt = &p.NextDueAt
		}
	}
	return p, nil
}

// ListForPatient returns every plan for a linked patient, due soonest
// first.
func (s *Service) ListForPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*Plan, error) {
	if err := s.requireLinked(ctx, doctorID, patientID); err != nil {
		return nil, err
	}
	plans, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal(err, "list reminders")
	}
	if plans == nil {
		plans = []*Plan{}
	}
	return plans, nil
}

// ListMine returns the calling patient's active plans.
func (s *Service) ListMine(ctx context.Context, patientID uuid.UUID) ([]*Plan, error) {
	plans, err := s.repo.ListActiveByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal(err, "list reminders")
	}
	if plans == nil {
		plans = []*Plan{}
	}
	return plans, nil
}

// Update patches a plan. last_notified_at is never touched; moving
// next_due_at away from the stamped value re-arms the due guard on its
// own.
func (s *Service) Update(ctx context.Context, doctorID, planID uuid.UUID, in UpdateInput) (*Plan, error) {
	p, err := s.getOwned(ctx, doctorID, planID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, apperr.InvalidInput("title cannot be empty")
		}
		p.Title = t
	}
	if in.Sector != nil {
		p.Sector = *in.Sector
	}
	if in.Notes != nil {
		p.Notes = *in.Notes
	}
	if in.FrequencyDays != nil {
		if *in.FrequencyDays <= 0 {
			return nil, apperr.InvalidInput("frequency_days must be greater than zero")
		}
		p.FrequencyDays = *in.FrequencyDays
	}
	if in.NextDueAt != nil {
		p.NextDueAt = *in.NextDueAt
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Internal(err, "update reminder")
	}
	return p, nil
}

// Complete closes out the current cycle and forks the next one. The
// sequence is not atomic; each step checks whether its effect already
// exists, so a retry after a partial failure finishes the remaining steps
// without duplicating earlier ones.
func (s *Service) Complete(ctx context.Context, doctorID, planID uuid.UUID) (*Plan, error) {
	p, err := s.getOwned(ctx, doctorID, planID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var successor *Plan
	err = s.tx(ctx, func(ctx context.Context) error {
		if p.Active {
			if _, err := s.repo.Deactivate(ctx, planID, now); err != nil {
				return apperr.Internal(err, "deactivate reminder")
			}
		}

		var err error
		successor, err = s.repo.FindSuccessor(ctx, planID)
		if errors.Is(err, pgx.ErrNoRows) {
			successor = &Plan{
				PatientID:     p.PatientID,
				DoctorID:      p.DoctorID,
				PredecessorID: &p.ID,
				Title:         p.Title,
				Sector:        p.Sector,
				FrequencyDays: p.FrequencyDays,
				NextDueAt:     now.AddDate(0, 0, p.FrequencyDays),
				Active:        true,
				Notes:         p.Notes,
			}
			if err := s.repo.Create(ctx, successor); err != nil {
				return apperr.Internal(err, "fork successor reminder")
			}
		} else if err != nil {
			return apperr.Internal(err, "look up successor reminder")
		}

		if err := s.notifier.ReminderCompleted(ctx, planID, p.Title); err != nil {
			return apperr.Internal(err, "convert scheduled notice")
		}

		exists, err := s.notifier.ScheduledNoticeExists(ctx, successor.ID)
		if err != nil {
			return apperr.Internal(err, "check successor notice")
		}
		if !exists {
			if err := s.notifier.ReminderScheduled(ctx, successor.PatientID, successor.DoctorID, successor.ID, successor.Title, successor.NextDueAt); err != nil {
				return apperr.Internal(err, "emit successor notice")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return successor, nil
}

// Delete removes a plan together with exactly the messages that carry its
// id.
func (s *Service) Delete(ctx context.Context, doctorID, planID uuid.UUID) error {
	if _, err := s.getOwned(ctx, doctorID, planID); err != nil {
		return err
	}
	if err := s.notifier.RemoveReminderMessages(ctx, planID); err != nil {
		return apperr.Internal(err, "remove reminder messages")
	}
	if err := s.repo.Delete(ctx, planID); err != nil {
		return apperr.Internal(err, "delete reminder")
	}
	return nil
}

// SweepDueReminders notifies every due plan at most once per due date. The
// claim happens before the message insert; a claim that fails to emit its
// message leaves the due date stamped, which is the accepted failure mode.
// Per-plan failures do not stop the pass.
func (s *Service) SweepDueReminders(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		return 0, apperr.Internal(err, "list due reminders")
	}
	var notified int
	var errs []error
	for _, p := range due {
		claimed, err := s.repo.ClaimNotification(ctx, p.ID, p.NextDueAt)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !claimed {
			continue
		}
		if err := s.notifier.ReminderScheduled(ctx, p.PatientID, p.DoctorID, p.ID, p.Title, p.NextDueAt); err != nil {
			errs = append(errs, err)
			continue
		}
		notified++
	}
	return notified, errors.Join(errs...)
}
