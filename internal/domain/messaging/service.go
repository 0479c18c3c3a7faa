package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebridge/carebridge/internal/domain/directory"
	"github.com/carebridge/carebridge/internal/domain/report"
	"github.com/carebridge/carebridge/internal/platform/apperr"
	"github.com/carebridge/carebridge/internal/platform/auth"
)

// RelationshipChecker answers whether a doctor is currently linked to a
// patient.
type RelationshipChecker interface {
	IsLinked(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
}

type Service struct {
	repo    Repository
	users   directory.Repository
	reports report.Repository
	links   RelationshipChecker
}

func NewService(repo Repository, users directory.Repository, reports report.Repository, links RelationshipChecker) *Service {
	return &Service{repo: repo, users: users, reports: reports, links: links}
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

// SendChatToPatient sends a doctor's chat message to a linked patient. An
// optional report id scopes the message to that report's thread; a report
// id that does not resolve to one of the patient's reports is dropped and
// the message lands in the general thread.
func (s *Service) SendChatToPatient(ctx context.Context, doctorID, patientID uuid.UUID, text string, reportID *uuid.UUID) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.InvalidInput("text is required")
	}
	if err := s.requireLinked(ctx, doctorID, patientID); err != nil {
		return nil, err
	}
	if reportID != nil {
		rep, err := s.reports.GetByID(ctx, *reportID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			reportID = nil
		case err != nil:
			return nil, apperr.Internal(err, "look up report")
		case rep.PatientID != patientID:
			reportID = nil
		}
	}
	m := &Message{
		Type:       TypeChat,
		PatientID:  patientID,
		FromUserID: doctorID,
		ToUserID:   patientID,
		SenderRole: auth.RoleDoctor,
		ReportID:   reportID,
		Text:       text,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, apperr.Internal(err, "store message")
	}
	return m, nil
}

// SendChatFromPatient sends a patient's chat message to a doctor. The
// message is either report-scoped, in which case the report must belong to
// the caller and be shared and the recipient is the report's owner, or
// addressed directly via toDoctorID, who must be linked to the caller.
func (s *Service) SendChatFromPatient(ctx context.Context, patientID uuid.UUID, text string, reportID, toDoctorID *uuid.UUID) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.InvalidInput("text is required")
	}
	var doctorID uuid.UUID
	switch {
	case reportID != nil:
		rep, err := s.reports.GetByID(ctx, *reportID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("report not found")
		}
		if err != nil {
			return nil, apperr.Internal(err, "look up report")
		}
		if rep.PatientID != patientID {
			return nil, apperr.Forbidden("report does not belong to you")
		}
		if !rep.Shared {
			return nil, apperr.Forbidden("report has not been shared with you")
		}
		doctorID = rep.DoctorID
	case toDoctorID != nil:
		linked, err := s.links.IsLinked(ctx, *toDoctorID, patientID)
		if err != nil {
			return nil, apperr.Internal(err, "check care relationship")
		}
		if !linked {
			return nil, apperr.Forbidden("this doctor is not linked to you")
		}
		doctorID = *toDoctorID
	default:
		return nil, apperr.InvalidInput("report_id or to_doctor_id is required")
	}
	m := &Message{
		Type:       TypeChat,
		PatientID:  patientID,
		FromUserID: patientID,
		ToUserID:   doctorID,
		SenderRole: auth.RolePatient,
		ReportID:   reportID,
		Text:       text,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, apperr.Internal(err, "store message")
	}
	return m, nil
}

// SendAlert raises an alert on a report. Allowed for the owning doctor or
// any doctor linked to the report's patient.
func (s *Service) SendAlert(ctx context.Context, doctorID, reportID uuid.UUID, severity, text string) (*Message, error) {
	rep, err := s.reports.GetByID(ctx, reportID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("report not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "look up report")
	}
	if rep.DoctorID != doctorID {
		if err := s.requireLinked(ctx, doctorID, rep.PatientID); err != nil {
			return nil, err
		}
	}
	if severity == "" {
		severity = SeverityHigh
	}
	if !validSeverities[severity] {
		return nil, apperr.InvalidInput("severity must be low, medium or high")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = DefaultAlertText
	}
	m := &Message{
		Type:       TypeAlert,
		PatientID:  rep.PatientID,
		FromUserID: doctorID,
		ToUserID:   rep.PatientID,
		SenderRole: auth.RoleDoctor,
		ReportID:   &reportID,
		Severity:   &severity,
		Text:       text,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, apperr.Internal(err, "store alert")
	}
	return m, nil
}

// SendDoctorToDoctor sends a peer message scoped to a shared patient. Both
// doctors must currently be linked to that patient; a revoked relationship
// on either side refuses the send even though prior thread history remains
// readable to still-linked doctors.
func (s *Service) SendDoctorToDoctor(ctx context.Context, doctorID, patientID, otherDoctorID uuid.UUID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.InvalidInput("text is required")
	}
	if doctorID == otherDoctorID {
		return nil, apperr.InvalidInput("cannot message yourself")
	}
	if err := s.requireLinked(ctx, doctorID, patientID); err != nil {
		return nil, err
	}
	linked, err := s.links.IsLinked(ctx, otherDoctorID, patientID)
	if err != nil {
		return nil, apperr.Internal(err, "check care relationship")
	}
	if !linked {
		return nil, apperr.Forbidden("the other doctor is not linked to this patient")
	}
	m := &Message{
		Type:       TypeDocDoc,
		PatientID:  patientID,
		FromUserID: doctorID,
		ToUserID:   otherDoctorID,
		SenderRole: auth.RoleDoctor,
		Text:       text,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, apperr.Internal(err, "store message")
	}
	return m, nil
}

// ListMine returns every message involving the caller, enriched with
// directory display fields. A directory entry that fails to resolve is an
// error, never a silently empty name.
func (s *Service) ListMine(ctx context.Context, viewerID uuid.UUID) ([]*MessageView, error) {
	msgs, err := s.repo.ListByUser(ctx, viewerID)
	if err != nil {
		return nil, apperr.Internal(err, "list messages")
	}
	return s.enrich(ctx, viewerID, msgs)
}

// Threads groups the caller's messages into conversations.
func (s *Service) Threads(ctx context.Context, viewerID uuid.UUID, viewerRole string) ([]*Thread, error) {
	views, err := s.ListMine(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return GroupThreads(viewerID, viewerRole, views), nil
}

// UnreadCounts returns the caller's unread totals, overall and per type.
func (s *Service) UnreadCounts(ctx context.Context, viewerID uuid.UUID) (*UnreadCounts, error) {
	counts, err := s.repo.CountUnread(ctx, viewerID)
	if err != nil {
		return nil, apperr.Internal(err, "count unread messages")
	}
	return counts, nil
}

func (s *Service) MarkReportRead(ctx context.Context, viewerID, reportID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkReadReport(ctx, viewerID, reportID)
	if err != nil {
		return 0, apperr.Internal(err, "mark report thread read")
	}
	return n, nil
}

func (s *Service) MarkPatientRead(ctx context.Context, doctorID, patientID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkReadPatientGeneral(ctx, doctorID, patientID)
	if err != nil {
		return 0, apperr.Internal(err, "mark patient thread read")
	}
	return n, nil
}

func (s *Service) MarkDoctorRead(ctx context.Context, patientID, doctorID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkReadDoctorGeneral(ctx, patientID, doctorID)
	if err != nil {
		return 0, apperr.Internal(err, "mark doctor thread read")
	}
	return n, nil
}

func (s *Service) MarkPeerRead(ctx context.Context, doctorID, patientID, otherDoctorID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkReadPeer(ctx, doctorID, patientID, otherDoctorID)
	if err != nil {
		return 0, apperr.Internal(err, "mark peer thread read")
	}
	return n, nil
}

// Timeline returns a patient's recent scheduler and alert activity, newest
// first.
func (s *Service) Timeline(ctx context.Context, patientID uuid.UUID, types []string, limit int) ([]*MessageView, error) {
	if len(types) == 0 {
		types = []string{TypeReminder, TypeAlert, TypeReminderCompleted}
	}
	for _, t := range types {
		switch t {
		case TypeReminder, TypeAlert, TypeReminderCompleted:
		default:
			return nil, apperr.InvalidInput("unsupported timeline type %q", t)
		}
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	msgs, err := s.repo.ListTimeline(ctx, patientID, types, limit)
	if err != nil {
		return nil, apperr.Internal(err, "list timeline")
	}
	return s.enrich(ctx, patientID, msgs)
}

func (s *Service) enrich(ctx context.Context, viewerID uuid.UUID, msgs []*Message) ([]*MessageView, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, m := range msgs {
		add(m.PatientID)
		add(m.FromUserID)
		add(m.ToUserID)
	}
	byID := make(map[uuid.UUID]*directory.User)
	if len(ids) > 0 {
		users, err := s.users.ListByIDs(ctx, ids)
		if err != nil {
			return nil, apperr.Internal(err, "resolve directory entries")
		}
		for _, u := range users {
			byID[u.ID] = u
		}
	}
	views := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		patient, ok := byID[m.PatientID]
		if !ok {
			return nil, apperr.Internal(nil, "directory entry missing for patient %s", m.PatientID)
		}
		v := &MessageView{Message: m, PatientName: patient.Name, PatientEmail: patient.Email}
		counterpartID := m.FromUserID
		if counterpartID == viewerID {
			counterpartID = m.ToUserID
		}
		counterpart, ok := byID[counterpartID]
		if !ok {
			return nil, apperr.Internal(nil, "directory entry missing for user %s", counterpartID)
		}
		if counterpart.Role == auth.RoleDoctor {
			v.DoctorName = counterpart.Name
			if m.Type == TypeDocDoc {
				v.PeerDoctorName = counterpart.Name
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// -- Reminder notification plumbing --

// ReminderScheduled records the "scheduled" notice for a plan as a reminder
// message addressed to the patient.
func (s *Service) ReminderScheduled(ctx context.Context, patientID, doctorID, reminderID uuid.UUID, title string, when time.Time) error {
	m := &Message{
		Type:       TypeReminder,
		PatientID:  patientID,
		FromUserID: doctorID,
		ToUserID:   patientID,
		SenderRole: auth.RoleDoctor,
		ReminderID: &reminderID,
		Text:       title + " scheduled",
		DisplayAt:  when,
	}
	return s.repo.Create(ctx, m)
}

// ReminderCompleted rewrites a plan's scheduled notice into the completed
// form. This is the single sanctioned type rewrite.
func (s *Service) ReminderCompleted(ctx context.Context, reminderID uuid.UUID, title string) error {
	return s.repo.ConvertReminderMessage(ctx, reminderID, TypeReminderCompleted, title+" completed")
}

// RemoveReminderMessages deletes exactly the messages carrying the plan's
// id.
func (s *Service) RemoveReminderMessages(ctx context.Context, reminderID uuid.UUID) error {
	return s.repo.DeleteByReminder(ctx, reminderID)
}

// ScheduledNoticeExists reports whether a plan already has an unconverted
// scheduled notice.
func (s *Service) ScheduledNoticeExists(ctx context.Context, reminderID uuid.UUID) (bool, error) {
	return s.repo.ScheduledNoticeExists(ctx, reminderID)
}
