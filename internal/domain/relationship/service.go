package relationship

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebridge/carebridge/internal/domain/directory"
	"github.com/carebridge/carebridge/internal/platform/apperr"
	"github.com/carebridge/carebridge/internal/platform/auth"
)

type Service struct {
	repo  Repository
	users directory.Repository
}

func NewService(repo Repository, users directory.Repository) *Service {
	return &Service{repo: repo, users: users}
}

// resolvePatient looks up a directory user by email and ensures the account
// holds the patient role.
func (s *Service) resolvePatient(ctx context.Context, email string) (*directory.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.InvalidInput("email is required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no patient with email %s", email)
		}
		return nil, apperr.Internal(err, "look up patient by email")
	}
	if u.Role != auth.RolePatient {
		return nil, apperr.InvalidInput("user %s is not a patient", email)
	}
	return u, nil
}

// AssignPatient links a patient to the calling doctor. Assigning an already
// linked patient succeeds without creating a duplicate.
func (s *Service) AssignPatient(ctx context.Context, doctorID uuid.UUID, email string) (*directory.User, error) {
	u, err := s.resolvePatient(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Add(ctx, doctorID, u.ID); err != nil {
		return nil, apperr.Internal(err, "assign patient")
	}
	return u, nil
}

// RemovePatient unlinks a patient from the calling doctor. Removing a patient
// who was never linked succeeds.
func (s *Service) RemovePatient(ctx context.Context, doctorID uuid.UUID, email string) (*directory.User, error) {
	u, err := s.resolvePatient(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Remove(ctx, doctorID, u.ID); err != nil {
		return nil, apperr.Internal(err, "remove patient")
	}
	return u, nil
}

// ListPatients returns the directory entries of every patient linked to the
// doctor.
func (s *Service) ListPatients(ctx context.Context, doctorID uuid.UUID) ([]*directory.User, error) {
	ids, err := s.repo.ListPatientIDs(ctx, doctorID)
	if err != nil {
		return nil, apperr.Internal(err, "list linked patients")
	}
	if len(ids) == 0 {
		return []*directory.User{}, nil
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err, "resolve linked patients")
	}
	return users, nil
}

// SearchPatients lists every patient account in the directory, for the
// assign flow.
func (s *Service) SearchPatients(ctx context.Context, limit, offset int) ([]*directory.User, int, error) {
	users, total, err := s.users.ListByRole(ctx, auth.RolePatient, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err, "search patients")
	}
	return users, total, nil
}

// ListColleagues returns the other doctors linked to a patient. The caller
// must be linked to that patient themselves.
func (s *Service) ListColleagues(ctx context.Context, doctorID, patientID uuid.UUID) ([]*directory.User, error) {
	linked, err := s.repo.Exists(ctx, doctorID, patientID)
	if err != nil {
		return nil, apperr.Internal(err, "check care relationship")
	}
	if !linked {
		return nil, apperr.Forbidden("you are not linked to this patient")
	}
	ids, err := s.repo.ListDoctorIDs(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal(err, "list patient doctors")
	}
	others := ids[:0]
	for _, id := range ids {
		if id != doctorID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return []*directory.User{}, nil
	}
	users, err := s.users.ListByIDs(ctx, others)
	if err != nil {
		return nil, apperr.Internal(err, "resolve colleagues")
	}
	return users, nil
}

// IsLinked reports whether a doctor currently has a care relationship with
// the patient. Other domains consult this for access decisions.
func (s *Service) IsLinked(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, doctorID, patientID)
}
