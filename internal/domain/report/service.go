package report

import (
	"context"

	"github.com/google/uuid"

	"github.com/carebridge/carebridge/internal/platform/apperr"
)

// RelationshipChecker answers whether a doctor is currently linked to a
// patient.
type RelationshipChecker interface {
	IsLinked(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
}

type Service struct {
	repo  Repository
	links RelationshipChecker
}

func NewService(repo Repository, links RelationshipChecker) *Service {
	return &Service{repo: repo, links: links}
}

// ListForPatient returns a linked patient's reports, newest first. The
// caller must have an active care link to the patient.
func (s *Service) ListForPatient(ctx context.Context, doctorID, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	linked, err := s.links.IsLinked(ctx, doctorID, patientID)
	if err != nil {
		return nil, 0, apperr.Internal(err, "check care link")
	}
	if !linked {
		return nil, 0, apperr.Forbidden("you are not linked to this patient")
	}
	reports, total, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err, "list reports")
	}
	return reports, total, nil
}

// ListMine returns the calling patient's own reports, newest first.
func (s *Service) ListMine(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	reports, total, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err, "list reports")
	}
	return reports, total, nil
}
