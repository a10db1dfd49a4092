package repository

import (
	"context"
	"time"

	"account-platform/backend/internal/session/domain"
)

// Repository defines persistence for sessions.
//
// Lookups return (nil, nil) for missing rows; errors are database failures
// only. Delete is idempotent.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) (*domain.Session, error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Session, error)
	UpdateExpiresAt(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}
