package repository

import (
	"context"
	"database/sql"
	"time"

	"printwatch"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*printwatch.User, error)
}

type EventRepo interface {
	Append(ctx context.Context, e printwatch.PrintEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]printwatch.PrintEvent, error)
}

// JobRepo keeps the catalog of uploaded print jobs. The most recently started
// job feeds the remaining-time estimate.
type JobRepo interface {
	Save(ctx context.Context, j printwatch.PrintJob) error
	MarkStarted(ctx context.Context, filename string, at time.Time) error
	Latest(ctx context.Context) (printwatch.PrintJob, error)
	List(ctx context.Context) ([]printwatch.PrintJob, error)
}

type Repository struct {
	EventRepo EventRepo
	JobRepo   JobRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
		JobRepo:   NewJobSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
