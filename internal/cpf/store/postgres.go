package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cpfregistry/internal/cpf/models"
	"cpfregistry/internal/platform/postgres"
	id "cpfregistry/pkg/domain"
	"cpfregistry/pkg/platform/sentinel"
)

// PostgresStore persists CPF records in the cpf_records table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed CPF store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert relies on the unique index on cpf; a concurrent duplicate surfaces as
// sentinel.ErrAlreadyUsed.
func (s *PostgresStore) Insert(ctx context.Context, cpf id.CPF) (*models.Record, error) {
	query := `
		INSERT INTO cpf_records (cpf)
		VALUES ($1)
		RETURNING id, cpf, created_at
	`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, cpf.String()))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, fmt.Errorf("insert cpf: %w", sentinel.ErrAlreadyUsed)
		}
		return nil, fmt.Errorf("insert cpf: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) FindByCPF(ctx context.Context, cpf id.CPF) (*models.Record, error) {
	query := `SELECT id, cpf, created_at FROM cpf_records WHERE cpf = $1`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, cpf.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find cpf: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, cpf, created_at FROM cpf_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cpfs: %w", err)
	}
	defer rows.Close()

	records := make([]*models.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cpf: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cpfs: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Delete(ctx context.Context, cpf id.CPF) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cpf_records WHERE cpf = $1`, cpf.String())
	if err != nil {
		return fmt.Errorf("delete cpf: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cpf rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		record models.Record
		raw    string
	)
	if err := row.Scan(&record.ID, &raw, &record.CreatedAt); err != nil {
		return nil, err
	}
	record.CPF = id.CPF(raw)
	record.CreatedAt = record.CreatedAt.UTC()
	return &record, nil
}
