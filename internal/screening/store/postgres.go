package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"benefind/internal/eligibility/facts"
	"benefind/internal/screening/models"
	id "benefind/pkg/domain"
	"benefind/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// EnsureSchema creates the screenings table and its indexes if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure screenings schema: %w", err)
	}
	return nil
}

// PostgresStore persists screenings in PostgreSQL. Intake and results are
// JSONB; surfaced program ids are denormalized into a text[] for reporting
// queries.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed screening store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = `id, owner_kind, owner_id, intake, results, locale, created_at`

func (s *PostgresStore) Save(ctx context.Context, screening *models.Screening) error {
	intake, err := json.Marshal(screening.Intake)
	if err != nil {
		return fmt.Errorf("marshal intake: %w", err)
	}
	results, err := json.Marshal(screening.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	programIDs := make([]string, 0, len(screening.Results.Programs))
	for _, pid := range screening.ProgramIDs() {
		programIDs = append(programIDs, string(pid))
	}

	query := `
		INSERT INTO screenings (id, owner_kind, owner_id, intake, results, program_ids, catalog_version, locale, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(screening.ID),
		string(screening.Owner.Kind),
		screening.Owner.ID,
		intake,
		results,
		pq.Array(programIDs),
		screening.Results.CatalogVersion,
		screening.Locale,
		screening.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save screening: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sid id.ScreeningID) (*models.Screening, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM screenings WHERE id = $1`, uuid.UUID(sid))
	screening, err := scanScreening(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find screening by id: %w", err)
	}
	return screening, nil
}

func (s *PostgresStore) Latest(ctx context.Context, owner models.Owner) (*models.Screening, error) {
	list, err := s.ListByOwner(ctx, owner, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return list[0], nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner models.Owner, limit int) ([]*models.Screening, error) {
	query := `SELECT ` + selectColumns + `
		FROM screenings
		WHERE owner_kind = $1 AND owner_id = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT $3`
	rows, err := s.db.QueryContext(ctx, query, string(owner.Kind), owner.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list screenings: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Screening, 0, limit)
	for rows.Next() {
		screening, err := scanScreening(rows)
		if err != nil {
			return nil, fmt.Errorf("scan screening: %w", err)
		}
		out = append(out, screening)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list screenings: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScreening(row scanner) (*models.Screening, error) {
	var (
		sid       uuid.UUID
		ownerKind string
		ownerID   uuid.UUID
		intake    []byte
		results   []byte
		locale    string
		createdAt time.Time
	)
	if err := row.Scan(&sid, &ownerKind, &ownerID, &intake, &results, &locale, &createdAt); err != nil {
		return nil, err
	}

	screening := &models.Screening{
		ID:        id.ScreeningID(sid),
		Owner:     models.Owner{Kind: models.OwnerKind(ownerKind), ID: ownerID},
		Locale:    locale,
		CreatedAt: createdAt,
	}
	var raw facts.RawIntake
	if err := json.Unmarshal(intake, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal intake: %w", err)
	}
	screening.Intake = raw
	if err := json.Unmarshal(results, &screening.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	return screening, nil
}
