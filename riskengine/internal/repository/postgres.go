package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentinelvnc/sentinel/common/database"
	"github.com/sentinelvnc/sentinel/riskengine/internal/models"
)

// PostgresRepository archives incidents in PostgreSQL. Events are stored as
// JSON text, not JSONB, so detail keys keep the order the detector sent.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) CreateIncident(ctx context.Context, incident *models.Incident) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	events, err := json.Marshal(incident.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	refs, err := json.Marshal(nonNil(incident.ArtifactRefs))
	if err != nil {
		return fmt.Errorf("marshal artifact refs: %w", err)
	}
	createdAt := incident.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO incidents (id, session_id, risk_score, risk_level, recommended_action, events, artifact_refs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		incident.IncidentID, incident.SessionID, incident.RiskScore, string(incident.RiskLevel),
		string(incident.RecommendedAction), events, refs, createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIncidentExists
		}
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetIncident(ctx context.Context, id string) (*models.Incident, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		SELECT id, session_id, risk_score, risk_level, recommended_action, events, artifact_refs, created_at
		FROM incidents WHERE id = $1`, id)

	incident, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIncidentNotFound
	}
	return incident, err
}

func (r *PostgresRepository) ListIncidents(ctx context.Context) ([]*models.Incident, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, risk_score, risk_level, recommended_action, events, artifact_refs, created_at
		FROM incidents ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, incident)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) RecordAcknowledgement(ctx context.Context, ack *models.Acknowledgement) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO incident_acknowledgements (incident_id, acknowledged_by, note, acknowledged_at)
		SELECT id, $2, $3, $4 FROM incidents WHERE id = $1`,
		ack.IncidentID, ack.AcknowledgedBy, ack.Note, ack.At)
	if err != nil {
		return fmt.Errorf("insert acknowledgement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIncidentNotFound
	}
	return nil
}

func (r *PostgresRepository) ListAcknowledgements(ctx context.Context, incidentID string) ([]*models.Acknowledgement, error) {
	if _, err := r.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT incident_id, acknowledged_by, note, acknowledged_at
		FROM incident_acknowledgements WHERE incident_id = $1 ORDER BY id`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list acknowledgements: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Acknowledgement, 0)
	for rows.Next() {
		var a models.Acknowledgement
		if err := rows.Scan(&a.IncidentID, &a.AcknowledgedBy, &a.Note, &a.At); err != nil {
			return nil, fmt.Errorf("scan acknowledgement: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	var (
		inc          models.Incident
		level        string
		action       string
		events, refs []byte
	)
	if err := row.Scan(&inc.IncidentID, &inc.SessionID, &inc.RiskScore, &level, &action, &events, &refs, &inc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan incident: %w", err)
	}
	inc.RiskLevel = models.RiskLevel(level)
	inc.RecommendedAction = models.Action(action)

	if err := json.Unmarshal(events, &inc.Events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if err := json.Unmarshal(refs, &inc.ArtifactRefs); err != nil {
		return nil, fmt.Errorf("decode artifact refs: %w", err)
	}
	return &inc, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
