package storage

import (
	"context"
	"errors"
	"fmt"

	"tenderscan/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres unique_violation, needed to tell "username taken" apart from an
// outage.
const uniqueViolationCode = "23505"

// PostgresStore handles interactions with the PostgreSQL database.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// SaveSession creates a parse session for the owner and batch-inserts its
// records within a single transaction. Record ownership transfers to storage.
func (s *PostgresStore) SaveSession(ctx context.Context, owner string, records []domain.TenderRecord) (uuid.UUID, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	sessionID := uuid.New()
	_, err = tx.Exec(ctx,
		`INSERT INTO parse_sessions (id, owner_username) VALUES ($1, $2)`,
		sessionID, owner,
	)
	if err != nil {
		return uuid.Nil, err
	}

	if len(records) > 0 {
		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(
				`INSERT INTO parsed_tenders
				   (session_id, title, link, customer, price, contract_number, purchase_objects,
				    contract_date, execution_date, publish_date, update_date, parsed_by)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				sessionID, r.Title, r.Link, r.Customer, r.Price, r.ContractNumber, r.PurchaseObjects,
				r.ContractDate, r.ExecutionDate, r.PublishDate, r.UpdateDate, owner)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return sessionID, nil
}

// LastSessionForOwner loads the owner's most recent session with its records.
func (s *PostgresStore) LastSessionForOwner(ctx context.Context, owner string) (*domain.ParseSession, error) {
	var session domain.ParseSession
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_username, created_at FROM parse_sessions
		 WHERE owner_username = $1 ORDER BY created_at DESC LIMIT 1`,
		owner,
	).Scan(&session.ID, &session.Owner, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	records, err := s.sessionRecords(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	session.Records = records
	return &session, nil
}

// SessionByID loads one session with its records.
func (s *PostgresStore) SessionByID(ctx context.Context, id uuid.UUID) (*domain.ParseSession, error) {
	var session domain.ParseSession
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_username, created_at FROM parse_sessions WHERE id = $1`,
		id,
	).Scan(&session.ID, &session.Owner, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	records, err := s.sessionRecords(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	session.Records = records
	return &session, nil
}

func (s *PostgresStore) sessionRecords(ctx context.Context, sessionID uuid.UUID) ([]domain.TenderRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, title, link, customer, price, contract_number, purchase_objects,
		        contract_date, execution_date, publish_date, update_date, parsed_at, parsed_by
		 FROM parsed_tenders WHERE session_id = $1 ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TenderRecord
	for rows.Next() {
		var r domain.TenderRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.Link, &r.Customer, &r.Price, &r.ContractNumber,
			&r.PurchaseObjects, &r.ContractDate, &r.ExecutionDate, &r.PublishDate, &r.UpdateDate,
			&r.ParsedAt, &r.ParsedBy); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// AssignSessionToViewer points a viewer at a session; one assignment per user.
func (s *PostgresStore) AssignSessionToViewer(ctx context.Context, username string, sessionID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO user_session_views (username, session_id) VALUES ($1, $2)
		 ON CONFLICT (username) DO UPDATE SET session_id = EXCLUDED.session_id, assigned_at = NOW()`,
		username, sessionID)
	return err
}

// SessionForViewer loads the session currently assigned to a viewer.
func (s *PostgresStore) SessionForViewer(ctx context.Context, username string) (*domain.ParseSession, error) {
	var sessionID uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT session_id FROM user_session_views WHERE username = $1`,
		username,
	).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.SessionByID(ctx, sessionID)
}

// TenderByID loads one parsed record.
func (s *PostgresStore) TenderByID(ctx context.Context, id int64) (*domain.TenderRecord, error) {
	var r domain.TenderRecord
	err := s.db.QueryRow(ctx,
		`SELECT id, title, link, customer, price, contract_number, purchase_objects,
		        contract_date, execution_date, publish_date, update_date, parsed_at, parsed_by
		 FROM parsed_tenders WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Title, &r.Link, &r.Customer, &r.Price, &r.ContractNumber,
		&r.PurchaseObjects, &r.ContractDate, &r.ExecutionDate, &r.PublishDate, &r.UpdateDate,
		&r.ParsedAt, &r.ParsedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveAnalysis upserts the analysis result for a tender.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, tenderID int64, result string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO tender_analyses (tender_id, result) VALUES ($1, $2)
		 ON CONFLICT (tender_id) DO UPDATE SET result = EXCLUDED.result, analyzed_at = NOW()`,
		tenderID, result)
	return err
}

// AnalysisForTender loads a stored analysis, if any.
func (s *PostgresStore) AnalysisForTender(ctx context.Context, tenderID int64) (*domain.TenderAnalysis, error) {
	var a domain.TenderAnalysis
	err := s.db.QueryRow(ctx,
		`SELECT id, tender_id, result, analyzed_at FROM tender_analyses WHERE tender_id = $1`,
		tenderID,
	).Scan(&a.ID, &a.TenderID, &a.Result, &a.AnalyzedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateUser inserts a user with the given role.
func (s *PostgresStore) CreateUser(ctx context.Context, username, hashedPassword string, role domain.Role) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (username, hashed_password, role) VALUES ($1, $2, $3)`,
		username, hashedPassword, role)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%w: user %s", domain.ErrAlreadyExists, username)
	}
	return err
}

// UserByUsername loads one user.
func (s *PostgresStore) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx,
		`SELECT id, username, hashed_password, role FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.HashedPassword, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateAdminRequest records a pending request for elevated privileges.
func (s *PostgresStore) CreateAdminRequest(ctx context.Context, username string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO admin_requests (username, status) VALUES ($1, 'pending')`,
		username)
	return err
}

// PendingAdminRequests lists requests awaiting an owner's decision.
func (s *PostgresStore) PendingAdminRequests(ctx context.Context) ([]domain.AdminRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, username, status, created_at FROM admin_requests
		 WHERE status = 'pending' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.AdminRequest
	for rows.Next() {
		var r domain.AdminRequest
		if err := rows.Scan(&r.ID, &r.Username, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// ResolveAdminRequest approves or rejects a request; approval promotes the
// requester to admin in the same transaction.
func (s *PostgresStore) ResolveAdminRequest(ctx context.Context, requestID int64, approve bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	status := "rejected"
	if approve {
		status = "approved"
	}

	var username string
	err = tx.QueryRow(ctx,
		`UPDATE admin_requests SET status = $1 WHERE id = $2 AND status = 'pending' RETURNING username`,
		status, requestID,
	).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	if approve {
		if _, err := tx.Exec(ctx,
			`UPDATE users SET role = $1 WHERE username = $2`,
			domain.RoleAdmin, username); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
