package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/verification/app"
)

// otpPostgres is the subset of *pgxpool.Pool the OTP store calls.
type otpPostgres interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ otpPostgres  = (*pgxpool.Pool)(nil)
	_ app.OTPStore = (*PostgresOTPStore)(nil)
)

const pgUniqueViolation = "23505"

const (
	insertOTPSQL = `INSERT INTO otp_verifications
		(phone_number, otp, session_id, method, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	findUnverifiedOTPSQL = `SELECT phone_number, otp, session_id, method, created_at, expires_at
		FROM otp_verifications
		WHERE session_id = $1 AND verified = FALSE`

	// The verified = FALSE predicate makes concurrent verifications race on
	// the row lock; only one sees a row affected.
	markOTPVerifiedSQL = `UPDATE otp_verifications
		SET verified = TRUE, verified_at = $2
		WHERE session_id = $1 AND verified = FALSE`
)

// PostgresOTPStore persists OTP records in the otp_verifications table.
type PostgresOTPStore struct {
	db otpPostgres
}

// NewPostgresOTPStore creates a PostgresOTPStore.
func NewPostgresOTPStore(db otpPostgres) *PostgresOTPStore {
	return &PostgresOTPStore{db: db}
}

// Insert writes a new unverified record. A duplicate session id returns
// domain.ErrSessionAlreadyExists.
func (s *PostgresOTPStore) Insert(ctx context.Context, r domain.OTPRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.otp.insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
	)

	_, err := s.db.Exec(ctx, insertOTPSQL,
		r.PhoneNumber, r.Code, r.SessionID, string(r.DeliveryMethod), r.CreatedAt, r.ExpiresAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("otp store: insert: %w", domain.ErrSessionAlreadyExists)
		}
		return fmt.Errorf("otp store: insert: %w", err)
	}
	return nil
}

// FindUnverified returns the unverified record for sessionID whether or not
// it has expired. Returns domain.ErrNotFound when there is none.
func (s *PostgresOTPStore) FindUnverified(ctx context.Context, sessionID string) (*domain.OTPRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.otp.find_unverified")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
	)

	var (
		r      domain.OTPRecord
		method string
	)
	err := s.db.QueryRow(ctx, findUnverifiedOTPSQL, sessionID).
		Scan(&r.PhoneNumber, &r.Code, &r.SessionID, &method, &r.CreatedAt, &r.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("otp store: find unverified: %w", domain.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("otp store: find unverified: %w", err)
	}

	r.DeliveryMethod = domain.DeliveryMethod(method)
	r.CreatedAt = r.CreatedAt.UTC()
	r.ExpiresAt = r.ExpiresAt.UTC()
	return &r, nil
}

// MarkVerified flips the record to verified only if it is still unverified.
// Returns domain.ErrSessionAlreadyConsumed when no row matched.
func (s *PostgresOTPStore) MarkVerified(ctx context.Context, sessionID string, at time.Time) error {
	ctx, span := tracer.Start(ctx, "postgres.otp.mark_verified")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
	)

	tag, err := s.db.Exec(ctx, markOTPVerifiedSQL, sessionID, at)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("otp store: mark verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("otp store: mark verified: %w", domain.ErrSessionAlreadyConsumed)
	}
	return nil
}
