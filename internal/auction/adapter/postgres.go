package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zonixt/eauction/internal/auction/app"
	"github.com/zonixt/eauction/internal/domain"
)

// auctionDB is the subset of *pgxpool.Pool the repository calls.
type auctionDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ auctionDB      = (*pgxpool.Pool)(nil)
	_ app.Repository = (*PostgresRepository)(nil)
)

// NUMERIC columns are read as text and parsed with decimal to keep scale.
const auctionColumns = `id, title, description, auction_date, start_time, end_time, duration,
		currency, current_price::text, decremental_value::text, pre_bid_allowed, open_to_all,
		status, created_by, winner_id, winner_notified, created_at, updated_at`

const (
	getAuctionSQL = `SELECT ` + auctionColumns + `
		FROM auctions
		WHERE id = $1`

	listAuctionsByCreatorSQL = `SELECT ` + auctionColumns + `
		FROM auctions
		WHERE created_by = $1
		ORDER BY auction_date DESC, start_time DESC`

	highestBidsSQL = `SELECT u.company_name, MAX(b.amount)::text
		FROM bids b
		JOIN users u ON b.user_id = u.id
		WHERE b.auction_id = $1
		GROUP BY u.company_name
		ORDER BY MAX(b.amount) DESC`

	bidderSummariesSQL = `SELECT u.id, u.company_name, MIN(b.amount)::text, MAX(b.amount)::text, COUNT(b.id)
		FROM bids b
		JOIN users u ON b.user_id = u.id
		WHERE b.auction_id = $1
		GROUP BY u.id, u.company_name
		ORDER BY MAX(b.amount) ASC`

	contactSQL = `SELECT company_name, person_name, phone, email
		FROM users
		WHERE id = $1`

	participantsSQL = `SELECT id, user_id, phone_number, status, invited_at, joined_at, person_name, company_name
		FROM auction_participants
		WHERE auction_id = $1
		ORDER BY id`

	documentsSQL = `SELECT id, file_name, file_url, file_type, uploaded_at
		FROM auction_documents
		WHERE auction_id = $1
		ORDER BY id`
)

// PostgresRepository reads auctions, bids, users, participants and documents.
type PostgresRepository struct {
	db auctionDB
}

// NewPostgresRepository creates a PostgresRepository.
func NewPostgresRepository(db auctionDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns auction id, or domain.ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*app.Auction, error) {
	ctx, span := startSpan(ctx, "postgres.auction.get")
	defer span.End()

	a, err := scanAuction(r.db.QueryRow(ctx, getAuctionSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("auction repo: get: %w", domain.ErrNotFound)
		}
		fail(span, err)
		return nil, fmt.Errorf("auction repo: get: %w", err)
	}
	return a, nil
}

// ListByCreator returns the auctions userID created, newest first.
func (r *PostgresRepository) ListByCreator(ctx context.Context, userID int64) ([]app.Auction, error) {
	ctx, span := startSpan(ctx, "postgres.auction.list_by_creator")
	defer span.End()

	out, err := queryAll(ctx, r.db, listAuctionsByCreatorSQL, userID, func(row pgx.Rows) (app.Auction, error) {
		a, err := scanAuction(row)
		if err != nil {
			return app.Auction{}, err
		}
		return *a, nil
	})
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("auction repo: list by creator: %w", err)
	}
	return out, nil
}

// HighestBids returns each company's highest bid, highest first.
func (r *PostgresRepository) HighestBids(ctx context.Context, auctionID int64) ([]app.CompanyBid, error) {
	ctx, span := startSpan(ctx, "postgres.auction.highest_bids")
	defer span.End()

	out, err := queryAll(ctx, r.db, highestBidsSQL, auctionID, func(row pgx.Rows) (app.CompanyBid, error) {
		var (
			b      app.CompanyBid
			amount string
		)
		if err := row.Scan(&b.CompanyName, &amount); err != nil {
			return b, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return b, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		b.Amount = d
		return b, nil
	})
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("auction repo: highest bids: %w", err)
	}
	return out, nil
}

// BidderSummaries returns per-bidder lowest and highest offers and bid counts.
// BidRank is left for the caller to assign.
func (r *PostgresRepository) BidderSummaries(ctx context.Context, auctionID int64) ([]app.BidderSummary, error) {
	ctx, span := startSpan(ctx, "postgres.auction.bidder_summaries")
	defer span.End()

	out, err := queryAll(ctx, r.db, bidderSummariesSQL, auctionID, func(row pgx.Rows) (app.BidderSummary, error) {
		var (
			s              app.BidderSummary
			minBid, maxBid string
			total          int64
		)
		if err := row.Scan(&s.UserID, &s.CompanyName, &minBid, &maxBid, &total); err != nil {
			return s, err
		}
		var err error
		if s.PreBidOffer, err = decimal.NewFromString(minBid); err != nil {
			return s, fmt.Errorf("parse amount %q: %w", minBid, err)
		}
		if s.FinalBidOffer, err = decimal.NewFromString(maxBid); err != nil {
			return s, fmt.Errorf("parse amount %q: %w", maxBid, err)
		}
		s.TotalBids = int(total)
		return s, nil
	})
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("auction repo: bidder summaries: %w", err)
	}
	return out, nil
}

// Contact returns userID's contact card, or domain.ErrNotFound.
func (r *PostgresRepository) Contact(ctx context.Context, userID int64) (*app.Contact, error) {
	ctx, span := startSpan(ctx, "postgres.auction.contact")
	defer span.End()

	var c app.Contact
	err := r.db.QueryRow(ctx, contactSQL, userID).Scan(&c.CompanyName, &c.PersonName, &c.Phone, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("auction repo: contact: %w", domain.ErrNotFound)
		}
		fail(span, err)
		return nil, fmt.Errorf("auction repo: contact: %w", err)
	}
	return &c, nil
}

// Participants returns the invitations for auctionID.
func (r *PostgresRepository) Participants(ctx context.Context, auctionID int64) ([]app.Participant, error) {
	ctx, span := startSpan(ctx, "postgres.auction.participants")
	defer span.End()

	out, err := queryAll(ctx, r.db, participantsSQL, auctionID, func(row pgx.Rows) (app.Participant, error) {
		var p app.Participant
		err := row.Scan(&p.ID, &p.UserID, &p.PhoneNumber, &p.Status, &p.InvitedAt, &p.JoinedAt, &p.PersonName, &p.CompanyName)
		return p, err
	})
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("auction repo: participants: %w", err)
	}
	return out, nil
}

// Documents returns the files attached to auctionID.
func (r *PostgresRepository) Documents(ctx context.Context, auctionID int64) ([]app.Document, error) {
	ctx, span := startSpan(ctx, "postgres.auction.documents")
	defer span.End()

	out, err := queryAll(ctx, r.db, documentsSQL, auctionID, func(row pgx.Rows) (app.Document, error) {
		var d app.Document
		err := row.Scan(&d.ID, &d.FileName, &d.FileURL, &d.FileType, &d.UploadedAt)
		return d, err
	})
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("auction repo: documents: %w", err)
	}
	return out, nil
}

func scanAuction(row pgx.Row) (*app.Auction, error) {
	var (
		a                  app.Auction
		start, end         pgtype.Time
		price, decremental *string
		duration           int32
	)
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Date, &start, &end, &duration,
		&a.Currency, &price, &decremental, &a.PreBidAllowed, &a.OpenToAll,
		&a.Status, &a.CreatedBy, &a.WinnerID, &a.WinnerNotified, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.StartTime = timeOfDay(start)
	if end.Valid {
		t := timeOfDay(end)
		a.EndTime = &t
	}
	a.DurationMinutes = int(duration)
	if a.CurrentPrice, err = nullDecimal(price); err != nil {
		return nil, err
	}
	if a.DecrementalValue, err = nullDecimal(decremental); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

// queryAll runs sql with one argument and scans every row with scan.
// The result is non-nil even when no rows match.
func queryAll[T any](ctx context.Context, db auctionDB, sql string, arg int64, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := db.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func timeOfDay(t pgtype.Time) app.TimeOfDay {
	return app.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}

func nullDecimal(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse numeric %q: %w", *s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
	))
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
