package adapter

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonixt/eauction/internal/auction/app"
	"github.com/zonixt/eauction/internal/domain"
)

// stubDB implements auctionDB with function fields.
type stubDB struct {
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.queryFn(ctx, sql, args...)
}

func (s *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.queryRowFn(ctx, sql, args...)
}

var _ auctionDB = (*stubDB)(nil)

// assign copies values into scan destinations of the same type.
func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return errors.New("column count mismatch")
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

// stubRow implements pgx.Row over one row of values.
type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

// stubRows implements pgx.Rows over fixed values.
type stubRows struct {
	data   [][]any
	pos    int
	err    error
	closed bool
}

func (r *stubRows) Close() { r.closed = true }
func (r *stubRows) Err() error { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) RawValues() [][]byte { return nil }
func (r *stubRows) Conn() *pgx.Conn { return nil }

func (r *stubRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	return assign(dest, r.data[r.pos-1])
}

func (r *stubRows) Values() ([]any, error) {
	return r.data[r.pos-1], nil
}

var _ pgx.Rows = (*stubRows)(nil)

func strp(s string) *string { return &s }
func i64p(v int64) *int64   { return &v }

func pgTime(h, m int) pgtype.Time {
	return pgtype.Time{Microseconds: int64(h*3600+m*60) * 1_000_000, Valid: true}
}

var pgStamp = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

func auctionRow() []any {
	return []any{
		int64(42), "Steel coils lot 7", "Reverse auction",
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		pgTime(10, 0), pgtype.Time{}, int32(60),
		"INR", strp("5000.00"), strp("50.00"), true, false,
		"upcoming", i64p(7), nil, false, pgStamp, pgStamp,
	}
}

func TestPostgresRepository_Get(t *testing.T) {
	t.Run("scans and converts columns", func(t *testing.T) {
		db := &stubDB{queryRowFn: func(_ context.Context, sql string, args ...any) pgx.Row {
			assert.Contains(t, sql, "FROM auctions")
			assert.Contains(t, sql, "current_price::text")
			assert.Equal(t, []any{int64(42)}, args)
			return stubRow{values: auctionRow()}
		}}

		a, err := NewPostgresRepository(db).Get(context.Background(), 42)

		require.NoError(t, err)
		assert.Equal(t, int64(42), a.ID)
		assert.Equal(t, app.NewTimeOfDay(10, 0, 0), a.StartTime)
		assert.Nil(t, a.EndTime)
		assert.Equal(t, 60, a.DurationMinutes)
		require.True(t, a.CurrentPrice.Valid)
		assert.Equal(t, "5000", a.CurrentPrice.Decimal.String())
		assert.True(t, a.PreBidAllowed)
		require.NotNil(t, a.CreatedBy)
		assert.Equal(t, int64(7), *a.CreatedBy)
		assert.Nil(t, a.WinnerID)
	})

	t.Run("stored end time and null price", func(t *testing.T) {
		row := auctionRow()
		row[5] = pgTime(14, 15)
		row[8] = (*string)(nil)
		db := &stubDB{queryRowFn: func(context.Context, string, ...any) pgx.Row {
			return stubRow{values: row}
		}}

		a, err := NewPostgresRepository(db).Get(context.Background(), 42)

		require.NoError(t, err)
		require.NotNil(t, a.EndTime)
		assert.Equal(t, app.NewTimeOfDay(14, 15, 0), *a.EndTime)
		assert.False(t, a.CurrentPrice.Valid)
	})

	t.Run("no rows maps to ErrNotFound", func(t *testing.T) {
		db := &stubDB{queryRowFn: func(context.Context, string, ...any) pgx.Row {
			return stubRow{err: pgx.ErrNoRows}
		}}

		_, err := NewPostgresRepository(db).Get(context.Background(), 42)

		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		db := &stubDB{queryRowFn: func(context.Context, string, ...any) pgx.Row {
			return stubRow{err: errors.New("conn busy")}
		}}

		_, err := NewPostgresRepository(db).Get(context.Background(), 42)

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), "auction repo: get: conn busy")
	})
}

func TestPostgresRepository_HighestBids(t *testing.T) {
	rows := &stubRows{data: [][]any{
		{"Beta", "4900.00"},
		{"Acme", "4800.50"},
	}}
	db := &stubDB{queryFn: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
		assert.Contains(t, sql, "ORDER BY MAX(b.amount) DESC")
		assert.Equal(t, []any{int64(42)}, args)
		return rows, nil
	}}

	got, err := NewPostgresRepository(db).HighestBids(context.Background(), 42)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Beta", got[0].CompanyName)
	assert.Equal(t, "4800.5", got[1].Amount.String())
	assert.True(t, rows.closed)
}

func TestPostgresRepository_BidderSummaries(t *testing.T) {
	t.Run("parses offers and counts", func(t *testing.T) {
		db := &stubDB{queryFn: func(context.Context, string, ...any) (pgx.Rows, error) {
			return &stubRows{data: [][]any{{int64(3), "Core", "4700", "4800", int64(4)}}}, nil
		}}

		got, err := NewPostgresRepository(db).BidderSummaries(context.Background(), 42)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(3), got[0].UserID)
		assert.Equal(t, "4700", got[0].PreBidOffer.String())
		assert.Equal(t, "4800", got[0].FinalBidOffer.String())
		assert.Equal(t, 4, got[0].TotalBids)
	})

	t.Run("unparsable amount fails", func(t *testing.T) {
		db := &stubDB{queryFn: func(context.Context, string, ...any) (pgx.Rows, error) {
			return &stubRows{data: [][]any{{int64(3), "Core", "NaN?", "4800", int64(1)}}}, nil
		}}

		_, err := NewPostgresRepository(db).BidderSummaries(context.Background(), 42)

		require.Error(t, err)
	})

	t.Run("iteration error surfaces", func(t *testing.T) {
		db := &stubDB{queryFn: func(context.Context, string, ...any) (pgx.Rows, error) {
			return &stubRows{err: errors.New("unexpected EOF")}, nil
		}}

		_, err := NewPostgresRepository(db).BidderSummaries(context.Background(), 42)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected EOF")
	})
}

func TestPostgresRepository_Contact(t *testing.T) {
	db := &stubDB{queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
		if args[0] == int64(7) {
			return stubRow{values: []any{"Buyer Ltd", "Asha", "9876543210", "asha@example.com"}}
		}
		return stubRow{err: pgx.ErrNoRows}
	}}
	repo := NewPostgresRepository(db)

	c, err := repo.Contact(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, app.Contact{CompanyName: "Buyer Ltd", PersonName: "Asha", Phone: "9876543210", Email: "asha@example.com"}, *c)

	_, err = repo.Contact(context.Background(), 8)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresRepository_ParticipantsAndDocuments(t *testing.T) {
	joined := pgStamp.Add(time.Hour)
	db := &stubDB{queryFn: func(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
		switch {
		case sql == participantsSQL:
			return &stubRows{data: [][]any{
				{int64(1), i64p(11), "9876543210", "joined", pgStamp, &joined, "Ravi", "Acme"},
				{int64(2), nil, "9123456780", "invited", pgStamp, nil, "", ""},
			}}, nil
		case sql == documentsSQL:
			return &stubRows{data: [][]any{
				{int64(5), "catalogue.pdf", "https://files.example.com/catalogue.pdf", "application/pdf", pgStamp},
			}}, nil
		}
		return nil, errors.New("unexpected query")
	}}
	repo := NewPostgresRepository(db)

	ps, err := repo.Participants(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, int64(11), *ps[0].UserID)
	assert.Equal(t, joined, *ps[0].JoinedAt)
	assert.Nil(t, ps[1].UserID)
	assert.Nil(t, ps[1].JoinedAt)

	docs, err := repo.Documents(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "catalogue.pdf", docs[0].FileName)
}

func TestPostgresRepository_ListByCreator(t *testing.T) {
	t.Run("newest first ordering is requested", func(t *testing.T) {
		db := &stubDB{queryFn: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
			assert.Contains(t, sql, "WHERE created_by = $1")
			assert.Contains(t, sql, "ORDER BY auction_date DESC, start_time DESC")
			assert.Equal(t, []any{int64(7)}, args)
			return &stubRows{data: [][]any{auctionRow()}}, nil
		}}

		got, err := NewPostgresRepository(db).ListByCreator(context.Background(), 7)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Steel coils lot 7", got[0].Title)
	})

	t.Run("no rows is an empty slice", func(t *testing.T) {
		db := &stubDB{queryFn: func(context.Context, string, ...any) (pgx.Rows, error) {
			return &stubRows{}, nil
		}}

		got, err := NewPostgresRepository(db).ListByCreator(context.Background(), 7)

		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("query error", func(t *testing.T) {
		db := &stubDB{queryFn: func(context.Context, string, ...any) (pgx.Rows, error) {
			return nil, errors.New("pool closed")
		}}

		_, err := NewPostgresRepository(db).ListByCreator(context.Background(), 7)

		require.Error(t, err)
	})
}
