package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/observability"
)

var tracer = otel.Tracer("auction/app")

// AuctionTypeCreated tags auctions listed for their creator.
const AuctionTypeCreated = "created"

// Repository reads auctions and their related rows. Get and Contact return
// domain.ErrNotFound for unknown ids.
type Repository interface {
	Get(ctx context.Context, id int64) (*Auction, error)
	HighestBids(ctx context.Context, auctionID int64) ([]CompanyBid, error)
	BidderSummaries(ctx context.Context, auctionID int64) ([]BidderSummary, error)
	Contact(ctx context.Context, userID int64) (*Contact, error)
	Participants(ctx context.Context, auctionID int64) ([]Participant, error)
	Documents(ctx context.Context, auctionID int64) ([]Document, error)
	ListByCreator(ctx context.Context, userID int64) ([]Auction, error)
}

// ServiceConfig holds the dependencies for Service. Location is the zone
// auction dates and start times are entered in; nil means UTC.
type ServiceConfig struct {
	Repo     Repository
	Clock    domain.Clock
	Location *time.Location
	Logger   *slog.Logger
}

// Service answers auction read queries.
type Service struct {
	repo   Repository
	clock  domain.Clock
	loc    *time.Location
	logger *slog.Logger
}

// NewService creates a Service with the given dependencies.
func NewService(cfg ServiceConfig) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: cfg.Repo, clock: cfg.Clock, loc: loc, logger: cfg.Logger}
}

// Details is the public summary of one auction.
type Details struct {
	ID               int64
	Title            string
	Description      string
	AuctionDate      time.Time
	StartTime        TimeOfDay
	EndsAt           time.Time
	Currency         string
	DecrementalValue decimal.NullDecimal
	OpenToAll        string // "Yes" when pre-bids are allowed
}

// Details returns the public summary of auction id.
func (s *Service) Details(ctx context.Context, id int64) (*Details, error) {
	ctx, span := tracer.Start(ctx, "auction.details")
	defer span.End()

	a, err := s.get(ctx, id)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}

	return &Details{
		ID:               a.ID,
		Title:            a.Title,
		Description:      a.Description,
		AuctionDate:      a.Date,
		StartTime:        a.StartTime,
		EndsAt:           a.EndsAt(s.loc),
		Currency:         a.Currency,
		DecrementalValue: a.DecrementalValue,
		OpenToAll:        YesNo(a.PreBidAllowed),
	}, nil
}

// Bids returns each company's highest bid on auction id, highest first,
// with competition ranks. An auction without bids yields an empty list.
func (s *Service) Bids(ctx context.Context, id int64) ([]RankedBid, error) {
	ctx, span := tracer.Start(ctx, "auction.bids")
	defer span.End()

	if id <= 0 {
		return nil, fmt.Errorf("auction %d: %w", id, domain.ErrInvalidID)
	}

	bids, err := s.repo.HighestBids(ctx, id)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("auction %d: highest bids: %w", id, err)
	}
	return RankDescending(bids), nil
}

// ReportSummary totals a report's bidding.
type ReportSummary struct {
	TotalBidders int
	HighestBid   decimal.Decimal
}

// Report is the full view of one auction.
type Report struct {
	Auction       Auction
	StartTime     string // 12-hour clock
	EndTime       string // 12-hour clock
	OpenToAll     string
	Bids          []BidderSummary
	Summary       ReportSummary
	TimeStatus    string
	TimeRemaining int64 // seconds
	Creator       *Contact
	Winner        *Contact
	Participants  []Participant
	Documents     []Document
}

// Report assembles the full view of auction id. Bidder rows are required;
// creator, winner, participant and document lookups degrade to empty values
// when they fail.
func (s *Service) Report(ctx context.Context, id int64) (*Report, error) {
	ctx, span := tracer.Start(ctx, "auction.report")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	a, err := s.get(ctx, id)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}

	r := &Report{
		Auction:      *a,
		StartTime:    FormatTime12h(a.StartTime),
		EndTime:      FormatTime12h(a.ComputedEndTime()),
		OpenToAll:    YesNo(a.OpenToAll),
		Participants: []Participant{},
		Documents:    []Document{},
	}
	if a.EndTime != nil {
		r.EndTime = FormatTime12h(*a.EndTime)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bidders, err := s.repo.BidderSummaries(gctx, id)
		if err != nil {
			return fmt.Errorf("auction %d: bidder summaries: %w", id, err)
		}
		r.Bids = rankAscending(bidders)
		return nil
	})
	if a.CreatedBy != nil {
		g.Go(func() error {
			r.Creator = s.contact(gctx, logger, "creator", *a.CreatedBy)
			return nil
		})
	}
	if a.WinnerID != nil {
		g.Go(func() error {
			r.Winner = s.contact(gctx, logger, "winner", *a.WinnerID)
			return nil
		})
	}
	g.Go(func() error {
		ps, err := s.repo.Participants(gctx, id)
		if err != nil {
			logger.WarnContext(ctx, "auction.participants_unavailable", "auction_id", id, "error", err)
			return nil
		}
		if ps != nil {
			r.Participants = ps
		}
		return nil
	})
	g.Go(func() error {
		docs, err := s.repo.Documents(gctx, id)
		if err != nil {
			logger.WarnContext(ctx, "auction.documents_unavailable", "auction_id", id, "error", err)
			return nil
		}
		if docs != nil {
			r.Documents = docs
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		recordErr(span, err)
		return nil, err
	}

	r.Summary = summarize(r.Bids, a.CurrentPrice)

	now := domain.NowUTC(s.clock)
	start, end := a.StartsAt(s.loc), a.EndsAt(s.loc)
	r.TimeStatus = TimeStatus(now, start, end)
	r.TimeRemaining = TimeRemaining(now, end)

	span.SetAttributes(
		attribute.Int("auction.bidders", r.Summary.TotalBidders),
		attribute.String("auction.time_status", r.TimeStatus),
	)
	logger.InfoContext(ctx, "auction.report_built",
		"auction_id", id, "bidders", r.Summary.TotalBidders, "time_status", r.TimeStatus)

	return r, nil
}

// AuctionSummary is one entry of a creator's auction list.
type AuctionSummary struct {
	ID          int64
	Title       string
	Status      string
	AuctionDate time.Time
	StartTime   string // 12-hour clock
	EndTime     string // 12-hour clock
	AuctionType string
	OpenToAll   string
}

// UserAuctions lists the auctions created by userID, newest first.
func (s *Service) UserAuctions(ctx context.Context, userID int64) ([]AuctionSummary, error) {
	ctx, span := tracer.Start(ctx, "auction.user_auctions")
	defer span.End()

	if userID <= 0 {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrInvalidID)
	}

	auctions, err := s.repo.ListByCreator(ctx, userID)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("user %d: list auctions: %w", userID, err)
	}

	out := make([]AuctionSummary, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, AuctionSummary{
			ID:          a.ID,
			Title:       a.Title,
			Status:      a.Status,
			AuctionDate: a.Date,
			StartTime:   FormatTime12h(a.StartTime),
			EndTime:     FormatTime12h(a.ComputedEndTime()),
			AuctionType: AuctionTypeCreated,
			OpenToAll:   YesNo(a.OpenToAll),
		})
	}
	return out, nil
}

func (s *Service) get(ctx context.Context, id int64) (*Auction, error) {
	if id <= 0 {
		return nil, fmt.Errorf("auction %d: %w", id, domain.ErrInvalidID)
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("auction %d: %w", id, err)
	}
	return a, nil
}

func (s *Service) contact(ctx context.Context, logger *slog.Logger, role string, userID int64) *Contact {
	c, err := s.repo.Contact(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.WarnContext(ctx, "auction.contact_unavailable", "role", role, "user_id", userID, "error", err)
		}
		return nil
	}
	return c
}

// summarize counts bidders and picks the highest final offer, falling back
// to the auction's current price and then zero.
func summarize(bids []BidderSummary, currentPrice decimal.NullDecimal) ReportSummary {
	sum := ReportSummary{TotalBidders: len(bids)}
	switch {
	case len(bids) > 0:
		sum.HighestBid = bids[0].FinalBidOffer
		for _, b := range bids[1:] {
			if b.FinalBidOffer.GreaterThan(sum.HighestBid) {
				sum.HighestBid = b.FinalBidOffer
			}
		}
	case currentPrice.Valid:
		sum.HighestBid = currentPrice.Decimal
	default:
		sum.HighestBid = decimal.Zero
	}
	return sum
}

// recordErr marks span failed unless err is a client-side miss.
func recordErr(span trace.Span, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidID) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
