// Package port exposes the auction read queries over HTTP.
package port

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"github.com/zonixt/eauction/internal/auction/app"
	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/errmap"
)

// auctionService is the subset of *app.Service the handler calls.
type auctionService interface {
	Details(ctx context.Context, id int64) (*app.Details, error)
	Bids(ctx context.Context, id int64) ([]app.RankedBid, error)
	Report(ctx context.Context, id int64) (*app.Report, error)
	UserAuctions(ctx context.Context, userID int64) ([]app.AuctionSummary, error)
}

var _ auctionService = (*app.Service)(nil)

const dateLayout = "2006-01-02"

// AuctionHandler serves /api/auctions.
type AuctionHandler struct {
	svc auctionService
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(svc *app.Service) *AuctionHandler {
	return &AuctionHandler{svc: svc}
}

// Mount registers the auction routes on r.
func (h *AuctionHandler) Mount(r chi.Router) {
	r.Route("/api/auctions", func(r chi.Router) {
		r.Get("/", h.UserAuctions)
		r.Get("/{id}", h.Details)
		r.Get("/{id}/bids", h.Bids)
		r.Get("/{id}/report", h.Report)
	})
}

type detailsResponse struct {
	ID               int64               `json:"id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	AuctionDate      string              `json:"auction_date"`
	StartTime        string              `json:"start_time"`
	EndTime          time.Time           `json:"end_time"`
	Currency         string              `json:"currency"`
	DecrementalValue decimal.NullDecimal `json:"decremental_value"`
	OpenToAll        string              `json:"open_to_all"`
}

// Details returns the public summary of one auction.
func (h *AuctionHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, ok := auctionID(w, r)
	if !ok {
		return
	}

	d, err := h.svc.Details(r.Context(), id)
	if err != nil {
		renderAuctionErr(w, r, err)
		return
	}

	render.JSON(w, r, detailsResponse{
		ID:               d.ID,
		Title:            d.Title,
		Description:      d.Description,
		AuctionDate:      d.AuctionDate.Format(dateLayout),
		StartTime:        d.StartTime.String(),
		EndTime:          d.EndsAt,
		Currency:         d.Currency,
		DecrementalValue: d.DecrementalValue,
		OpenToAll:        d.OpenToAll,
	})
}

type rankedBid struct {
	CompanyName string          `json:"company_name"`
	FinalBid    decimal.Decimal `json:"final_bid"`
	Rank        int             `json:"rank"`
}

type bidsResponse struct {
	AuctionID int64       `json:"auctionId"`
	Bids      []rankedBid `json:"bids"`
}

// Bids returns each company's highest bid with competition ranks.
func (h *AuctionHandler) Bids(w http.ResponseWriter, r *http.Request) {
	id, ok := auctionID(w, r)
	if !ok {
		return
	}

	bids, err := h.svc.Bids(r.Context(), id)
	if err != nil {
		renderAuctionErr(w, r, err)
		return
	}

	resp := bidsResponse{AuctionID: id, Bids: make([]rankedBid, 0, len(bids))}
	for _, b := range bids {
		resp.Bids = append(resp.Bids, rankedBid{CompanyName: b.CompanyName, FinalBid: b.FinalBid, Rank: b.Rank})
	}
	render.JSON(w, r, resp)
}

type bidderRow struct {
	CompanyName   string          `json:"company_name"`
	UserID        int64           `json:"user_id"`
	PreBidOffer   decimal.Decimal `json:"pre_bid_offer"`
	FinalBidOffer decimal.Decimal `json:"final_bid_offer"`
	TotalBids     int             `json:"total_bids"`
	BidRank       int             `json:"bid_rank"`
}

type reportSummary struct {
	TotalBidders int             `json:"total_bidders"`
	HighestBid   decimal.Decimal `json:"highest_bid"`
}

type contact struct {
	CompanyName string `json:"company_name"`
	PersonName  string `json:"person_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

type participant struct {
	ID          int64      `json:"id"`
	UserID      *int64     `json:"user_id"`
	PhoneNumber string     `json:"phone_number"`
	Status      string     `json:"status"`
	InvitedAt   time.Time  `json:"invited_at"`
	JoinedAt    *time.Time `json:"joined_at"`
	PersonName  string     `json:"person_name"`
	CompanyName string     `json:"company_name"`
}

type document struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	FileType   string    `json:"file_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type reportResponse struct {
	ID               int64               `json:"id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	AuctionDate      string              `json:"auction_date"`
	StartTime        string              `json:"start_time"`
	EndTime          string              `json:"end_time"`
	Duration         int                 `json:"duration"`
	Currency         string              `json:"currency"`
	CurrentPrice     decimal.NullDecimal `json:"current_price"`
	DecrementalValue decimal.NullDecimal `json:"decremental_value"`
	OpenToAll        string              `json:"open_to_all"`
	Status           string              `json:"status"`
	CreatedBy        *int64              `json:"created_by"`
	WinnerID         *int64              `json:"winner_id"`
	WinnerNotified   bool                `json:"winner_notified"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Bids             []bidderRow         `json:"bids"`
	Summary          reportSummary       `json:"summary"`
	TimeStatus       string              `json:"time_status"`
	TimeRemaining    int64               `json:"time_remaining"`
	Creator          *contact            `json:"creator"`
	Winner           *contact            `json:"winner"`
	Participants     []participant       `json:"participants"`
	Documents        []document          `json:"documents"`
}

// Report returns the full view of one auction.
func (h *AuctionHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := auctionID(w, r)
	if !ok {
		return
	}

	rep, err := h.svc.Report(r.Context(), id)
	if err != nil {
		renderAuctionErr(w, r, err)
		return
	}

	a := rep.Auction
	resp := reportResponse{
		ID:               a.ID,
		Title:            a.Title,
		Description:      a.Description,
		AuctionDate:      a.Date.Format(dateLayout),
		StartTime:        rep.StartTime,
		EndTime:          rep.EndTime,
		Duration:         a.DurationMinutes,
		Currency:         a.Currency,
		CurrentPrice:     a.CurrentPrice,
		DecrementalValue: a.DecrementalValue,
		OpenToAll:        rep.OpenToAll,
		Status:           a.Status,
		CreatedBy:        a.CreatedBy,
		WinnerID:         a.WinnerID,
		WinnerNotified:   a.WinnerNotified,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		Bids:             make([]bidderRow, 0, len(rep.Bids)),
		Summary:          reportSummary{TotalBidders: rep.Summary.TotalBidders, HighestBid: rep.Summary.HighestBid},
		TimeStatus:       rep.TimeStatus,
		TimeRemaining:    rep.TimeRemaining,
		Creator:          toContact(rep.Creator),
		Winner:           toContact(rep.Winner),
		Participants:     make([]participant, 0, len(rep.Participants)),
		Documents:        make([]document, 0, len(rep.Documents)),
	}
	for _, b := range rep.Bids {
		resp.Bids = append(resp.Bids, bidderRow{
			CompanyName:   b.CompanyName,
			UserID:        b.UserID,
			PreBidOffer:   b.PreBidOffer,
			FinalBidOffer: b.FinalBidOffer,
			TotalBids:     b.TotalBids,
			BidRank:       b.BidRank,
		})
	}
	for _, p := range rep.Participants {
		resp.Participants = append(resp.Participants, participant(p))
	}
	for _, d := range rep.Documents {
		resp.Documents = append(resp.Documents, document(d))
	}
	render.JSON(w, r, resp)
}

type auctionListItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	AuctionDate string `json:"auction_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	AuctionType string `json:"auction_type"`
	OpenToAll   string `json:"open_to_all"`
}

type auctionListResponse struct {
	Success  bool              `json:"success"`
	Auctions []auctionListItem `json:"auctions"`
	Count    int               `json:"count"`
}

// UserAuctions lists the auctions created by the userId query parameter.
func (h *AuctionHandler) UserAuctions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		errmap.RenderMessage(w, r, domain.ErrInvalidID, "Invalid user ID")
		return
	}

	list, err := h.svc.UserAuctions(r.Context(), userID)
	if err != nil {
		errmap.RenderMessage(w, r, err, "Internal server error")
		return
	}

	resp := auctionListResponse{Success: true, Auctions: make([]auctionListItem, 0, len(list)), Count: len(list)}
	for _, a := range list {
		resp.Auctions = append(resp.Auctions, auctionListItem{
			ID:          a.ID,
			Title:       a.Title,
			Status:      a.Status,
			AuctionDate: a.AuctionDate.Format(dateLayout),
			StartTime:   a.StartTime,
			EndTime:     a.EndTime,
			AuctionType: a.AuctionType,
			OpenToAll:   a.OpenToAll,
		})
	}
	render.JSON(w, r, resp)
}

// auctionID parses the {id} path parameter, answering 400 when it is not
// a positive integer.
func auctionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		errmap.RenderMessage(w, r, domain.ErrInvalidID, "Invalid auction ID")
		return 0, false
	}
	return id, true
}

func renderAuctionErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		errmap.RenderMessage(w, r, err, "Auction not found")
	case errors.Is(err, domain.ErrInvalidID):
		errmap.RenderMessage(w, r, err, "Invalid auction ID")
	default:
		errmap.RenderMessage(w, r, err, "Internal server error")
	}
}

func toContact(c *app.Contact) *contact {
	if c == nil {
		return nil
	}
	out := contact(*c)
	return &out
}
