// Package app implements the read-side auction use cases: auction details,
// ranked bid summaries, the full auction report and a creator's auction list.
package app

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeOfDay is a wall-clock offset from midnight.
type TimeOfDay time.Duration

// NewTimeOfDay builds a TimeOfDay from hours, minutes and seconds.
func NewTimeOfDay(h, m, s int) TimeOfDay {
	return TimeOfDay(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

// String renders the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return time.Time{}.Add(d).Format("15:04:05")
}

// Add returns t shifted by d, wrapped into a single day.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	const day = 24 * time.Hour
	v := (time.Duration(t) + d) % day
	if v < 0 {
		v += day
	}
	return TimeOfDay(v)
}

// Auction is one row of the auctions table.
type Auction struct {
	ID               int64
	Title            string
	Description      string
	Date             time.Time // calendar date; the clock part is ignored
	StartTime        TimeOfDay
	EndTime          *TimeOfDay // stored end time, nil when unset
	DurationMinutes  int
	Currency         string
	CurrentPrice     decimal.NullDecimal
	DecrementalValue decimal.NullDecimal
	PreBidAllowed    bool
	OpenToAll        bool
	Status           string
	CreatedBy        *int64
	WinnerID         *int64
	WinnerNotified   bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StartsAt is the auction's start instant, reading the date and start time
// as wall-clock values in loc.
func (a Auction) StartsAt(loc *time.Location) time.Time {
	y, m, d := a.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(a.StartTime))
}

// EndsAt is StartsAt plus the configured duration.
func (a Auction) EndsAt(loc *time.Location) time.Time {
	return a.StartsAt(loc).Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// ComputedEndTime is the time of day the auction closes, from start and duration.
func (a Auction) ComputedEndTime() TimeOfDay {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// CompanyBid is a company's highest bid on an auction.
type CompanyBid struct {
	CompanyName string
	Amount      decimal.Decimal
}

// RankedBid is a CompanyBid with its competition rank.
type RankedBid struct {
	CompanyName string
	FinalBid    decimal.Decimal
	Rank        int
}

// BidderSummary aggregates one bidder's activity on an auction.
type BidderSummary struct {
	UserID        int64
	CompanyName   string
	PreBidOffer   decimal.Decimal // lowest amount bid
	FinalBidOffer decimal.Decimal // highest amount bid
	TotalBids     int
	BidRank       int
}

// Contact is a user's public contact card.
type Contact struct {
	CompanyName string
	PersonName  string
	Phone       string
	Email       string
}

// Participant is an invitation to an auction.
type Participant struct {
	ID          int64
	UserID      *int64
	PhoneNumber string
	Status      string
	InvitedAt   time.Time
	JoinedAt    *time.Time
	PersonName  string
	CompanyName string
}

// Document is a file attached to an auction.
type Document struct {
	ID         int64
	FileName   string
	FileURL    string
	FileType   string
	UploadedAt time.Time
}
