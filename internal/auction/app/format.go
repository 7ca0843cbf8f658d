package app

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Auction time states.
const (
	StatusUpcoming  = "upcoming"
	StatusLive      = "live"
	StatusCompleted = "completed"
)

// FormatTime12h renders t as "3:04 PM" with an unpadded hour.
func FormatTime12h(t TimeOfDay) string {
	d := time.Duration(t)
	hour := int(d / time.Hour)
	minute := int(d % time.Hour / time.Minute)

	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, ampm)
}

// TimeStatus places now relative to the [start, end] window. Both bounds
// count as live.
func TimeStatus(now, start, end time.Time) string {
	switch {
	case now.Before(start):
		return StatusUpcoming
	case now.After(end):
		return StatusCompleted
	default:
		return StatusLive
	}
}

// TimeRemaining returns the whole seconds until end, never negative.
func TimeRemaining(now, end time.Time) int64 {
	if !end.After(now) {
		return 0
	}
	return int64(end.Sub(now) / time.Second)
}

// YesNo renders a flag the way the auction UI expects.
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// RankDescending orders bids highest first and assigns standard competition
// ranks: equal amounts share a rank and the next distinct amount takes its
// 1-based position (100, 90, 90, 80 rank 1, 2, 2, 4).
func RankDescending(bids []CompanyBid) []RankedBid {
	sorted := slices.Clone(bids)
	slices.SortStableFunc(sorted, func(a, b CompanyBid) int { return b.Amount.Cmp(a.Amount) })

	ranks := competitionRanks(len(sorted), func(i int) decimal.Decimal { return sorted[i].Amount })
	out := make([]RankedBid, len(sorted))
	for i, b := range sorted {
		out[i] = RankedBid{CompanyName: b.CompanyName, FinalBid: b.Amount, Rank: ranks[i]}
	}
	return out
}

// rankAscending orders bidders by final offer, lowest first, and sets BidRank
// with the same competition semantics as RankDescending.
func rankAscending(bidders []BidderSummary) []BidderSummary {
	sorted := slices.Clone(bidders)
	slices.SortStableFunc(sorted, func(a, b BidderSummary) int { return a.FinalBidOffer.Cmp(b.FinalBidOffer) })

	ranks := competitionRanks(len(sorted), func(i int) decimal.Decimal { return sorted[i].FinalBidOffer })
	for i := range sorted {
		sorted[i].BidRank = ranks[i]
	}
	return sorted
}

func competitionRanks(n int, amount func(i int) decimal.Decimal) []int {
	ranks := make([]int, n)
	for i := range n {
		if i > 0 && amount(i).Equal(amount(i-1)) {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}
