package auction

import (
	"time"

	"github.com/carlostoek/dianabot-auctions/internal/store"
)

// View is the read model returned to callers. Sealed auctions never reveal
// the running high bid; their view shows the starting price.
type View struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Kind          store.Kind   `json:"kind"`
	Status        store.Status `json:"status"`
	CurrentPrice  int64        `json:"current_price"`
	StartingPrice int64        `json:"starting_price"`
	BuyoutPrice   *int64       `json:"buyout_price,omitempty"`
	MinIncrement  int64        `json:"min_increment"`
	StartsAt      time.Time    `json:"starts_at"`
	EndsAt        time.Time    `json:"ends_at"`
	BidderCount   int          `json:"bidder_count"`
	WinnerID      *string      `json:"winner_id,omitempty"`
}

// Filter narrows ListActiveAuctions results. Zero values match everything.
type Filter struct {
	Kind      store.Kind
	CreatedBy string
	MaxLevel  int // only auctions a user of this level may enter; 0 disables
}

func (f Filter) matches(a *store.Auction) bool {
	if f.Kind != "" && a.Kind != f.Kind {
		return false
	}
	if f.CreatedBy != "" && a.CreatedBy != f.CreatedBy {
		return false
	}
	if f.MaxLevel > 0 && a.MinLevel > f.MaxLevel {
		return false
	}
	return true
}

func viewOf(a *store.Auction, bidderCount int) View {
	v := View{
		ID:            a.ID,
		Title:         a.Title,
		Description:   a.Description,
		Kind:          a.Kind,
		Status:        a.Status,
		CurrentPrice:  a.CurrentPrice,
		StartingPrice: a.StartingPrice,
		BuyoutPrice:   a.BuyoutPrice,
		MinIncrement:  a.MinIncrement,
		StartsAt:      a.StartsAt,
		EndsAt:        a.EndsAt,
		BidderCount:   bidderCount,
		WinnerID:      a.WinnerID,
	}
	if a.Kind == store.KindSealed && !a.Status.Terminal() {
		v.CurrentPrice = a.StartingPrice
	}
	return v
}

// ItemSpec describes one item to award the winner.
type ItemSpec struct {
	Kind     string
	Quantity int
	Payload  []byte
}

// Spec describes a new auction.
type Spec struct {
	Title           string
	Description     string
	Kind            store.Kind
	StartingPrice   int64
	ReservePrice    *int64
	BuyoutPrice     *int64
	MinIncrement    int64
	MaxIncrement    *int64
	MinLevel        int
	VIPOnly         bool
	MaxParticipants int
	StartsAt        time.Time
	EndsAt          time.Time
	AutoExtend      bool
	ExtensionWindow time.Duration
	CreatedBy       string
	Items           []ItemSpec
}

// Result is the outcome of PlaceBid. CurrentPrice is always populated, also
// on rejection, so callers can immediately retry with a valid amount.
type Result struct {
	BidID        string `json:"bid_id,omitempty"`
	Accepted     bool   `json:"accepted"`
	IsWinning    bool   `json:"is_winning"`
	CurrentPrice int64  `json:"current_price"`
	// Duplicate is true when an idempotency key replay returned the result
	// of the original call.
	Duplicate bool `json:"duplicate,omitempty"`
}
