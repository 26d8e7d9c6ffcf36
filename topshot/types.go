package topshot

import "time"

// Tier is the rarity tier of a Top Shot moment.
type Tier string

const (
	TierCommon    Tier = "COMMON"
	TierFandom    Tier = "FANDOM"
	TierRare      Tier = "RARE"
	TierLegendary Tier = "LEGENDARY"
	TierUltimate  Tier = "ULTIMATE"
)

// Moment is one owned Top Shot collectible.
type Moment struct {
	ID               string    `json:"id"`
	PlayID           string    `json:"playId"`
	Player           string    `json:"player"`
	Team             string    `json:"team"`
	SetName          string    `json:"setName"`
	Series           int       `json:"series"`
	Tier             Tier      `json:"tier"`
	SerialNumber     int       `json:"serialNumber"`
	CirculationCount int       `json:"circulationCount"`
	PurchasePrice    float64   `json:"purchasePrice"`
	CurrentValue     float64   `json:"currentValue"`
	AcquiredAt       time.Time `json:"acquiredAt"`
}

// Gain is the unrealised profit on the moment.
func (m Moment) Gain() float64 {
	return m.CurrentValue - m.PurchasePrice
}

// Portfolio summarises the holdings of one Flow address.
type Portfolio struct {
	Address     string    `json:"address"`
	MomentCount int       `json:"momentCount"`
	TotalCost   float64   `json:"totalCost"`
	TotalValue  float64   `json:"totalValue"`
	Change24h   float64   `json:"change24h"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ROI is the return on cost as a fraction, zero when nothing was spent.
func (p Portfolio) ROI() float64 {
	if p.TotalCost == 0 {
		return 0
	}
	return (p.TotalValue - p.TotalCost) / p.TotalCost
}

// OfferStatus is the lifecycle state of an offer.
type OfferStatus string

const (
	OfferPending   OfferStatus = "PENDING"
	OfferAccepted  OfferStatus = "ACCEPTED"
	OfferCancelled OfferStatus = "CANCELLED"
	OfferExpired   OfferStatus = "EXPIRED"
)

// Offer is a standing bid on a moment.
type Offer struct {
	ID        string      `json:"id"`
	MomentID  string      `json:"momentId"`
	Address   string      `json:"address"`
	Price     float64     `json:"price"`
	Status    OfferStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

// OfferRequest creates an offer.
type OfferRequest struct {
	MomentID  string     `json:"momentId" validate:"required"`
	Address   string     `json:"address" validate:"required,len=18,startswith=0x,hexadecimal"`
	Price     float64    `json:"price" validate:"gt=0"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// WatchlistItem is a play the collector is tracking.
type WatchlistItem struct {
	ID          string    `json:"id,omitempty"`
	PlayID      string    `json:"playId" validate:"required"`
	Player      string    `json:"player"`
	Tier        Tier      `json:"tier,omitempty" validate:"omitempty,oneof=COMMON FANDOM RARE LEGENDARY ULTIMATE"`
	TargetPrice float64   `json:"targetPrice" validate:"min=0"`
	Notes       string    `json:"notes,omitempty" validate:"max=500"`
	AddedAt     time.Time `json:"addedAt,omitempty"`
}

// Sale is a completed marketplace transaction.
type Sale struct {
	MomentID string    `json:"momentId"`
	Player   string    `json:"player"`
	Price    float64   `json:"price"`
	SoldAt   time.Time `json:"soldAt"`
}

// MarketStats is the marketplace overview.
type MarketStats struct {
	Volume24h  float64 `json:"volume24h"`
	Sales24h   int     `json:"sales24h"`
	FloorPrice float64 `json:"floorPrice"`
	AvgPrice   float64 `json:"avgPrice"`
	TopSales   []Sale  `json:"topSales"`
}

// Dashboard bundles the reads shown on the collector dashboard.
type Dashboard struct {
	Portfolio Portfolio       `json:"portfolio"`
	Offers    []Offer         `json:"offers"`
	Watchlist []WatchlistItem `json:"watchlist"`
	Cached    bool            `json:"cached"`
}
