// Package topshot exposes the CollectorPRO endpoints for NBA Top Shot
// portfolios, offers, watchlists and marketplace data.
package topshot

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	collectorpro "github.com/uxmeas/collectorpro-sub003"
)

const flowAddressTag = "required,len=18,startswith=0x,hexadecimal"

// Service issues Top Shot requests through a shared collectorpro.Client.
// Reads are cached by the client; mutations never touch the cache, so call
// Client.ClearCache when a read must observe a change.
type Service struct {
	client   *collectorpro.Client
	validate *validator.Validate
}

// NewService wraps client.
func NewService(client *collectorpro.Client) *Service {
	return &Service{
		client:   client,
		validate: validator.New(),
	}
}

// Portfolio returns the holdings summary of address.
func (s *Service) Portfolio(ctx context.Context, address string) (collectorpro.Result[Portfolio], error) {
	if err := s.validateAddress(address); err != nil {
		return collectorpro.Result[Portfolio]{}, err
	}
	return collectorpro.Get[Portfolio](ctx, s.client, "/portfolio/"+address)
}

// Moments lists the moments held by address.
func (s *Service) Moments(ctx context.Context, address string) (collectorpro.Result[[]Moment], error) {
	if err := s.validateAddress(address); err != nil {
		return collectorpro.Result[[]Moment]{}, err
	}
	return collectorpro.Get[[]Moment](ctx, s.client, "/portfolio/"+address+"/moments")
}

// Offers lists the offers placed by address.
func (s *Service) Offers(ctx context.Context, address string) (collectorpro.Result[[]Offer], error) {
	if err := s.validateAddress(address); err != nil {
		return collectorpro.Result[[]Offer]{}, err
	}
	return collectorpro.Get[[]Offer](ctx, s.client, "/offers?address="+url.QueryEscape(address))
}

// CreateOffer places a new offer.
func (s *Service) CreateOffer(ctx context.Context, req OfferRequest) (collectorpro.Result[Offer], error) {
	if err := s.validate.Struct(req); err != nil {
		return collectorpro.Result[Offer]{}, invalidInput("invalid offer request", err)
	}
	return collectorpro.Post[Offer](ctx, s.client, "/offers", req)
}

// CancelOffer withdraws offer id.
func (s *Service) CancelOffer(ctx context.Context, id string) error {
	if id == "" {
		return invalidInput("offer id is required", nil)
	}
	_, err := collectorpro.Delete[json.RawMessage](ctx, s.client, "/offers/"+url.PathEscape(id))
	return err
}

// Watchlist returns the tracked plays.
func (s *Service) Watchlist(ctx context.Context) (collectorpro.Result[[]WatchlistItem], error) {
	return collectorpro.Get[[]WatchlistItem](ctx, s.client, "/watchlist")
}

// AddToWatchlist starts tracking item.
func (s *Service) AddToWatchlist(ctx context.Context, item WatchlistItem) (collectorpro.Result[WatchlistItem], error) {
	if err := s.validate.Struct(item); err != nil {
		return collectorpro.Result[WatchlistItem]{}, invalidInput("invalid watchlist item", err)
	}
	return collectorpro.Post[WatchlistItem](ctx, s.client, "/watchlist", item)
}

// UpdateWatchlistItem replaces watchlist entry id.
func (s *Service) UpdateWatchlistItem(ctx context.Context, id string, item WatchlistItem) (collectorpro.Result[WatchlistItem], error) {
	if id == "" {
		return collectorpro.Result[WatchlistItem]{}, invalidInput("watchlist id is required", nil)
	}
	if err := s.validate.Struct(item); err != nil {
		return collectorpro.Result[WatchlistItem]{}, invalidInput("invalid watchlist item", err)
	}
	return collectorpro.Put[WatchlistItem](ctx, s.client, "/watchlist/"+url.PathEscape(id), item)
}

// RemoveFromWatchlist stops tracking entry id.
func (s *Service) RemoveFromWatchlist(ctx context.Context, id string) error {
	if id == "" {
		return invalidInput("watchlist id is required", nil)
	}
	_, err := collectorpro.Delete[json.RawMessage](ctx, s.client, "/watchlist/"+url.PathEscape(id))
	return err
}

// MarketStats returns the marketplace overview. Stats move quickly, so the
// entry is kept for a minute at most.
func (s *Service) MarketStats(ctx context.Context) (collectorpro.Result[MarketStats], error) {
	return collectorpro.Get[MarketStats](ctx, s.client, "/marketplace/stats", collectorpro.WithCacheTTL(time.Minute))
}

// Dashboard loads the portfolio, offers and watchlist of address
// concurrently. The first failure cancels the remaining reads.
func (s *Service) Dashboard(ctx context.Context, address string) (Dashboard, error) {
	if err := s.validateAddress(address); err != nil {
		return Dashboard{}, err
	}

	var (
		portfolio collectorpro.Result[Portfolio]
		offers    collectorpro.Result[[]Offer]
		watchlist collectorpro.Result[[]WatchlistItem]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		portfolio, err = s.Portfolio(gctx, address)
		return err
	})
	g.Go(func() error {
		var err error
		offers, err = s.Offers(gctx, address)
		return err
	})
	g.Go(func() error {
		var err error
		watchlist, err = s.Watchlist(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Portfolio: portfolio.Data,
		Offers:    offers.Data,
		Watchlist: watchlist.Data,
		Cached:    portfolio.Cached || offers.Cached || watchlist.Cached,
	}, nil
}

func (s *Service) validateAddress(address string) error {
	if err := s.validate.Var(address, flowAddressTag); err != nil {
		return invalidInput("invalid flow address "+address, err)
	}
	return nil
}

func invalidInput(message string, cause error) error {
	return &collectorpro.ClientError{
		Type:      collectorpro.ErrorTypeBadRequest,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}
