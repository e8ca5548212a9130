package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

type DashboardData struct {
	OrderData       []OrderPoint       `json:"orderData"`
	ProductViewData []ProductViewPoint `json:"productViewData"`
	CartData        []CartPoint        `json:"cartData"`
	AOVData         []AOVPoint         `json:"aovData"`
}

type DashboardStats struct {
	TopCities         []CityStat          `json:"topCities"`
	TopPaymentMethods []PaymentMethodStat `json:"topPaymentMethods"`
	TopCompanies      []CompanyStat       `json:"topCompanies"`
	TopCategories     []CategoryStat      `json:"topCategories"`
	TopSources        []SourceStat        `json:"topSources"`
}

type DashboardSummary struct {
	OrderCount       int `json:"orderCount"`
	ProductViewCount int `json:"productViewCount"`
	CartCount        int `json:"cartCount"`
	TotalDataPoints  int `json:"totalDataPoints"`
}

type Dashboard struct {
	Data    DashboardData    `json:"data"`
	Stats   DashboardStats   `json:"stats"`
	Summary DashboardSummary `json:"summary"`
}

// Dashboard resolves the range token, captures now once so all queries share
// the same bucket boundaries, and fans the nine aggregate queries out
// concurrently. Any failure fails the whole request; there is no partial
// result or stale fallback. Each call computes its own window, so concurrent
// requests share no state.
func (s *Store) Dashboard(ctx context.Context, token string) (*Dashboard, error) {
	r, err := ParseRange(token)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	from := now.Add(-r.Lookback)

	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.Data.OrderData, err = s.OrderSeries(ctx, r, from, now)
		return err
	})
	g.Go(func() (err error) {
		d.Data.ProductViewData, err = s.ProductViewSeries(ctx, r, from, now)
		return err
	})
	g.Go(func() (err error) {
		d.Data.CartData, err = s.CartSeries(ctx, r, from, now)
		return err
	})
	g.Go(func() (err error) {
		d.Data.AOVData, err = s.AOVSeries(ctx, r, from, now)
		return err
	})
	g.Go(func() (err error) {
		d.Stats.TopCities, err = s.TopCities(ctx, from, now)
		return err
	})
	g.Go(func() (err error) {
		d.Stats.TopPaymentMethods, err = s.TopPaymentMethods(ctx, from, now)
		return err
	})
	g.Go(func() (err error) {
		d.Stats.TopCompanies, err = s.TopCompanies(ctx, from, now)
		return err
	})
	g.Go(func() (err error) {
		d.Stats.TopCategories, err = s.TopCategories(ctx, from, now)
		return err
	})
	g.Go(func() (err error) {
		d.Stats.TopSources, err = s.TopSources(ctx, from, now)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Summary counts are the series lengths, not a separate query.
	d.Summary = DashboardSummary{
		OrderCount:       len(d.Data.OrderData),
		ProductViewCount: len(d.Data.ProductViewData),
		CartCount:        len(d.Data.CartData),
		TotalDataPoints:  len(d.Data.OrderData) + len(d.Data.ProductViewData) + len(d.Data.CartData),
	}
	return &d, nil
}
