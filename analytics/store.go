package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harshits337/e-commerce-data-pipeline/config"
	"github.com/harshits337/e-commerce-data-pipeline/models"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

// Store wraps the ClickHouse connection holding the append-only orders_fact
// table. Rows are inserted once by the consumer and never updated or deleted.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to ClickHouse and bootstraps the fact table.
func Open(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
	})

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	createTableQuery := `
	CREATE TABLE IF NOT EXISTS orders_fact (
		order_id String,
		product_id String,
		user_id String,
		event_time DateTime,
		quantity UInt32,
		price Float64,
		total_amount Float64,
		payment_method String,
		city String,
		source String,
		event_type UInt8,
		category String,
		company String
	) ENGINE = MergeTree
	ORDER BY event_time
	`

	if _, err := db.Exec(createTableQuery); err != nil {
		return nil, fmt.Errorf("failed to create orders_fact: %w", err)
	}

	logger.Info("Analytics store connection established")
	return &Store{db: db, logger: logger}, nil
}

// NewStore wraps an existing handle; used by tests.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertFact appends one row. There is no uniqueness constraint: redelivered
// messages insert duplicate rows with the same order_id.
func (s *Store) InsertFact(ctx context.Context, row models.FactRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders_fact (order_id, product_id, user_id, event_time, quantity, price, total_amount, payment_method, city, source, event_type, category, company) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.OrderID, row.ProductID, row.UserID, row.EventTime, row.Quantity,
		row.Price, row.TotalAmount, row.PaymentMethod, row.City, row.Source,
		row.EventType, row.Category, row.Company,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fact row: %w", err)
	}
	return nil
}

// Time-series points. JSON field names match the dashboard wire format.

type OrderPoint struct {
	TimeBucket  time.Time `json:"time_bucket"`
	TotalOrders uint64    `json:"total_orders"`
}

type ProductViewPoint struct {
	TimeBucket        time.Time `json:"time_bucket"`
	TotalProductViews uint64    `json:"total_product_views"`
}

type CartPoint struct {
	TimeBucket time.Time `json:"time_bucket"`
	TotalCarts uint64    `json:"total_carts"`
}

type AOVPoint struct {
	TimeBucket        time.Time `json:"time_bucket"`
	AverageOrderValue float64   `json:"average_order_value"`
}

// Top-N breakdown entries, one type per grouping dimension.

type CityStat struct {
	City        string `json:"city"`
	TotalOrders uint64 `json:"total_orders"`
}

type PaymentMethodStat struct {
	PaymentMethod string `json:"payment_method"`
	TotalOrders   uint64 `json:"total_orders"`
}

type CompanyStat struct {
	Company     string `json:"company"`
	TotalOrders uint64 `json:"total_orders"`
}

type CategoryStat struct {
	Category    string `json:"category"`
	TotalOrders uint64 `json:"total_orders"`
}

type SourceStat struct {
	Source      string `json:"source"`
	TotalOrders uint64 `json:"total_orders"`
}

// seriesSQL builds a bucketed count query. The alias is one of our fixed
// column names and the interval comes from the range table; only the time
// bounds and event type are caller-influenced, and those are parameterized.
func seriesSQL(interval, alias string) string {
	return fmt.Sprintf(`SELECT toStartOfInterval(event_time, INTERVAL %s) AS time_bucket, countIf(event_type = ?) AS %s FROM orders_fact WHERE event_time BETWEEN ? AND ? GROUP BY time_bucket ORDER BY time_bucket`, interval, alias)
}

func (s *Store) OrderSeries(ctx context.Context, r Range, from, to time.Time) ([]OrderPoint, error) {
	rows, err := s.db.QueryContext(ctx, seriesSQL(r.Interval, "total_orders"), models.EventTypeOrder, from, to)
	if err != nil {
		return nil, fmt.Errorf("order series: %w", err)
	}
	defer rows.Close()

	points := []OrderPoint{}
	for rows.Next() {
		var p OrderPoint
		if err := rows.Scan(&p.TimeBucket, &p.TotalOrders); err != nil {
			return nil, fmt.Errorf("order series: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *Store) ProductViewSeries(ctx context.Context, r Range, from, to time.Time) ([]ProductViewPoint, error) {
	rows, err := s.db.QueryContext(ctx, seriesSQL(r.Interval, "total_product_views"), models.EventTypeProductView, from, to)
	if err != nil {
		return nil, fmt.Errorf("product view series: %w", err)
	}
	defer rows.Close()

	points := []ProductViewPoint{}
	for rows.Next() {
		var p ProductViewPoint
		if err := rows.Scan(&p.TimeBucket, &p.TotalProductViews); err != nil {
			return nil, fmt.Errorf("product view series: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *Store) CartSeries(ctx context.Context, r Range, from, to time.Time) ([]CartPoint, error) {
	rows, err := s.db.QueryContext(ctx, seriesSQL(r.Interval, "total_carts"), models.EventTypeCart, from, to)
	if err != nil {
		return nil, fmt.Errorf("cart series: %w", err)
	}
	defer rows.Close()

	points := []CartPoint{}
	for rows.Next() {
		var p CartPoint
		if err := rows.Scan(&p.TimeBucket, &p.TotalCarts); err != nil {
			return nil, fmt.Errorf("cart series: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// AOVSeries computes the mean total_amount over order events per bucket.
// avgIfOrNull avoids NaN for buckets that contain only view or cart rows.
func (s *Store) AOVSeries(ctx context.Context, r Range, from, to time.Time) ([]AOVPoint, error) {
	query := fmt.Sprintf(`SELECT toStartOfInterval(event_time, INTERVAL %s) AS time_bucket, avgIfOrNull(total_amount, event_type = ?) AS average_order_value FROM orders_fact WHERE event_time BETWEEN ? AND ? GROUP BY time_bucket ORDER BY time_bucket`, r.Interval)
	rows, err := s.db.QueryContext(ctx, query, models.EventTypeOrder, from, to)
	if err != nil {
		return nil, fmt.Errorf("aov series: %w", err)
	}
	defer rows.Close()

	points := []AOVPoint{}
	for rows.Next() {
		var p AOVPoint
		var aov sql.NullFloat64
		if err := rows.Scan(&p.TimeBucket, &aov); err != nil {
			return nil, fmt.Errorf("aov series: %w", err)
		}
		p.AverageOrderValue = aov.Float64
		points = append(points, p)
	}
	return points, rows.Err()
}

// topNSQL builds a breakdown query restricted to order events, with empty
// dimension values excluded. The column name and limit are fixed per call
// site, never caller text.
func topNSQL(column string, limit int) string {
	return fmt.Sprintf(`SELECT %s, count(*) AS total_orders FROM orders_fact WHERE event_time BETWEEN ? AND ? AND %s != '' AND event_type = ? GROUP BY %s ORDER BY total_orders DESC LIMIT %d`, column, column, column, limit)
}

type labelCount struct {
	label string
	count uint64
}

func (s *Store) topN(ctx context.Context, column string, limit int, from, to time.Time) ([]labelCount, error) {
	rows, err := s.db.QueryContext(ctx, topNSQL(column, limit), from, to, models.EventTypeOrder)
	if err != nil {
		return nil, fmt.Errorf("top %s: %w", column, err)
	}
	defer rows.Close()

	entries := []labelCount{}
	for rows.Next() {
		var e labelCount
		if err := rows.Scan(&e.label, &e.count); err != nil {
			return nil, fmt.Errorf("top %s: %w", column, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) TopCities(ctx context.Context, from, to time.Time) ([]CityStat, error) {
	entries, err := s.topN(ctx, "city", 10, from, to)
	if err != nil {
		return nil, err
	}
	stats := make([]CityStat, len(entries))
	for i, e := range entries {
		stats[i] = CityStat{City: e.label, TotalOrders: e.count}
	}
	return stats, nil
}

func (s *Store) TopPaymentMethods(ctx context.Context, from, to time.Time) ([]PaymentMethodStat, error) {
	entries, err := s.topN(ctx, "payment_method", 10, from, to)
	if err != nil {
		return nil, err
	}
	stats := make([]PaymentMethodStat, len(entries))
	for i, e := range entries {
		stats[i] = PaymentMethodStat{PaymentMethod: e.label, TotalOrders: e.count}
	}
	return stats, nil
}

func (s *Store) TopCompanies(ctx context.Context, from, to time.Time) ([]CompanyStat, error) {
	entries, err := s.topN(ctx, "company", 10, from, to)
	if err != nil {
		return nil, err
	}
	stats := make([]CompanyStat, len(entries))
	for i, e := range entries {
		stats[i] = CompanyStat{Company: e.label, TotalOrders: e.count}
	}
	return stats, nil
}

func (s *Store) TopCategories(ctx context.Context, from, to time.Time) ([]CategoryStat, error) {
	entries, err := s.topN(ctx, "category", 10, from, to)
	if err != nil {
		return nil, err
	}
	stats := make([]CategoryStat, len(entries))
	for i, e := range entries {
		stats[i] = CategoryStat{Category: e.label, TotalOrders: e.count}
	}
	return stats, nil
}

func (s *Store) TopSources(ctx context.Context, from, to time.Time) ([]SourceStat, error) {
	entries, err := s.topN(ctx, "source", 5, from, to)
	if err != nil {
		return nil, err
	}
	stats := make([]SourceStat, len(entries))
	for i, e := range entries {
		stats[i] = SourceStat{Source: e.label, TotalOrders: e.count}
	}
	return stats, nil
}
