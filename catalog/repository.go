package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harshits337/e-commerce-data-pipeline/circuitbreaker"
	"github.com/harshits337/e-commerce-data-pipeline/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("catalog: record not found")

// Repository is a read-through view of the product and user catalog. Postgres
// is the source of truth; when a Redis client is provided, lookups are cached
// with a TTL. Database reads go through a circuit breaker so a down catalog
// fails fast instead of stalling the consumer on every message.
type Repository struct {
	db      *sql.DB
	rdb     *redis.Client
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewRepository constructs a repository. rdb may be nil to disable caching.
func NewRepository(db *sql.DB, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Repository {
	return &Repository{
		db:      db,
		rdb:     rdb,
		ttl:     ttl,
		breaker: circuitbreaker.New(5, 30*time.Second),
		logger:  logger,
	}
}

func (r *Repository) ProductByID(ctx context.Context, id string) (models.Product, error) {
	var product models.Product
	if r.cacheGet(ctx, "product:"+id, &product) {
		return product, nil
	}

	// A missing row is a clean answer, not a catalog outage; only real
	// database errors count against the breaker.
	var notFound bool
	err := r.breaker.Execute(func() error {
		row := r.db.QueryRowContext(ctx,
			"SELECT id, name, price, category, company FROM products WHERE id = $1", id)
		if err := row.Scan(&product.ID, &product.Name, &product.Price, &product.Category, &product.Company); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				notFound = true
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.Product{}, fmt.Errorf("product lookup: %w", err)
	}
	if notFound {
		return models.Product{}, ErrNotFound
	}

	r.cacheSet(ctx, "product:"+id, product)
	return product, nil
}

func (r *Repository) UserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if r.cacheGet(ctx, "user:"+id, &user) {
		return user, nil
	}

	var notFound bool
	err := r.breaker.Execute(func() error {
		row := r.db.QueryRowContext(ctx,
			"SELECT id, name, city FROM users WHERE id = $1", id)
		if err := row.Scan(&user.ID, &user.Name, &user.City); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				notFound = true
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("user lookup: %w", err)
	}
	if notFound {
		return models.User{}, ErrNotFound
	}

	r.cacheSet(ctx, "user:"+id, user)
	return user, nil
}

func (r *Repository) cacheGet(ctx context.Context, key string, dest any) bool {
	if r.rdb == nil {
		return false
	}
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// cacheSet is best effort; a failed write only costs the next lookup a trip
// to Postgres.
func (r *Repository) cacheSet(ctx context.Context, key string, value any) {
	if r.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("Failed to cache catalog record", zap.String("key", key), zap.Error(err))
	}
}
