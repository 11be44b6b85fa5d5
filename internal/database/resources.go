package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotelbook/internal/models"
)

const resourceColumns = `id, kind, name, capacity, category, location, ambiance, average_rating,
	base_price, status, image, total_bookings, sort_order, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResource(row rowScanner) (models.Resource, error) {
	var (
		res    models.Resource
		rating sql.NullFloat64
	)
	err := row.Scan(
		&res.ID, &res.Kind, &res.Name, &res.Capacity, &res.Category, &res.Location, &res.Ambiance, &rating,
		&res.BasePrice, &res.Status, &res.Image, &res.TotalBookings, &res.SortOrder, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return res, err
	}
	if rating.Valid {
		res.AverageRating = models.Float64(rating.Float64)
	}
	return res, nil
}

func nullRating(r *float64) sql.NullFloat64 {
	if r == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *r, Valid: true}
}

// UpsertResource inserts or replaces catalog fields of a resource. Booking
// counters are kept.
func (db *DB) UpsertResource(ctx context.Context, res *models.Resource) error {
	now := time.Now()
	if res.Status == "" {
		res.Status = models.ResourceStatusAvailable
	}
	query := `INSERT INTO resources (` + resourceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			capacity = excluded.capacity,
			category = excluded.category,
			location = excluded.location,
			ambiance = excluded.ambiance,
			average_rating = COALESCE(excluded.average_rating, resources.average_rating),
			base_price = excluded.base_price,
			status = excluded.status,
			image = excluded.image,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		res.ID, res.Kind, res.Name, res.Capacity, res.Category, res.Location, res.Ambiance, nullRating(res.AverageRating),
		res.BasePrice, res.Status, res.Image, res.TotalBookings, res.SortOrder, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert resource %s: %w", res.ID, err)
	}
	db.forgetResource(res.ID)
	return nil
}

// SeedResources loads a catalog, typically from the resources yaml file.
func (db *DB) SeedResources(ctx context.Context, resources []models.Resource) error {
	for i := range resources {
		if err := db.UpsertResource(ctx, &resources[i]); err != nil {
			return err
		}
	}
	db.logger.Info().Int("count", len(resources)).Msg("Resource catalog seeded")
	return nil
}

// GetResource returns one resource, served from the in-process cache when possible.
func (db *DB) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	db.mu.RLock()
	cached, ok := db.resourceCache[id]
	db.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	row := db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	res, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	db.mu.Lock()
	db.resourceCache[id] = res
	db.mu.Unlock()
	return &res, nil
}

func (db *DB) forgetResource(id string) {
	db.mu.Lock()
	delete(db.resourceCache, id)
	db.mu.Unlock()
}

// FetchAllResources lists the catalog of a kind; an empty kind lists everything.
func (db *DB) FetchAllResources(ctx context.Context, kind string) ([]models.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE (? = '' OR kind = ?) ORDER BY sort_order, id`
	return db.queryResources(ctx, query, kind, kind)
}

// FetchPopularResources ranks resources by rating, then bookings, then
// availability. Resources with no history fill the rest of the list.
func (db *DB) FetchPopularResources(ctx context.Context, kind string, limit int) (*models.PopularResponse, error) {
	if limit <= 0 {
		limit = models.DefaultResultCount
	}
	query := `SELECT ` + resourceColumns + ` FROM resources
		WHERE (? = '' OR kind = ?)
		ORDER BY (total_bookings > 0 OR average_rating IS NOT NULL) DESC,
			average_rating DESC NULLS LAST,
			total_bookings DESC,
			(status = 'Available') DESC,
			sort_order, id
		LIMIT ?`
	resources, err := db.queryResources(ctx, query, kind, kind, limit)
	if err != nil {
		return nil, err
	}
	return &models.PopularResponse{Success: true, Resources: resources}, nil
}

func (db *DB) queryResources(ctx context.Context, query string, args ...interface{}) ([]models.Resource, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resources, nil
}

// UpdateResourceStatus sets the Available/Booked/Reserved flag.
func (db *DB) UpdateResourceStatus(ctx context.Context, id, status string) error {
	result, err := db.ExecContext(ctx, `UPDATE resources SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update resource status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("resource %s: %w", id, ErrNotFound)
	}
	db.forgetResource(id)
	return nil
}
