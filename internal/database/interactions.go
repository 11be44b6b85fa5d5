package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hotelbook/internal/models"

	"github.com/google/uuid"
)

// SaveInteraction stores one interaction. A rating also refreshes the
// resource's average rating.
func (db *DB) SaveInteraction(ctx context.Context, in *models.Interaction) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO interactions
		(id, user_id, resource_id, kind, interaction_type, rating, occasion, party_size, time_slot,
		 reservation_id, from_recommendation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.ResourceID, in.Kind, in.Type, nullRating(in.Rating),
		in.Occasion, in.PartySize, in.TimeSlot, in.ReservationID, in.FromRecommendation, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}

	if in.Type == models.InteractionRating && in.Rating != nil {
		_, err = tx.ExecContext(ctx, `UPDATE resources SET
			average_rating = (SELECT AVG(rating) FROM interactions
				WHERE resource_id = ? AND interaction_type = ? AND rating IS NOT NULL),
			updated_at = ?
			WHERE id = ?`,
			in.ResourceID, models.InteractionRating, time.Now(), in.ResourceID,
		)
		if err != nil {
			return fmt.Errorf("failed to refresh rating: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit interaction: %w", err)
	}
	if in.Type == models.InteractionRating {
		db.forgetResource(in.ResourceID)
	}
	return nil
}

// CountInteractions counts interactions of a resource, optionally of one type.
func (db *DB) CountInteractions(ctx context.Context, resourceID, interactionType string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions
		WHERE resource_id = ? AND (? = '' OR interaction_type = ?)`,
		resourceID, interactionType, interactionType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return n, nil
}

// GetUserInteractions returns a user's interactions, newest first.
func (db *DB) GetUserInteractions(ctx context.Context, f models.InteractionFilter) ([]models.Interaction, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, user_id, resource_id, kind, interaction_type, rating,
		occasion, party_size, time_slot, reservation_id, from_recommendation, created_at
		FROM interactions
		WHERE user_id = ? AND (? = '' OR interaction_type = ?) AND (? = 0 OR from_recommendation = 1)
		ORDER BY created_at DESC, id
		LIMIT ?`,
		f.UserID, f.Type, f.Type, f.FromRecommendation, f.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var out []models.Interaction
	for rows.Next() {
		var (
			in     models.Interaction
			rating sql.NullFloat64
		)
		if err := rows.Scan(&in.ID, &in.UserID, &in.ResourceID, &in.Kind, &in.Type, &rating,
			&in.Occasion, &in.PartySize, &in.TimeSlot, &in.ReservationID, &in.FromRecommendation, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		if rating.Valid {
			in.Rating = models.Float64(rating.Float64)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CountInteractionsByType groups interactions by type. An empty userID counts
// everyone.
func (db *DB) CountInteractionsByType(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT interaction_type, COUNT(*) FROM interactions
		WHERE (? = '' OR user_id = ?)
		GROUP BY interaction_type`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count interactions by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("failed to scan interaction count: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// InteractionSummary aggregates the whole interactions table.
func (db *DB) InteractionSummary(ctx context.Context) (models.InteractionAnalytics, error) {
	var out models.InteractionAnalytics
	err := db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT user_id),
		COALESCE(SUM(CASE WHEN interaction_type = ? AND from_recommendation = 1 THEN 1 ELSE 0 END), 0)
		FROM interactions`,
		models.InteractionBooking,
	).Scan(&out.TotalInteractions, &out.UniqueUsers, &out.RecommendedBookings)
	if err != nil {
		return out, fmt.Errorf("failed to summarize interactions: %w", err)
	}

	out.ByType, err = db.CountInteractionsByType(ctx, "")
	if err != nil {
		return out, err
	}
	return out, nil
}
