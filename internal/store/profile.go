package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yourorg/discovery-api/internal/catalog"
)

// Profile loads the discovery-relevant slice of a user: favorites per kind,
// booked ids, home city and the capped recently-visited list.
func (s *Store) Profile(ctx context.Context, userID string) (*catalog.Profile, error) {
	p := &catalog.Profile{UserID: userID}

	err := s.DB.QueryRowContext(ctx, `SELECT home_city FROM users WHERE id = $1`, userID).Scan(&p.HomeCity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT kind, item_id FROM favorites WHERE user_id = $1 ORDER BY added_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind, itemID string
		if err := rows.Scan(&kind, &itemID); err != nil {
			return nil, err
		}
		if kind == string(catalog.KindVehicle) {
			p.FavoriteVehicleID = append(p.FavoriteVehicleID, itemID)
		} else {
			p.FavoritePropertyID = append(p.FavoritePropertyID, itemID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	booked, err := s.DB.QueryContext(ctx,
		`SELECT item_id FROM bookings WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer booked.Close()
	for booked.Next() {
		var itemID string
		if err := booked.Scan(&itemID); err != nil {
			return nil, err
		}
		p.BookedIDs = append(p.BookedIDs, itemID)
	}
	if err := booked.Err(); err != nil {
		return nil, err
	}

	visits, err := s.DB.QueryContext(ctx,
		`SELECT kind, item_id, visited_at FROM visits
         WHERE user_id = $1 ORDER BY visited_at DESC LIMIT $2`,
		userID, catalog.VisitedCapacity)
	if err != nil {
		return nil, err
	}
	defer visits.Close()
	for visits.Next() {
		var v catalog.VisitedEntry
		var kind string
		if err := visits.Scan(&kind, &v.ItemID, &v.VisitedAt); err != nil {
			return nil, err
		}
		v.Kind = catalog.Kind(kind)
		p.Visited = append(p.Visited, v)
	}
	return p, visits.Err()
}

// RecordVisit reinserts the (user, item) pair at the front of the visited
// list and trims past the capacity, in one transaction. Re-visiting an item
// moves it to the front rather than duplicating it.
func (s *Store) RecordVisit(ctx context.Context, userID string, kind catalog.Kind, itemID string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO visits (user_id, kind, item_id, visited_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (user_id, kind, item_id) DO UPDATE SET visited_at = now()`,
		userID, string(kind), itemID)
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        DELETE FROM visits
        WHERE user_id = $1 AND (kind, item_id) NOT IN (
            SELECT kind, item_id FROM visits
            WHERE user_id = $1 ORDER BY visited_at DESC LIMIT $2
        )`, userID, catalog.VisitedCapacity)
	if err != nil {
		return fmt.Errorf("trim visits: %w", err)
	}

	err = tx.Commit()
	return err
}

// ClearVisits empties a user's visited list.
func (s *Store) ClearVisits(ctx context.Context, userID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM visits WHERE user_id = $1`, userID)
	return err
}
