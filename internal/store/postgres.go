package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yourorg/discovery-api/internal/catalog"
)

// ErrNotFound is returned when a dependent lookup has no row.
var ErrNotFound = errors.New("store: not found")

type Store struct{ DB *sql.DB }

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS cube;`,
		`CREATE EXTENSION IF NOT EXISTS earthdistance;`,
		`CREATE TABLE IF NOT EXISTS properties (
            id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            title           TEXT NOT NULL,
            description     TEXT NOT NULL DEFAULT '',
            category        TEXT NOT NULL DEFAULT '',
            city            TEXT NOT NULL DEFAULT '',
            state           TEXT NOT NULL DEFAULT '',
            address         TEXT NOT NULL DEFAULT '',
            lat             DOUBLE PRECISION,
            lng             DOUBLE PRECISION,
            price_per_month NUMERIC,
            price_per_week  NUMERIC,
            price_per_day   NUMERIC,
            rating_avg      DOUBLE PRECISION NOT NULL DEFAULT 0,
            rating_count    INTEGER NOT NULL DEFAULT 0,
            featured        BOOLEAN NOT NULL DEFAULT false,
            available       BOOLEAN NOT NULL DEFAULT true,
            images          JSONB NOT NULL DEFAULT '[]',
            bedrooms        SMALLINT,
            bathrooms       SMALLINT,
            area_sqft       INTEGER,
            created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_properties_geo ON properties USING GIST (ll_to_earth(lat, lng));`,
		`CREATE INDEX IF NOT EXISTS idx_properties_category ON properties(category);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_featured ON properties(featured) WHERE featured;`,
		`CREATE TABLE IF NOT EXISTS vehicles (
            id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            title           TEXT NOT NULL,
            description     TEXT NOT NULL DEFAULT '',
            category        TEXT NOT NULL DEFAULT '',
            city            TEXT NOT NULL DEFAULT '',
            state           TEXT NOT NULL DEFAULT '',
            address         TEXT NOT NULL DEFAULT '',
            lat             DOUBLE PRECISION,
            lng             DOUBLE PRECISION,
            price_per_day   NUMERIC,
            price_per_hour  NUMERIC,
            price_per_week  NUMERIC,
            rating_avg      DOUBLE PRECISION NOT NULL DEFAULT 0,
            rating_count    INTEGER NOT NULL DEFAULT 0,
            featured        BOOLEAN NOT NULL DEFAULT false,
            available       BOOLEAN NOT NULL DEFAULT true,
            images          JSONB NOT NULL DEFAULT '[]',
            make            TEXT,
            model           TEXT,
            year            SMALLINT,
            seats           SMALLINT,
            created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_vehicles_geo ON vehicles USING GIST (ll_to_earth(lat, lng));`,
		`CREATE INDEX IF NOT EXISTS idx_vehicles_category ON vehicles(category);`,
		`CREATE TABLE IF NOT EXISTS users (
            id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            home_city  TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE TABLE IF NOT EXISTS favorites (
            user_id  UUID NOT NULL,
            kind     TEXT NOT NULL,
            item_id  UUID NOT NULL,
            added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (user_id, kind, item_id)
        );`,
		`CREATE TABLE IF NOT EXISTS bookings (
            user_id   UUID NOT NULL,
            kind      TEXT NOT NULL,
            item_id   UUID NOT NULL,
            booked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (user_id, kind, item_id)
        );`,
		`CREATE TABLE IF NOT EXISTS visits (
            user_id    UUID NOT NULL,
            kind       TEXT NOT NULL,
            item_id    UUID NOT NULL,
            visited_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (user_id, kind, item_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_visits_user_time ON visits(user_id, visited_at DESC);`,
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func table(kind catalog.Kind) string {
	if kind == catalog.KindVehicle {
		return "vehicles"
	}
	return "properties"
}

// columns yields a shared column layout for both tables so one scanner
// handles either kind; absent columns are padded with typed NULLs.
func columns(kind catalog.Kind) string {
	if kind == catalog.KindVehicle {
		return `id, title, description, category, city, state, address, lat, lng,
            price_per_day, price_per_hour, price_per_week, NULL::numeric,
            rating_avg, rating_count, featured, available, images, created_at,
            NULL::smallint, NULL::smallint, NULL::integer,
            make, model, year, seats`
	}
	return `id, title, description, category, city, state, address, lat, lng,
        price_per_day, NULL::numeric, price_per_week, price_per_month,
        rating_avg, rating_count, featured, available, images, created_at,
        bedrooms, bathrooms, area_sqft,
        NULL::text, NULL::text, NULL::smallint, NULL::smallint`
}

func scanItem(rows *sql.Rows, kind catalog.Kind) (catalog.CandidateItem, error) {
	var (
		item                             catalog.CandidateItem
		lat, lng                         sql.NullFloat64
		perDay, perHour, perWeek, perMon sql.NullFloat64
		images                           []byte
		beds, baths, areaSqft            sql.NullInt64
		year, seats                      sql.NullInt64
		mk, model                        sql.NullString
	)
	err := rows.Scan(
		&item.ID, &item.Title, &item.Description, &item.Category,
		&item.City, &item.State, &item.Address, &lat, &lng,
		&perDay, &perHour, &perWeek, &perMon,
		&item.Rating.Avg, &item.Rating.Count, &item.Featured, &item.Available,
		&images, &item.CreatedAt,
		&beds, &baths, &areaSqft,
		&mk, &model, &year, &seats,
	)
	if err != nil {
		return item, err
	}
	item.Kind = kind
	if lat.Valid && lng.Valid {
		item.Coordinates = catalog.Coordinates{Lat: lat.Float64, Lng: lng.Float64, Set: true}
	}
	item.Price = catalog.Price{
		PerDay:   perDay.Float64,
		PerHour:  perHour.Float64,
		PerWeek:  perWeek.Float64,
		PerMonth: perMon.Float64,
	}
	if len(images) > 0 {
		_ = json.Unmarshal(images, &item.Images)
	}
	item.Bedrooms = int(beds.Int64)
	item.Bathrooms = int(baths.Int64)
	item.AreaSqft = int(areaSqft.Int64)
	item.Make = mk.String
	item.Model = model.String
	item.Year = int(year.Int64)
	item.Seats = int(seats.Int64)
	return item, nil
}

func (s *Store) queryItems(ctx context.Context, kind catalog.Kind, query string, args ...any) ([]catalog.CandidateItem, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalog.CandidateItem
	for rows.Next() {
		item, err := scanItem(rows, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) FindByID(ctx context.Context, kind catalog.Kind, id string) (*catalog.CandidateItem, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns(kind), table(kind))
	items, err := s.queryItems(ctx, kind, q, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// FindByIDs returns matching rows; missing ids are silently absent and the
// result order is unspecified (callers re-order as needed).
func (s *Store) FindByIDs(ctx context.Context, kind catalog.Kind, ids []string) ([]catalog.CandidateItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1)`, columns(kind), table(kind))
	return s.queryItems(ctx, kind, q, ids)
}

// FindRandom returns up to limit available items in random order, excluding
// consumed ids and, when category is set, non-matching categories.
func (s *Store) FindRandom(ctx context.Context, kind catalog.Kind, category string, exclude []string, limit int) ([]catalog.CandidateItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	if exclude == nil {
		exclude = []string{}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT %s FROM %s WHERE available AND NOT (id = ANY($1))`, columns(kind), table(kind))
	args := []any{exclude}
	if category != "" && category != catalog.CategoryAll {
		args = append(args, category)
		fmt.Fprintf(&sb, ` AND lower(category) = lower($%d)`, len(args))
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, ` ORDER BY random() LIMIT $%d`, len(args))
	return s.queryItems(ctx, kind, sb.String(), args...)
}

// FindNear returns available items within maxMeters of the point, closest
// first. earth_box narrows via the GIST index, earth_distance makes the
// cutoff exact.
func (s *Store) FindNear(ctx context.Context, kind catalog.Kind, lat, lng, maxMeters float64, limit int) ([]catalog.CandidateItem, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s
        WHERE available
          AND lat IS NOT NULL AND lng IS NOT NULL
          AND earth_box(ll_to_earth($1, $2), $3) @> ll_to_earth(lat, lng)
          AND earth_distance(ll_to_earth($1, $2), ll_to_earth(lat, lng)) <= $3
        ORDER BY earth_distance(ll_to_earth($1, $2), ll_to_earth(lat, lng))
        LIMIT $4`, columns(kind), table(kind))
	return s.queryItems(ctx, kind, q, lat, lng, maxMeters, limit)
}

func searchWhere(query string, exclude []string) (string, []any) {
	if exclude == nil {
		exclude = []string{}
	}
	where := `available AND NOT (id = ANY($1))`
	args := []any{exclude}
	if query != "" {
		args = append(args, "%"+escapeLike(query)+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (title ILIKE $%d OR description ILIKE $%d OR city ILIKE $%d OR state ILIKE $%d OR address ILIKE $%d)`,
			n, n, n, n, n)
	}
	return where, args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// TextSearch fetches the predicate-matching set up to limit rows. The limit
// bounds the in-process score/sort, not the reported total.
func (s *Store) TextSearch(ctx context.Context, kind catalog.Kind, query string, exclude []string, limit int) ([]catalog.CandidateItem, error) {
	where, args := searchWhere(query, exclude)
	args = append(args, limit)
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		columns(kind), table(kind), where, len(args))
	return s.queryItems(ctx, kind, q, args...)
}

func (s *Store) CountMatching(ctx context.Context, kind catalog.Kind, query string, exclude []string) (int, error) {
	where, args := searchWhere(query, exclude)
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, table(kind), where)
	var n int
	err := s.DB.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}
