package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/trekhub/tour-api/internal/model"
	"github.com/trekhub/tour-api/internal/query"
)

const tourColumns = "id, name, duration, max_group_size, difficulty, ratings_average, " +
	"ratings_quantity, price, price_discount, summary, description, secret, created_at"

// TourSchema is the query-engine surface of the tours resource. The secret
// flag is internal and not selectable.
var TourSchema = query.Schema{
	Filterable: map[string]bool{
		"duration": true, "max_group_size": true, "difficulty": true,
		"ratings_average": true, "price": true, "name": true,
	},
	Sortable: map[string]bool{
		"price": true, "ratings_average": true, "created_at": true,
		"name": true, "duration": true,
	},
	Selectable: []string{
		"id", "name", "duration", "max_group_size", "difficulty",
		"ratings_average", "ratings_quantity", "price", "summary", "created_at",
	},
	DefaultSort: "created_at DESC",
	MaxLimit:    100,
}

type TourRepo struct{ DB *sql.DB }

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{DB: db} }

// Create inserts a tour and returns its id.
func (r *TourRepo) Create(ctx context.Context, t *model.Tour) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tours (name, duration, max_group_size, difficulty, price, price_discount, summary, description, secret) "+
			"VALUES (?,?,?,?,?,?,?,?,?)",
		strings.TrimSpace(t.Name), t.Duration, t.MaxGroupSize, t.Difficulty,
		t.Price, t.PriceDiscount, t.Summary, t.Description, t.Secret)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrNameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Get fetches one tour by id.
func (r *TourRepo) Get(ctx context.Context, id uint64) (*model.Tour, error) {
	var t model.Tour
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+tourColumns+" FROM tours WHERE id=? LIMIT 1", id).
		Scan(&t.ID, &t.Name, &t.Duration, &t.MaxGroupSize, &t.Difficulty,
			&t.RatingsAverage, &t.RatingsQty, &t.Price, &t.PriceDiscount,
			&t.Summary, &t.Description, &t.Secret, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// tourFields is the allow-list for tour updates.
var tourFields = []string{
	"name", "duration", "max_group_size", "difficulty", "price",
	"price_discount", "summary", "description", "secret",
}

// Update applies allow-listed fields to a tour.
func (r *TourRepo) Update(ctx context.Context, id uint64, fields map[string]any) error {
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, col := range tourFields {
		v, ok := fields[col]
		if !ok {
			continue
		}
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if len(sets) == 0 {
		return ErrNotFound
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tours SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a tour.
func (r *TourRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tours WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// List runs a query-engine spec over non-secret tours.
func (r *TourRepo) List(ctx context.Context, sp query.Spec) ([]Row, error) {
	sqlText, args := sp.SelectSQL("tours", "secret = 0")
	rows, err := r.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// Stats aggregates tours per difficulty.
func (r *TourRepo) Stats(ctx context.Context) ([]model.TourStats, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT
			difficulty,
			COUNT(*)              AS num_tours,
			AVG(ratings_average)  AS avg_rating,
			AVG(price)            AS avg_price,
			MIN(price)            AS min_price,
			MAX(price)            AS max_price
		FROM tours
		WHERE secret = 0
		GROUP BY difficulty
		ORDER BY avg_price ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TourStats, 0, 3)
	for rows.Next() {
		var s model.TourStats
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.AvgRating,
			&s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
