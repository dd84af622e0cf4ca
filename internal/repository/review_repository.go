package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/trekhub/tour-api/internal/model"
	"github.com/trekhub/tour-api/internal/query"
)

const reviewColumns = "id, tour_id, user_id, rating, body, created_at"

// ReviewSchema is the query-engine surface of the reviews resource.
var ReviewSchema = query.Schema{
	Filterable:  map[string]bool{"rating": true, "tour_id": true, "user_id": true},
	Sortable:    map[string]bool{"rating": true, "created_at": true},
	Selectable:  []string{"id", "tour_id", "user_id", "rating", "body", "created_at"},
	DefaultSort: "created_at DESC",
	MaxLimit:    100,
}

type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

// Create inserts a review authored by the authenticated user.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (tour_id, user_id, rating, body) VALUES (?,?,?,?)",
		rv.TourID, rv.UserID, rv.Rating, rv.Body)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Get fetches one review by id.
func (r *ReviewRepo) Get(ctx context.Context, id uint64) (*model.Review, error) {
	var rv model.Review
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE id=? LIMIT 1", id).
		Scan(&rv.ID, &rv.TourID, &rv.UserID, &rv.Rating, &rv.Body, &rv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// Delete removes a review.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// List runs a query-engine spec over reviews. When tourID is non-zero the
// listing is scoped to that tour; the scope comes from the URL path, not
// from client filter parameters.
func (r *ReviewRepo) List(ctx context.Context, sp query.Spec, tourID uint64) ([]Row, error) {
	var (
		sqlText string
		args    []any
	)
	if tourID > 0 {
		where, wargs := sp.WhereSQL("tour_id = ?")
		args = append(args, tourID)
		args = append(args, wargs...)
		sqlText = "SELECT " + strings.Join(sp.Columns(), ", ") + " FROM reviews WHERE " + where +
			" ORDER BY " + sp.OrderSQL() + " LIMIT ? OFFSET ?"
		args = append(args, sp.Limit, sp.Offset())
	} else {
		sqlText, args = sp.SelectSQL("reviews")
	}
	rows, err := r.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}
