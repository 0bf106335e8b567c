package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

type ForecastRepository struct {
	db *sql.DB
}

func NewForecastRepository(db *sql.DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

func (r *ForecastRepository) GetRecent(ctx context.Context, poolID string, limit int) ([]*models.DemandForecast, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, pool_id, created_at, metric, current_demand, predicted_demand, confidence, horizon_minutes, pattern, recommended_capacity, urgency
		FROM forecasts
		WHERE pool_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, poolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forecasts []*models.DemandForecast
	for rows.Next() {
		fc, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		forecasts = append(forecasts, fc)
	}

	return forecasts, rows.Err()
}

func (r *ForecastRepository) GetSince(ctx context.Context, poolID string, since time.Time) ([]*models.DemandForecast, error) {
	query := `
		SELECT id, pool_id, created_at, metric, current_demand, predicted_demand, confidence, horizon_minutes, pattern, recommended_capacity, urgency
		FROM forecasts
		WHERE pool_id = $1 AND created_at >= $2
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, poolID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forecasts []*models.DemandForecast
	for rows.Next() {
		fc, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		forecasts = append(forecasts, fc)
	}

	return forecasts, rows.Err()
}

func (r *ForecastRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM forecasts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanForecast(rows *sql.Rows) (*models.DemandForecast, error) {
	var fc models.DemandForecast
	var metric, pattern, urgency string

	err := rows.Scan(
		&fc.ForecastID,
		&fc.PoolID,
		&fc.CreatedAt,
		&metric,
		&fc.CurrentDemand,
		&fc.PredictedDemand,
		&fc.Confidence,
		&fc.HorizonMinutes,
		&pattern,
		&fc.RecommendedCapacity,
		&urgency,
	)
	if err != nil {
		return nil, err
	}

	fc.Metric = models.MetricName(metric)
	fc.Pattern = models.DemandPattern(pattern)
	fc.Urgency = models.Urgency(urgency)

	return &fc, nil
}
