package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

var ErrPoolNotFound = errors.New("pool not found")

type PoolRepository struct {
	db *sql.DB
}

func NewPoolRepository(db *sql.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

func (r *PoolRepository) GetAll(ctx context.Context) ([]*models.ResourcePool, error) {
	query := `
		SELECT id, name, resource_type, min_capacity, max_capacity, status, config, created_at, updated_at, last_scaled_at
		FROM pools
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []*models.ResourcePool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}

	return pools, rows.Err()
}

func (r *PoolRepository) GetByID(ctx context.Context, id string) (*models.ResourcePool, error) {
	query := `
		SELECT id, name, resource_type, min_capacity, max_capacity, status, config, created_at, updated_at, last_scaled_at
		FROM pools
		WHERE id = $1`

	pool, err := scanPool(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrPoolNotFound
	}
	return pool, err
}

func (r *PoolRepository) GetByName(ctx context.Context, name string) (*models.ResourcePool, error) {
	query := `
		SELECT id, name, resource_type, min_capacity, max_capacity, status, config, created_at, updated_at, last_scaled_at
		FROM pools
		WHERE name = $1`

	pool, err := scanPool(r.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, ErrPoolNotFound
	}
	return pool, err
}

func (r *PoolRepository) Create(ctx context.Context, pool *models.ResourcePool) error {
	configJSON, err := pool.ConfigJSON()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pools (id, name, resource_type, min_capacity, max_capacity, status, config)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		pool.ID,
		pool.Name,
		pool.ResourceType,
		pool.MinCapacity,
		pool.MaxCapacity,
		pool.Status,
		configJSON,
	).Scan(&pool.CreatedAt, &pool.UpdatedAt)
}

func (r *PoolRepository) Update(ctx context.Context, pool *models.ResourcePool) error {
	configJSON, err := pool.ConfigJSON()
	if err != nil {
		return err
	}

	query := `
		UPDATE pools
		SET name = $2, resource_type = $3, min_capacity = $4, max_capacity = $5, status = $6, config = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	return r.db.QueryRowContext(ctx, query,
		pool.ID,
		pool.Name,
		pool.ResourceType,
		pool.MinCapacity,
		pool.MaxCapacity,
		pool.Status,
		configJSON,
	).Scan(&pool.UpdatedAt)
}

func (r *PoolRepository) MarkScaled(ctx context.Context, id string) error {
	query := `UPDATE pools SET last_scaled_at = NOW(), updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPoolNotFound
	}
	return nil
}

func (r *PoolRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM pools WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPoolNotFound
	}

	return nil
}

func (r *PoolRepository) GetActiveCount(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM pools WHERE status = 'active'`
	var count int
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPool(row rowScanner) (*models.ResourcePool, error) {
	var pool models.ResourcePool
	var configJSON []byte
	var status string

	err := row.Scan(
		&pool.ID,
		&pool.Name,
		&pool.ResourceType,
		&pool.MinCapacity,
		&pool.MaxCapacity,
		&status,
		&configJSON,
		&pool.CreatedAt,
		&pool.UpdatedAt,
		&pool.LastScaledAt,
	)
	if err != nil {
		return nil, err
	}

	pool.Status = models.PoolStatus(status)
	if len(configJSON) > 0 {
		pool.Config = &models.PoolConfig{}
		json.Unmarshal(configJSON, pool.Config)
	}

	return &pool, nil
}
