package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Elastix/internal/domain"
)

// DatasourceRepo — репозиторий для работы с datasources.
type DatasourceRepo struct {
	pool *pgxpool.Pool
}

// NewDatasourceRepo создаёт новый DatasourceRepo.
func NewDatasourceRepo(pool *pgxpool.Pool) *DatasourceRepo {
	return &DatasourceRepo{pool: pool}
}

// Create создаёт новый datasource.
func (r *DatasourceRepo) Create(ctx context.Context, ds *domain.Datasource) error {
	configJSON, err := json.Marshal(ds.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	query := `
		INSERT INTO datasources (id, name, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query,
		ds.ID,
		ds.Name,
		configJSON,
		ds.CreatedAt,
		ds.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: datasource %q", ErrAlreadyExists, ds.Name)
	}
	if err != nil {
		return fmt.Errorf("insert datasource: %w", err)
	}
	return nil
}

// GetByID возвращает datasource по ID.
func (r *DatasourceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Datasource, error) {
	query := `
		SELECT id, name, config, created_at, updated_at
		FROM datasources
		WHERE id = $1
	`
	return scanDatasource(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает datasource по имени.
func (r *DatasourceRepo) GetByName(ctx context.Context, name string) (*domain.Datasource, error) {
	query := `
		SELECT id, name, config, created_at, updated_at
		FROM datasources
		WHERE name = $1
	`
	return scanDatasource(r.pool.QueryRow(ctx, query, name))
}

// List возвращает все datasources.
func (r *DatasourceRepo) List(ctx context.Context) ([]domain.Datasource, error) {
	query := `
		SELECT id, name, config, created_at, updated_at
		FROM datasources
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list datasources: %w", err)
	}
	defer rows.Close()

	var datasources []domain.Datasource
	for rows.Next() {
		ds, err := scanDatasource(rows)
		if err != nil {
			return nil, err
		}
		datasources = append(datasources, *ds)
	}
	return datasources, rows.Err()
}

// Update обновляет имя и конфигурацию datasource.
func (r *DatasourceRepo) Update(ctx context.Context, ds *domain.Datasource) error {
	configJSON, err := json.Marshal(ds.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	query := `
		UPDATE datasources
		SET name = $2, config = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		ds.ID,
		ds.Name,
		configJSON,
		ds.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: datasource %q", ErrAlreadyExists, ds.Name)
	}
	if err != nil {
		return fmt.Errorf("update datasource: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет datasource вместе с журналом его выполнений.
func (r *DatasourceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM datasources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete datasource: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanDatasource сканирует одну строку в Datasource.
// pgx.Rows реализует pgx.Row, поэтому функция годится и для List.
func scanDatasource(row pgx.Row) (*domain.Datasource, error) {
	var ds domain.Datasource
	var configJSON []byte

	err := row.Scan(
		&ds.ID,
		&ds.Name,
		&configJSON,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan datasource: %w", err)
	}

	if err := json.Unmarshal(configJSON, &ds.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &ds, nil
}
