package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

// FieldRepository handles data access for fields and their parcels.
type FieldRepository struct {
	pool *pgxpool.Pool
}

// NewFieldRepository creates a new field repository.
func NewFieldRepository(pool *pgxpool.Pool) *FieldRepository {
	return &FieldRepository{pool: pool}
}

// CreateField inserts a new field.
func (r *FieldRepository) CreateField(ctx context.Context, f *models.Field) error {
	query := `
		INSERT INTO fields (id, user_id, name, locality, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, f.ID, f.UserID, f.Name, f.Locality, f.CreatedAt)
	return err
}

// GetField retrieves a field by ID. Returns (nil, nil) when not found.
func (r *FieldRepository) GetField(ctx context.Context, id uuid.UUID) (*models.Field, error) {
	query := `
		SELECT id, user_id, name, locality, created_at
		FROM fields
		WHERE id = $1
	`

	var f models.Field
	err := r.pool.QueryRow(ctx, query, id).Scan(&f.ID, &f.UserID, &f.Name, &f.Locality, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// ListFieldsByUser retrieves all fields owned by a user, newest first.
func (r *FieldRepository) ListFieldsByUser(ctx context.Context, userID uuid.UUID) ([]models.Field, error) {
	query := `
		SELECT id, user_id, name, locality, created_at
		FROM fields
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []models.Field
	for rows.Next() {
		var f models.Field
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.Locality, &f.CreatedAt); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return fields, nil
}

// CreateParcel inserts a new parcel under a field.
func (r *FieldRepository) CreateParcel(ctx context.Context, p *models.Parcel) error {
	query := `
		INSERT INTO parcels (id, field_id, name, area_hectares, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, p.ID, p.FieldID, p.Name, p.AreaHectares, p.CreatedAt)
	return err
}

// GetParcel retrieves a parcel by ID. Returns (nil, nil) when not found.
func (r *FieldRepository) GetParcel(ctx context.Context, id uuid.UUID) (*models.Parcel, error) {
	query := `
		SELECT id, field_id, name, area_hectares, created_at
		FROM parcels
		WHERE id = $1
	`

	var p models.Parcel
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.FieldID, &p.Name, &p.AreaHectares, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListParcelsByField retrieves a field's parcels in creation order.
func (r *FieldRepository) ListParcelsByField(ctx context.Context, fieldID uuid.UUID) ([]models.Parcel, error) {
	query := `
		SELECT id, field_id, name, area_hectares, created_at
		FROM parcels
		WHERE field_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, fieldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parcels []models.Parcel
	for rows.Next() {
		var p models.Parcel
		if err := rows.Scan(&p.ID, &p.FieldID, &p.Name, &p.AreaHectares, &p.CreatedAt); err != nil {
			return nil, err
		}
		parcels = append(parcels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return parcels, nil
}

// ParcelOwner returns the user ID owning the field a parcel belongs to.
// Returns uuid.Nil when the parcel does not exist.
func (r *FieldRepository) ParcelOwner(ctx context.Context, parcelID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT f.user_id
		FROM parcels p
		JOIN fields f ON f.id = p.field_id
		WHERE p.id = $1
	`

	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, query, parcelID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return owner, nil
}
