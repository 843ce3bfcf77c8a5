package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(db base.DBTX) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(db)}
}

const userColumns = `id, institution_id, name, email, role, telegram_id, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		user          model.User
		institutionID *int64
	)
	err := row.Scan(
		&user.ID,
		&institutionID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.TelegramID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if institutionID != nil {
		user.InstitutionID = *institutionID
	}
	return &user, nil
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// Create inserts a user. Platform managers are stored without an institution.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (institution_id, name, email, role, telegram_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query,
		nullableID(user.InstitutionID),
		user.Name,
		user.Email,
		user.Role,
		user.TelegramID,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, telegramID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return user, nil
}

// ListByInstitution returns users of an institution, optionally narrowed to one role.
func (r *UserRepository) ListByInstitution(ctx context.Context, institutionID int64, role model.Role) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE institution_id = $1 AND ($2::text = '' OR role = $2::text)
		ORDER BY name, id
	`

	rows, err := r.Query(ctx, query, institutionID, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) SetTelegramID(ctx context.Context, id int64, telegramID *int64) error {
	affected, err := r.ExecAffected(ctx, `UPDATE users SET telegram_id = $1 WHERE id = $2`, telegramID, id)
	if err != nil {
		return fmt.Errorf("set telegram id: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d not found", id)
	}
	return nil
}

// Delete removes a user; enrollments and the user's attendance rows go with it.
func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return affected > 0, nil
}
