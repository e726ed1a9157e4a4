package staff

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const userColumns = `id, subject, email, name, phone, role, hospital_id, service_account, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO users (id, subject, email, name, phone, role, hospital_id, service_account)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Subject, u.Email, u.Name, u.Phone, u.Role, u.HospitalID, u.ServiceAccount,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetBySubject(ctx context.Context, subject string) (*User, error) {
	return r.scan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE subject = $1`, subject))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *repoPG) GetServiceAccount(ctx context.Context) (*User, error) {
	return r.scan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE service_account ORDER BY created_at LIMIT 1`))
}

func (r *repoPG) ListByHospital(ctx context.Context, hospitalID string, limit, offset int) ([]*User, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE hospital_id = $1 AND NOT service_account`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE hospital_id = $1 AND NOT service_account
		ORDER BY name LIMIT $2 OFFSET $3`, hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE users SET name = $2, phone = $3, updated_at = NOW()
		WHERE id = $1`,
		u.ID, u.Name, u.Phone,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) LinkSubject(ctx context.Context, id uuid.UUID, subject string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE users SET subject = $2, updated_at = NOW() WHERE id = $1 AND subject IS NULL`,
		id, subject)
	return err
}

func (r *repoPG) scan(row pgx.Row) (*User, error) {
	return scanRow(row)
}

func scanRow(row pgx.Row) (*User, error) {
	var u User
	var subject, phone *string
	err := row.Scan(&u.ID, &subject, &u.Email, &u.Name, &phone, &u.Role,
		&u.HospitalID, &u.ServiceAccount, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if subject != nil {
		u.Subject = *subject
	}
	if phone != nil {
		u.Phone = *phone
	}
	return &u, nil
}
