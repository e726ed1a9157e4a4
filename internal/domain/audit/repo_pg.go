package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const entryColumns = `id, hospital_id, user_id, user_email, role, client_ip, action, resource, resource_id, fields, request_id, created_at`

func (r *repoPG) Insert(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO audit_logs (
			id, hospital_id, user_id, user_email, role, client_ip, action, resource, resource_id, fields, request_id
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NULLIF($9, ''), $10, NULLIF($11, ''))`,
		e.ID, e.HospitalID, e.UserID, e.UserEmail, e.Role, e.ClientIP, e.Action, e.Resource, e.ResourceID, e.Fields, e.RequestID,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, hospitalID string, f ListFilter, limit, offset int) ([]*Entry, int, error) {
	where := `WHERE hospital_id = $1`
	args := []interface{}{hospitalID}

	add := func(clause string, v interface{}) {
		args = append(args, v)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.Resource != "" {
		add("resource = $%d", f.Resource)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if !f.Until.IsZero() {
		add("created_at <= $%d", f.Until)
	}

	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, `
		SELECT `+entryColumns+` FROM audit_logs `+where+`
		ORDER BY created_at DESC
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var clientIP, resourceID, requestID *string
		if err := rows.Scan(&e.ID, &e.HospitalID, &e.UserID, &e.UserEmail, &e.Role, &clientIP,
			&e.Action, &e.Resource, &resourceID, &e.Fields, &requestID, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if clientIP != nil {
			e.ClientIP = *clientIP
		}
		if resourceID != nil {
			e.ResourceID = *resourceID
		}
		if requestID != nil {
			e.RequestID = *requestID
		}
		entries = append(entries, &e)
	}
	return entries, total, rows.Err()
}
