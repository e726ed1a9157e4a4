package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/db"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/triage"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const alertColumns = `id, hospital_id, patient_id, patient_name, trigger, brief, priority, status,
	resolution_note, call_ref, created_by, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Alert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO alerts (id, hospital_id, patient_id, patient_name, trigger, brief, priority, status, call_ref, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)`,
		a.ID, a.HospitalID, a.PatientID, a.PatientName, a.Trigger, a.Brief, a.Priority, a.Status, a.CallRef, a.CreatedBy,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return scanAlert(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, hospitalID string, f ListFilter, cap int) ([]*Alert, error) {
	if len(f.PatientIDs) > MaxPatientFilterValues {
		return nil, fmt.Errorf("patient filter carries %d values, limit is %d", len(f.PatientIDs), MaxPatientFilterValues)
	}

	where := `WHERE hospital_id = $1`
	args := []interface{}{hospitalID}

	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Level != "" {
		args = append(args, triage.RawValues(f.Level))
		where += fmt.Sprintf(" AND priority = ANY($%d)", len(args))
	}
	if len(f.PatientIDs) > 0 {
		args = append(args, f.PatientIDs)
		where += fmt.Sprintf(" AND patient_id = ANY($%d)", len(args))
	}

	args = append(args, cap)
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+alertColumns+` FROM alerts `+where+`
		ORDER BY created_at DESC
		LIMIT $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, a *Alert) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE alerts SET
			priority = $2, status = $3, resolution_note = $4, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.Priority, a.Status, a.ResolutionNote,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) CountByPriorities(ctx context.Context, hospitalID string, status Status, raws []string, patientIDs []uuid.UUID) (int, error) {
	where := `WHERE hospital_id = $1 AND priority = ANY($2)`
	args := []interface{}{hospitalID, raws}

	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if len(patientIDs) > 0 {
		if len(patientIDs) > MaxPatientFilterValues {
			return 0, fmt.Errorf("patient filter carries %d values, limit is %d", len(patientIDs), MaxPatientFilterValues)
		}
		args = append(args, patientIDs)
		where += fmt.Sprintf(" AND patient_id = ANY($%d)", len(args))
	}

	var count int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM alerts `+where, args...).Scan(&count)
	return count, err
}

func (r *repoPG) CountByStatus(ctx context.Context, hospitalID string, status Status, patientIDs []uuid.UUID) (int, error) {
	where := `WHERE hospital_id = $1 AND status = $2`
	args := []interface{}{hospitalID, status}

	if len(patientIDs) > 0 {
		if len(patientIDs) > MaxPatientFilterValues {
			return 0, fmt.Errorf("patient filter carries %d values, limit is %d", len(patientIDs), MaxPatientFilterValues)
		}
		args = append(args, patientIDs)
		where += fmt.Sprintf(" AND patient_id = ANY($%d)", len(args))
	}

	var count int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM alerts `+where, args...).Scan(&count)
	return count, err
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	var callRef *string
	err := row.Scan(&a.ID, &a.HospitalID, &a.PatientID, &a.PatientName, &a.Trigger, &a.Brief,
		&a.Priority, &a.Status, &a.ResolutionNote, &callRef, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if callRef != nil {
		a.CallRef = *callRef
	}
	return a.derive(), nil
}
