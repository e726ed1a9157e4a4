package patient

import (
	"context"
	"errors"
	"fmt"

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

const patientColumns = `id, hospital_id, name, phone, email, address, date_of_birth, diagnosis,
	discharge_plan, next_appointment,
	assigned_nurse_name, assigned_nurse_email, assigned_nurse_phone,
	risk_level, brief, status, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patients (
			id, hospital_id, name, phone, email, address, date_of_birth, diagnosis,
			discharge_plan, next_appointment,
			assigned_nurse_name, assigned_nurse_email, assigned_nurse_phone,
			risk_level, brief, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14, $15, $16, $17)`,
		p.ID, p.HospitalID, p.Name, p.Phone, p.Email, p.Address, p.DateOfBirth, p.Diagnosis,
		p.DischargePlan, p.NextAppointment,
		p.AssignedNurseName, p.AssignedNurseEmail, p.AssignedNursePhone,
		p.RiskLevel, p.Brief, p.Status, p.Notes,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, hospitalID string, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	where := `WHERE hospital_id = $1`
	args := []interface{}{hospitalID}

	if f.AssignedNurseEmail != "" {
		args = append(args, f.AssignedNurseEmail)
		where += fmt.Sprintf(" AND assigned_nurse_email = $%d", len(args))
	}
	if f.Diagnosis != "" {
		args = append(args, f.Diagnosis)
		where += fmt.Sprintf(" AND diagnosis = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM patients `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, `
		SELECT `+patientColumns+` FROM patients `+where+`
		ORDER BY name
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patients SET
			name = $2, phone = $3, email = $4, address = $5, date_of_birth = $6,
			diagnosis = $7, discharge_plan = $8, next_appointment = $9,
			assigned_nurse_name = $10, assigned_nurse_email = NULLIF($11, ''),
			assigned_nurse_phone = $12, risk_level = $13, brief = $14,
			status = $15, notes = $16, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Phone, p.Email, p.Address, p.DateOfBirth,
		p.Diagnosis, p.DischargePlan, p.NextAppointment,
		p.AssignedNurseName, p.AssignedNurseEmail,
		p.AssignedNursePhone, p.RiskLevel, p.Brief,
		p.Status, p.Notes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *repoPG) IDsByNurse(ctx context.Context, hospitalID, nurseEmail string) ([]uuid.UUID, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT id FROM patients WHERE hospital_id = $1 AND assigned_nurse_email = $2`,
		hospitalID, nurseEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) AddInteraction(ctx context.Context, i *Interaction) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient_interactions (id, patient_id, hospital_id, author_id, author_email, kind, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		i.ID, i.PatientID, i.HospitalID, i.AuthorID, i.AuthorEmail, i.Kind, i.Note,
	)
	return err
}

func (r *repoPG) ListInteractions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Interaction, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_interactions WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.Query(ctx, `
		SELECT id, patient_id, hospital_id, author_id, author_email, kind, note, created_at
		FROM patient_interactions
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Interaction
	for rows.Next() {
		var i Interaction
		if err := rows.Scan(&i.ID, &i.PatientID, &i.HospitalID, &i.AuthorID,
			&i.AuthorEmail, &i.Kind, &i.Note, &i.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &i)
	}
	return items, total, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var nurseEmail *string
	err := row.Scan(&p.ID, &p.HospitalID, &p.Name, &p.Phone, &p.Email, &p.Address,
		&p.DateOfBirth, &p.Diagnosis, &p.DischargePlan, &p.NextAppointment,
		&p.AssignedNurseName, &nurseEmail, &p.AssignedNursePhone,
		&p.RiskLevel, &p.Brief, &p.Status, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if nurseEmail != nil {
		p.AssignedNurseEmail = *nurseEmail
	}
	return p.derive(), nil
}
