package dashboard

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ChristChad-mv/careflow-sub001/internal/domain/alert"
	"github.com/ChristChad-mv/careflow-sub001/internal/domain/patient"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/triage"
)

type fakeAlerts struct {
	alerts []*alert.Alert
	// countCalls and statusCalls track server-side count usage so tests can
	// assert which counting strategy ran.
	countCalls  int
	statusCalls int
	listCalls   int
}

func (f *fakeAlerts) Create(_ context.Context, a *alert.Alert) error { return nil }

func (f *fakeAlerts) GetByID(_ context.Context, id uuid.UUID) (*alert.Alert, error) {
	return nil, apperr.ErrNotFound
}

func (f *fakeAlerts) List(_ context.Context, hospitalID string, filter alert.ListFilter, cap int) ([]*alert.Alert, error) {
	f.listCalls++
	var out []*alert.Alert
	for _, a := range f.alerts {
		if a.HospitalID != hospitalID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
		if len(out) >= cap {
			break
		}
	}
	return out, nil
}

func (f *fakeAlerts) Update(_ context.Context, a *alert.Alert) error { return nil }

func (f *fakeAlerts) CountByPriorities(_ context.Context, hospitalID string, status alert.Status, raws []string, patientIDs []uuid.UUID) (int, error) {
	f.countCalls++
	rawSet := map[string]bool{}
	for _, r := range raws {
		rawSet[r] = true
	}
	idSet := map[uuid.UUID]bool{}
	for _, id := range patientIDs {
		idSet[id] = true
	}
	n := 0
	for _, a := range f.alerts {
		if a.HospitalID != hospitalID || !rawSet[a.Priority] {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		if len(idSet) > 0 && !idSet[a.PatientID] {
			continue
		}
		n++
	}
	return n, nil
}

func (f *fakeAlerts) CountByStatus(_ context.Context, hospitalID string, status alert.Status, patientIDs []uuid.UUID) (int, error) {
	f.statusCalls++
	idSet := map[uuid.UUID]bool{}
	for _, id := range patientIDs {
		idSet[id] = true
	}
	n := 0
	for _, a := range f.alerts {
		if a.HospitalID != hospitalID || a.Status != status {
			continue
		}
		if len(idSet) > 0 && !idSet[a.PatientID] {
			continue
		}
		n++
	}
	return n, nil
}

type fakePatients struct {
	patients []*patient.Patient
}

func (f *fakePatients) Create(_ context.Context, p *patient.Patient) error { return nil }

func (f *fakePatients) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	return nil, apperr.ErrNotFound
}

func (f *fakePatients) List(_ context.Context, hospitalID string, filter patient.ListFilter, _, _ int) ([]*patient.Patient, int, error) {
	n := 0
	for _, p := range f.patients {
		if p.HospitalID != hospitalID {
			continue
		}
		if filter.AssignedNurseEmail != "" && p.AssignedNurseEmail != filter.AssignedNurseEmail {
			continue
		}
		n++
	}
	return nil, n, nil
}

func (f *fakePatients) Update(_ context.Context, p *patient.Patient) error { return nil }

func (f *fakePatients) IDsByNurse(_ context.Context, hospitalID, nurseEmail string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, p := range f.patients {
		if p.HospitalID == hospitalID && p.AssignedNurseEmail == nurseEmail {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (f *fakePatients) AddInteraction(_ context.Context, i *patient.Interaction) error { return nil }

func (f *fakePatients) ListInteractions(_ context.Context, _ uuid.UUID, _, _ int) ([]*patient.Interaction, int, error) {
	return nil, 0, nil
}

func ctxFor(role auth.Role, hospital, email string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		UserID: "u-1", Email: email, Role: role, HospitalID: hospital,
	})
}

func seed(hospital, nurse string, nPatients int, priorities []string) (*fakePatients, *fakeAlerts) {
	fp := &fakePatients{}
	fa := &fakeAlerts{}
	var ids []uuid.UUID
	for i := 0; i < nPatients; i++ {
		p := &patient.Patient{ID: uuid.New(), HospitalID: hospital, AssignedNurseEmail: nurse}
		fp.patients = append(fp.patients, p)
		ids = append(ids, p.ID)
	}
	for i, prio := range priorities {
		fa.alerts = append(fa.alerts, &alert.Alert{
			ID:         uuid.New(),
			HospitalID: hospital,
			PatientID:  ids[i%len(ids)],
			Priority:   prio,
			Status:     alert.StatusActive,
		})
	}
	return fp, fa
}

func TestStatsCountsByLevel(t *testing.T) {
	fp, fa := seed("hosp-1", "nurse@h1", 3, []string{"RED", "CRITICAL", "YELLOW", "GREEN", "PURPLE"})
	// Alerts past the active stage count in the status breakdown but stay out
	// of the level split.
	fa.alerts = append(fa.alerts,
		&alert.Alert{ID: uuid.New(), HospitalID: "hosp-1", PatientID: fp.patients[0].ID,
			Priority: "RED", Status: alert.StatusInProgress},
		&alert.Alert{ID: uuid.New(), HospitalID: "hosp-1", PatientID: fp.patients[1].ID,
			Priority: "RED", Status: alert.StatusResolved},
	)
	svc := NewService(fa, fp)

	stats, err := svc.Stats(ctxFor(auth.RoleCoordinator, "hosp-1", "c@h1"))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Patients != 3 {
		t.Fatalf("patients = %d, want 3", stats.Patients)
	}
	if stats.Critical != 2 || stats.Warning != 1 {
		t.Fatalf("critical/warning = %d/%d, want 2/1", stats.Critical, stats.Warning)
	}
	// GREEN counts server-side via the raw safe set; PURPLE is outside
	// every raw set and is invisible to store counts. The list view still
	// shows it as safe, which is the accepted skew for unknown vocabulary.
	if stats.Safe != 1 {
		t.Fatalf("safe = %d, want 1", stats.Safe)
	}
	want := StatusBreakdown{Active: 5, InProgress: 1, Resolved: 1}
	if stats.ByStatus != want {
		t.Fatalf("by_status = %+v, want %+v", stats.ByStatus, want)
	}
	if stats.ActiveAlerts != stats.ByStatus.Active {
		t.Fatalf("active_alerts = %d, want to equal the active status count %d",
			stats.ActiveAlerts, stats.ByStatus.Active)
	}
	if fa.countCalls != 3 {
		t.Fatalf("store count queries = %d, want one per level", fa.countCalls)
	}
	if fa.statusCalls != 3 {
		t.Fatalf("store status queries = %d, want one per status", fa.statusCalls)
	}
}

func TestStatsNurseScopedToAssignment(t *testing.T) {
	fp, fa := seed("hosp-1", "nurse@h1", 2, []string{"RED", "YELLOW"})
	// A colleague's patient with a critical alert must not leak into the
	// nurse's numbers.
	other := &patient.Patient{ID: uuid.New(), HospitalID: "hosp-1", AssignedNurseEmail: "other@h1"}
	fp.patients = append(fp.patients, other)
	fa.alerts = append(fa.alerts, &alert.Alert{
		ID: uuid.New(), HospitalID: "hosp-1", PatientID: other.ID,
		Priority: "RED", Status: alert.StatusActive,
	})

	svc := NewService(fa, fp)
	stats, err := svc.Stats(ctxFor(auth.RoleNurse, "hosp-1", "nurse@h1"))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Patients != 2 {
		t.Fatalf("patients = %d, want 2", stats.Patients)
	}
	if stats.Critical != 1 || stats.Warning != 1 {
		t.Fatalf("critical/warning = %d/%d, want 1/1", stats.Critical, stats.Warning)
	}
}

func TestStatsLargeAssignmentCountsInMemory(t *testing.T) {
	n := alert.MaxPatientFilterValues + 5
	prios := make([]string, n)
	for i := range prios {
		prios[i] = "RED"
	}
	fp, fa := seed("hosp-1", "nurse@h1", n, prios)
	fa.alerts = append(fa.alerts, &alert.Alert{
		ID: uuid.New(), HospitalID: "hosp-1", PatientID: fp.patients[0].ID,
		Priority: "RED", Status: alert.StatusResolved,
	})

	svc := NewService(fa, fp)
	stats, err := svc.Stats(ctxFor(auth.RoleNurse, "hosp-1", "nurse@h1"))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Critical != n {
		t.Fatalf("critical = %d, want %d", stats.Critical, n)
	}
	want := StatusBreakdown{Active: n, Resolved: 1}
	if stats.ByStatus != want {
		t.Fatalf("by_status = %+v, want %+v", stats.ByStatus, want)
	}
	if fa.countCalls != 0 || fa.statusCalls != 0 {
		t.Fatal("large assignment must not use store-side filtered counts")
	}
	if fa.listCalls != 1 {
		t.Fatalf("broad list calls = %d, want 1", fa.listCalls)
	}
}

func TestStatsNurseWithoutPatientsIsZero(t *testing.T) {
	fp, fa := seed("hosp-1", "other@h1", 1, []string{"RED"})
	svc := NewService(fa, fp)

	stats, err := svc.Stats(ctxFor(auth.RoleNurse, "hosp-1", "nurse@h1"))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Patients != 0 || stats.ActiveAlerts != 0 {
		t.Fatalf("stats = %+v, want all zero", stats)
	}
}

func TestStatsAnonymousIsZero(t *testing.T) {
	fp, fa := seed("hosp-1", "nurse@h1", 1, []string{"RED"})
	svc := NewService(fa, fp)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if *stats != (Stats{}) {
		t.Fatalf("stats = %+v, want zero value", stats)
	}
}

func TestRawSetsMatchNormalizeForKnownVocabulary(t *testing.T) {
	for _, level := range []triage.Level{triage.Critical, triage.Warning, triage.Safe} {
		for _, raw := range triage.RawValues(level) {
			if triage.Normalize(raw) != level {
				t.Fatalf("raw %q counted as %s but normalizes to %s", raw, level, triage.Normalize(raw))
			}
		}
	}
}
