package alert

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ChristChad-mv/careflow-sub001/internal/domain/audit"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/apperr"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
	"github.com/ChristChad-mv/careflow-sub001/internal/platform/triage"
)

type fakeRepo struct {
	alerts map[uuid.UUID]*Alert
	// lastFilter records how List was called so tests can assert which
	// query strategy the service picked.
	lastFilter ListFilter
	lastCap    int
}

func newFakeRepo(alerts ...*Alert) *fakeRepo {
	f := &fakeRepo{alerts: map[uuid.UUID]*Alert{}}
	for _, a := range alerts {
		f.alerts[a.ID] = a
	}
	return f
}

func (f *fakeRepo) Create(_ context.Context, a *Alert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	f.alerts[a.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Alert, error) {
	a, ok := f.alerts[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *a
	return cp.derive(), nil
}

func (f *fakeRepo) List(_ context.Context, hospitalID string, filter ListFilter, cap int) ([]*Alert, error) {
	if len(filter.PatientIDs) > MaxPatientFilterValues {
		return nil, fmt.Errorf("patient filter carries %d values, limit is %d", len(filter.PatientIDs), MaxPatientFilterValues)
	}
	f.lastFilter = filter
	f.lastCap = cap

	idSet := map[uuid.UUID]bool{}
	for _, id := range filter.PatientIDs {
		idSet[id] = true
	}

	var out []*Alert
	for _, a := range f.alerts {
		if a.HospitalID != hospitalID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Level != "" && triage.Normalize(a.Priority) != filter.Level {
			continue
		}
		if len(idSet) > 0 && !idSet[a.PatientID] {
			continue
		}
		cp := *a
		out = append(out, cp.derive())
		if len(out) >= cap {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, a *Alert) error {
	if _, ok := f.alerts[a.ID]; !ok {
		return apperr.ErrNotFound
	}
	cp := *a
	f.alerts[a.ID] = &cp
	return nil
}

func (f *fakeRepo) CountByPriorities(_ context.Context, hospitalID string, status Status, raws []string, patientIDs []uuid.UUID) (int, error) {
	rawSet := map[string]bool{}
	for _, r := range raws {
		rawSet[r] = true
	}
	idSet := map[uuid.UUID]bool{}
	for _, id := range patientIDs {
		idSet[id] = true
	}
	count := 0
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
		count++
	}
	return count, nil
}

func (f *fakeRepo) CountByStatus(_ context.Context, hospitalID string, status Status, patientIDs []uuid.UUID) (int, error) {
	idSet := map[uuid.UUID]bool{}
	for _, id := range patientIDs {
		idSet[id] = true
	}
	count := 0
	for _, a := range f.alerts {
		if a.HospitalID != hospitalID || a.Status != status {
			continue
		}
		if len(idSet) > 0 && !idSet[a.PatientID] {
			continue
		}
		count++
	}
	return count, nil
}

type fakeDirectory struct {
	refs map[uuid.UUID]PatientRef
}

func (f *fakeDirectory) IDsByNurse(_ context.Context, hospitalID, nurseEmail string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, ref := range f.refs {
		if ref.HospitalID == hospitalID && ref.NurseEmail == nurseEmail {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeDirectory) Lookup(_ context.Context, patientID uuid.UUID) (PatientRef, error) {
	ref, ok := f.refs[patientID]
	if !ok {
		return PatientRef{}, apperr.ErrNotFound
	}
	return ref, nil
}

type nopAuditor struct{ entries []audit.Entry }

func (n *nopAuditor) Record(_ context.Context, e audit.Entry) { n.entries = append(n.entries, e) }

func ctxFor(role auth.Role, hospital, email string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		UserID: "u-1", Email: email, Role: role, HospitalID: hospital,
	})
}

func alertAt(hospital string, patient uuid.UUID, priority string, age time.Duration) *Alert {
	return &Alert{
		ID:         uuid.New(),
		HospitalID: hospital,
		PatientID:  patient,
		Trigger:    "vitals out of range",
		Brief:      "b",
		Priority:   priority,
		Status:     StatusActive,
		CreatedAt:  time.Now().Add(-age),
	}
}

func TestListOrdersByUrgencyThenRecency(t *testing.T) {
	p := uuid.New()
	oldCritical := alertAt("hosp-1", p, "RED", 3*time.Hour)
	newCritical := alertAt("hosp-1", p, "CRITICAL", time.Hour)
	warning := alertAt("hosp-1", p, "YELLOW", time.Minute)
	unknown := alertAt("hosp-1", p, "PURPLE", time.Second)

	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{p: {HospitalID: "hosp-1", NurseEmail: "n@h1"}}}
	svc := NewService(newFakeRepo(oldCritical, newCritical, warning, unknown), dir, &nopAuditor{})

	alerts, total, err := svc.List(ctxFor(auth.RoleCoordinator, "hosp-1", "c@h1"), ListFilter{}, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Fatalf("total = %d, want 4", total)
	}
	wantOrder := []uuid.UUID{newCritical.ID, oldCritical.ID, warning.ID, unknown.ID}
	for i, want := range wantOrder {
		if alerts[i].ID != want {
			t.Fatalf("position %d = %s (%s), want %s", i, alerts[i].ID, alerts[i].Priority, want)
		}
	}
	// Unknown vocabulary is served as safe, never dropped.
	if alerts[3].Level != triage.Safe {
		t.Fatalf("unknown priority level = %s, want safe", alerts[3].Level)
	}
}

func TestListNurseSmallAssignmentUsesStoreFilter(t *testing.T) {
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{}}
	repo := newFakeRepo()
	var mine []uuid.UUID
	for i := 0; i < 3; i++ {
		p := uuid.New()
		dir.refs[p] = PatientRef{HospitalID: "hosp-1", NurseEmail: "nurse@h1"}
		mine = append(mine, p)
		repo.Create(context.Background(), alertAt("hosp-1", p, "RED", time.Minute))
	}
	other := uuid.New()
	dir.refs[other] = PatientRef{HospitalID: "hosp-1", NurseEmail: "other@h1"}
	repo.Create(context.Background(), alertAt("hosp-1", other, "RED", time.Minute))

	svc := NewService(repo, dir, &nopAuditor{})
	alerts, total, err := svc.List(ctxFor(auth.RoleNurse, "hosp-1", "nurse@h1"), ListFilter{}, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(alerts) != 3 {
		t.Fatalf("nurse sees %d alerts, want 3", len(alerts))
	}
	if len(repo.lastFilter.PatientIDs) != len(mine) {
		t.Fatalf("store filter carried %d patient IDs, want %d", len(repo.lastFilter.PatientIDs), len(mine))
	}
	if repo.lastCap != FetchCap {
		t.Fatalf("fetch cap = %d, want %d", repo.lastCap, FetchCap)
	}
}

func TestListNurseLargeAssignmentNarrowsInMemory(t *testing.T) {
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{}}
	repo := newFakeRepo()
	for i := 0; i < MaxPatientFilterValues+5; i++ {
		p := uuid.New()
		dir.refs[p] = PatientRef{HospitalID: "hosp-1", NurseEmail: "nurse@h1"}
		repo.Create(context.Background(), alertAt("hosp-1", p, "YELLOW", time.Minute))
	}
	stranger := uuid.New()
	dir.refs[stranger] = PatientRef{HospitalID: "hosp-1", NurseEmail: "other@h1"}
	repo.Create(context.Background(), alertAt("hosp-1", stranger, "RED", time.Second))

	svc := NewService(repo, dir, &nopAuditor{})
	alerts, total, err := svc.List(ctxFor(auth.RoleNurse, "hosp-1", "nurse@h1"), ListFilter{}, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != MaxPatientFilterValues+5 {
		t.Fatalf("total = %d, want %d", total, MaxPatientFilterValues+5)
	}
	// The broad fetch must not carry a patient filter the store would reject.
	if len(repo.lastFilter.PatientIDs) != 0 {
		t.Fatalf("broad fetch carried %d patient IDs, want 0", len(repo.lastFilter.PatientIDs))
	}
	for _, a := range alerts {
		if a.PatientID == stranger {
			t.Fatal("in-memory narrowing leaked another nurse's alert")
		}
	}
}

func TestListNurseWithNoPatientsIsEmpty(t *testing.T) {
	p := uuid.New()
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{p: {HospitalID: "hosp-1", NurseEmail: "other@h1"}}}
	svc := NewService(newFakeRepo(alertAt("hosp-1", p, "RED", time.Minute)), dir, &nopAuditor{})

	alerts, total, err := svc.List(ctxFor(auth.RoleNurse, "hosp-1", "nurse@h1"), ListFilter{}, 50, 0)
	if err != nil || total != 0 || len(alerts) != 0 {
		t.Fatalf("list = (%d, %d, %v), want empty", len(alerts), total, err)
	}
}

func TestListAnonymousIsEmpty(t *testing.T) {
	p := uuid.New()
	svc := NewService(newFakeRepo(alertAt("hosp-1", p, "RED", time.Minute)),
		&fakeDirectory{refs: map[uuid.UUID]PatientRef{}}, &nopAuditor{})

	alerts, total, err := svc.List(context.Background(), ListFilter{}, 50, 0)
	if err != nil || total != 0 || len(alerts) != 0 {
		t.Fatalf("anonymous list = (%d, %d, %v), want empty", len(alerts), total, err)
	}
}

func TestListForPatientReturnsTriageOrder(t *testing.T) {
	p, sibling := uuid.New(), uuid.New()
	warning := alertAt("hosp-1", p, "YELLOW", time.Minute)
	critical := alertAt("hosp-1", p, "RED", time.Hour)
	elsewhere := alertAt("hosp-1", sibling, "RED", time.Second)

	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{
		p:       {HospitalID: "hosp-1", NurseEmail: "nurse@h1"},
		sibling: {HospitalID: "hosp-1", NurseEmail: "nurse@h1"},
	}}
	svc := NewService(newFakeRepo(warning, critical, elsewhere), dir, &nopAuditor{})

	alerts, total, err := svc.ListForPatient(ctxFor(auth.RoleNurse, "hosp-1", "nurse@h1"), p, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(alerts) != 2 {
		t.Fatalf("per-patient list = %d alerts, want 2", len(alerts))
	}
	if alerts[0].ID != critical.ID || alerts[1].ID != warning.ID {
		t.Fatalf("order = [%s %s], want critical before warning", alerts[0].Priority, alerts[1].Priority)
	}
	for _, a := range alerts {
		if a.PatientID != p {
			t.Fatal("leaked a sibling patient's alert")
		}
	}
}

func TestListForPatientForeignPatientIsEmpty(t *testing.T) {
	p := uuid.New()
	a := alertAt("hosp-2", p, "RED", time.Minute)
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{p: {HospitalID: "hosp-2", NurseEmail: "n@h2"}}}
	repo := newFakeRepo(a)
	svc := NewService(repo, dir, &nopAuditor{})

	// Cross-tenant and absent parents read identically: an empty page, and
	// the alert collection is never queried.
	for _, id := range []uuid.UUID{p, uuid.New()} {
		alerts, total, err := svc.ListForPatient(ctxFor(auth.RoleAdmin, "hosp-1", "a@h1"), id, 50, 0)
		if err != nil || total != 0 || len(alerts) != 0 {
			t.Fatalf("list for %s = (%d, %d, %v), want empty", id, len(alerts), total, err)
		}
	}
	if repo.lastCap != 0 {
		t.Fatal("subcollection was queried despite a failed parent check")
	}
}

func TestListForPatientUnassignedNurseIsEmpty(t *testing.T) {
	p := uuid.New()
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{p: {HospitalID: "hosp-1", NurseEmail: "other@h1"}}}
	svc := NewService(newFakeRepo(alertAt("hosp-1", p, "RED", time.Minute)), dir, &nopAuditor{})

	alerts, total, err := svc.ListForPatient(ctxFor(auth.RoleNurse, "hosp-1", "nurse@h1"), p, 50, 0)
	if err != nil || total != 0 || len(alerts) != 0 {
		t.Fatalf("list = (%d, %d, %v), want empty", len(alerts), total, err)
	}
}

func TestGetCrossTenantIsNotFound(t *testing.T) {
	p := uuid.New()
	a := alertAt("hosp-2", p, "RED", time.Minute)
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{p: {HospitalID: "hosp-2", NurseEmail: "n@h2"}}}
	svc := NewService(newFakeRepo(a), dir, &nopAuditor{})

	_, err := svc.Get(ctxFor(auth.RoleAdmin, "hosp-1", "a@h1"), a.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateRejectsForeignPatientAsNotFound(t *testing.T) {
	p := uuid.New()
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{p: {HospitalID: "hosp-2", NurseEmail: "n@h2"}}}
	svc := NewService(newFakeRepo(), dir, &nopAuditor{})

	_, err := svc.Create(ctxFor(auth.RoleCoordinator, "hosp-1", "c@h1"), CreateRequest{
		PatientID: p, Trigger: "vitals", Brief: "b", Priority: "RED",
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateDenormalizesPatientName(t *testing.T) {
	p := uuid.New()
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{
		p: {HospitalID: "hosp-1", Name: "Jordan Park", NurseEmail: "n@h1"},
	}}
	svc := NewService(newFakeRepo(), dir, &nopAuditor{})

	a, err := svc.Create(ctxFor(auth.RoleCoordinator, "hosp-1", "c@h1"), CreateRequest{
		PatientID: p, Trigger: "vitals", Brief: "b", Priority: "RED",
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.PatientName != "Jordan Park" {
		t.Fatalf("patient name = %q, want copied from the patient record", a.PatientName)
	}
}

func TestCreateAcceptsUnknownPriority(t *testing.T) {
	p := uuid.New()
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{p: {HospitalID: "hosp-1", NurseEmail: "n@h1"}}}
	auditor := &nopAuditor{}
	svc := NewService(newFakeRepo(), dir, auditor)

	a, err := svc.Create(ctxFor(auth.RoleCoordinator, "hosp-1", "c@h1"), CreateRequest{
		PatientID: p, Trigger: "vitals", Brief: "b", Priority: "ULTRAVIOLET",
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.Priority != "ULTRAVIOLET" {
		t.Fatalf("raw priority = %s, want preserved as received", a.Priority)
	}
	if a.Level != triage.Safe {
		t.Fatalf("level = %s, want safe for unknown vocabulary", a.Level)
	}
	if len(auditor.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(auditor.entries))
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	p := uuid.New()
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{p: {HospitalID: "hosp-1", NurseEmail: "nurse@h1"}}}
	ctx := ctxFor(auth.RoleNurse, "hosp-1", "nurse@h1")

	inProgress := StatusInProgress
	resolved := StatusResolved
	active := StatusActive

	t.Run("active moves to in_progress", func(t *testing.T) {
		a := alertAt("hosp-1", p, "RED", time.Minute)
		auditor := &nopAuditor{}
		svc := NewService(newFakeRepo(a), dir, auditor)

		got, err := svc.Update(ctx, a.ID, UpdateRequest{Status: &inProgress})
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != StatusInProgress {
			t.Fatalf("status = %s, want in_progress", got.Status)
		}
		fields := auditor.entries[0].Fields
		if len(fields) != 1 || fields[0] != "status" {
			t.Fatalf("audited fields = %v, want [status]", fields)
		}
	})

	t.Run("resolving records the note", func(t *testing.T) {
		a := alertAt("hosp-1", p, "RED", time.Minute)
		a.Status = StatusInProgress
		auditor := &nopAuditor{}
		svc := NewService(newFakeRepo(a), dir, auditor)

		note := "spoke with patient, vitals back in range"
		got, err := svc.Update(ctx, a.ID, UpdateRequest{Status: &resolved, ResolutionNote: &note})
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != StatusResolved || got.ResolutionNote != note {
			t.Fatalf("alert = %+v, want resolved with note", got)
		}
		fields := auditor.entries[0].Fields
		if len(fields) != 2 {
			t.Fatalf("audited fields = %v, want status and resolution_note", fields)
		}
	})

	t.Run("resolved is terminal", func(t *testing.T) {
		a := alertAt("hosp-1", p, "RED", time.Minute)
		a.Status = StatusResolved
		svc := NewService(newFakeRepo(a), dir, &nopAuditor{})

		_, err := svc.Update(ctx, a.ID, UpdateRequest{Status: &active})
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("err = %v, want validation error", err)
		}
	})

	t.Run("active can resolve directly", func(t *testing.T) {
		a := alertAt("hosp-1", p, "RED", time.Minute)
		svc := NewService(newFakeRepo(a), dir, &nopAuditor{})

		got, err := svc.Update(ctx, a.ID, UpdateRequest{Status: &resolved})
		if err != nil || got.Status != StatusResolved {
			t.Fatalf("update = (%+v, %v), want resolved", got, err)
		}
	})
}

func TestConcurrentUpdatesAreLastWriteWins(t *testing.T) {
	p := uuid.New()
	dir := &fakeDirectory{refs: map[uuid.UUID]PatientRef{p: {HospitalID: "hosp-1", NurseEmail: "nurse@h1"}}}
	a := alertAt("hosp-1", p, "RED", time.Minute)
	auditor := &nopAuditor{}
	repo := newFakeRepo(a)
	svc := NewService(repo, dir, auditor)
	ctx := ctxFor(auth.RoleNurse, "hosp-1", "nurse@h1")

	// Two writers race on the resolution note; there is no version column,
	// so the second write stands and both land in the audit trail.
	n1, n2 := "first", "second"
	if _, err := svc.Update(ctx, a.ID, UpdateRequest{ResolutionNote: &n1}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(ctx, a.ID, UpdateRequest{ResolutionNote: &n2}); err != nil {
		t.Fatal(err)
	}

	got, _ := repo.GetByID(context.Background(), a.ID)
	if got.ResolutionNote != "second" {
		t.Fatalf("resolution note = %s, want the later write", got.ResolutionNote)
	}
	if len(auditor.entries) != 2 {
		t.Fatalf("audit entries = %d, want one per successful write", len(auditor.entries))
	}
}
