package patient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ChristChad-mv/careflow-sub001/internal/platform/auth"
)

// Tenant keys are never writable through the request body: UpdateRequest has
// no hospital_id field and the binder drops unknown JSON keys, so a payload
// that smuggles one must leave the stored tenant untouched while the
// legitimate fields still apply.
func TestUpdateBodyCannotChangeHospital(t *testing.T) {
	p := &Patient{ID: uuid.New(), HospitalID: "hosp-1", Name: "Old"}
	repo := newFakeRepo(p)
	h := NewHandler(NewService(repo, &recordingAuditor{}))

	body := `{"name":"New","hospital_id":"hosp-666"}`
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/patients/"+p.ID.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{
		UserID: "u-1", Email: "c@h1", Role: auth.RoleCoordinator, HospitalID: "hosp-1",
	}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/patients/:id")
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.Update(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	stored := repo.patients[p.ID]
	if stored.HospitalID != "hosp-1" {
		t.Fatalf("stored hospital = %s, the body must not be able to move a patient across tenants", stored.HospitalID)
	}
	if stored.Name != "New" {
		t.Fatalf("stored name = %s, want the legitimate field applied", stored.Name)
	}
}

// Create reads the tenant from the verified identity; a hospital_id in the
// body is ignored the same way.
func TestCreateBodyCannotChooseHospital(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(NewService(repo, &recordingAuditor{}))

	body := `{"name":"New","hospital_id":"hosp-666"}`
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{
		UserID: "u-1", Email: "c@h1", Role: auth.RoleCoordinator, HospitalID: "hosp-1",
	}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	for _, stored := range repo.patients {
		if stored.HospitalID != "hosp-1" {
			t.Fatalf("stored hospital = %s, want the caller's hosp-1", stored.HospitalID)
		}
	}
}
