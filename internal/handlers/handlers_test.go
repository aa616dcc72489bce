package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/identity"
	"gasdash-backend/internal/models"
	"gasdash-backend/internal/workspace"
)

const testSecret = "handlers-test-secret"

type fakeProvider struct {
	*identity.Broadcaster
	uids map[string]string
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*identity.Identity, error) {
	uid, ok := f.uids[email]
	if !ok || password != "secret" {
		return nil, identity.ErrInvalidCredentials
	}
	id := &identity.Identity{UID: uid, Email: email, ExpiresAt: time.Now().Add(time.Hour)}
	f.Track(id)
	return id, nil
}

func (f *fakeProvider) Register(ctx context.Context, email, password, displayName string) (*identity.Identity, error) {
	if _, ok := f.uids[email]; ok {
		return nil, identity.ErrEmailExists
	}
	f.uids[email] = "cust-" + displayName
	return f.SignIn(ctx, email, password)
}

func (f *fakeProvider) SignOut(ctx context.Context, id *identity.Identity) error {
	f.SignedOut(id)
	return nil
}

func (f *fakeProvider) Revoke(ctx context.Context, uid string) error {
	f.RevokeLocal(uid)
	return nil
}

type testServer struct {
	*httptest.Server
	reg   *workspace.Registry
	store *docstore.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()
	provider := &fakeProvider{Broadcaster: identity.NewBroadcaster(), uids: map[string]string{
		"admin@example.com":   "admin-1",
		"manager@example.com": "manager-1",
		"driver@example.com":  "driver-1",
	}}
	profiles := map[string]models.User{
		"admin-1":   {Name: "Ama", Email: "admin@example.com", Role: models.RoleAdmin, Status: models.UserStatusActive},
		"manager-1": {Name: "Esi", Email: "manager@example.com", Role: models.RoleManager, Status: models.UserStatusActive},
		"driver-1":  {Name: "Kojo", Email: "driver@example.com", Role: models.RoleDriver, Status: models.UserStatusActive},
	}
	for uid, u := range profiles {
		u.Stamp(time.Now())
		if err := store.Set(ctx, models.UsersCollection, uid, &u); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	driver := models.Driver{UserID: "driver-1", Name: "Kojo", Phone: "+233200000000", Status: models.DriverStatusAvailable}
	driver.Stamp(time.Now())
	if err := store.Set(ctx, models.DriversCollection, "drv-1", &driver); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reg := workspace.NewRegistry(workspace.Deps{Store: store, Provider: provider})
	t.Cleanup(reg.Close)
	srv := httptest.NewServer(NewRouter(RouterConfig{
		Registry:       reg,
		Provider:       provider,
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, reg: reg, store: store}
}

// do sends a JSON request and decodes a JSON response into out when given
func (s *testServer) do(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	var resp LoginResponse
	if code := s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: "secret"}, &resp); code != http.StatusOK {
		t.Fatalf("login %s: status %d (%s)", email, code, resp.Error)
	}
	return resp.Token
}

func TestLoginAndLogout(t *testing.T) {
	s := newTestServer(t)

	var failed LoginResponse
	if code := s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "admin@example.com", Password: "nope"}, &failed); code != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", code)
	}
	if failed.OK || s.reg.Len() != 0 {
		t.Fatalf("failed login must not leave a workspace: %+v, %d", failed, s.reg.Len())
	}

	token := s.login(t, "admin@example.com")
	var state struct {
		User *models.User `json:"user"`
	}
	if code := s.do(t, http.MethodGet, "/api/auth/status", token, nil, &state); code != http.StatusOK {
		t.Fatalf("status: %d", code)
	}
	if state.User == nil || state.User.ID != "admin-1" {
		t.Fatalf("unexpected principal: %+v", state.User)
	}

	if code := s.do(t, http.MethodPost, "/api/auth/logout", token, nil, nil); code != http.StatusOK {
		t.Fatalf("logout: %d", code)
	}
	if code := s.do(t, http.MethodGet, "/api/auth/status", token, nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("status after logout: %d, want 401", code)
	}
}

func TestRegisterCreatesCustomer(t *testing.T) {
	s := newTestServer(t)

	var resp LoginResponse
	code := s.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: "Efua@Example.com", Password: "secret", Name: "efua"}, &resp)
	if code != http.StatusCreated {
		t.Fatalf("register: %d (%s)", code, resp.Error)
	}
	if resp.User.Role != models.RoleCustomer || resp.User.Email != "efua@example.com" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}

	code = s.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: "admin@example.com", Password: "secret", Name: "x"}, &resp)
	if code != http.StatusConflict {
		t.Fatalf("duplicate register: %d, want 409", code)
	}
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	driver := s.login(t, "driver@example.com")

	for _, path := range []string{"/api/users", "/api/drivers", "/api/customers", "/api/analytics", "/api/reports"} {
		if code := s.do(t, http.MethodGet, path, driver, nil, nil); code != http.StatusForbidden {
			t.Errorf("driver GET %s: %d, want 403", path, code)
		}
	}
	if code := s.do(t, http.MethodGet, "/api/deliveries", driver, nil, nil); code != http.StatusOK {
		t.Fatalf("driver GET deliveries: %d", code)
	}
}

func TestCustomerCRUDAndSearch(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@example.com")

	for _, c := range []models.Customer{
		{Name: "Adwoa Gas", Email: "adwoa@example.com", Phone: "0244"},
		{Name: "Kwesi Oil", Email: "kwesi@example.com", Phone: "0500"},
	} {
		var created models.Customer
		if code := s.do(t, http.MethodPost, "/api/customers", admin, c, &created); code != http.StatusCreated {
			t.Fatalf("create: %d", code)
		}
		if created.ID == "" {
			t.Fatal("expected store-assigned id")
		}
	}

	var found struct {
		Data []models.Customer `json:"data"`
	}
	s.do(t, http.MethodGet, "/api/customers?search=GAS", admin, nil, &found)
	if len(found.Data) != 1 || found.Data[0].Name != "Adwoa Gas" {
		t.Fatalf("search: %+v", found.Data)
	}

	id := found.Data[0].ID
	var patched models.Customer
	if code := s.do(t, http.MethodPatch, "/api/customers/"+id, admin, map[string]string{"phone": "0277"}, &patched); code != http.StatusOK {
		t.Fatalf("patch: %d", code)
	}
	if patched.Phone != "0277" || patched.Name != "Adwoa Gas" {
		t.Fatalf("patch changed the wrong fields: %+v", patched)
	}

	if code := s.do(t, http.MethodDelete, "/api/customers/"+id, admin, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete: %d", code)
	}
	if code := s.do(t, http.MethodDelete, "/api/customers/"+id, admin, nil, nil); code != http.StatusNotFound {
		t.Fatalf("second delete: %d, want 404", code)
	}

	var page struct {
		Items []models.Customer `json:"items"`
		Total int               `json:"total"`
	}
	if code := s.do(t, http.MethodPost, "/api/customers/view", admin, map[string]string{"search": "kwesi"}, &page); code != http.StatusOK {
		t.Fatalf("view: %d", code)
	}
	if page.Total != 1 || page.Items[0].Name != "Kwesi Oil" {
		t.Fatalf("view page: %+v", page)
	}
}

func TestDeliveryLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@example.com")
	driver := s.login(t, "driver@example.com")

	var created models.Delivery
	body := models.Delivery{CustomerName: "Adwoa", DeliveryAddress: "1 Ring Rd", TotalAmount: 150,
		Products: []models.LineItem{{Name: "12kg refill", Quantity: 1, Price: 150}}}
	if code := s.do(t, http.MethodPost, "/api/deliveries", admin, body, &created); code != http.StatusCreated {
		t.Fatalf("create: %d", code)
	}
	if created.Status != models.DeliveryStatusPending || created.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("defaults not applied: %+v", created)
	}

	if code := s.do(t, http.MethodPatch, "/api/deliveries/"+created.ID+"/status", admin, UpdateStatusRequest{Status: "completed"}, nil); code != http.StatusConflict {
		t.Fatalf("pending → completed: %d, want 409", code)
	}

	if code := s.do(t, http.MethodPatch, "/api/deliveries/"+created.ID, admin, map[string]string{"status": "completed"}, nil); code != http.StatusConflict {
		t.Fatalf("patch pending → completed: %d, want 409", code)
	}

	var assigned models.Delivery
	if code := s.do(t, http.MethodPatch, "/api/deliveries/"+created.ID+"/driver", admin, AssignDriverRequest{DriverID: "drv-1"}, &assigned); code != http.StatusOK {
		t.Fatalf("assign: %d", code)
	}
	if assigned.DriverID != "driver-1" || assigned.DriverName != "Kojo" {
		t.Fatalf("assign: %+v", assigned)
	}

	// The driver's cache is scoped to their deliveries
	var mine struct {
		Data []models.Delivery `json:"data"`
	}
	s.do(t, http.MethodPost, "/api/deliveries/refresh", driver, nil, &mine)
	if len(mine.Data) != 1 || mine.Data[0].ID != created.ID {
		t.Fatalf("driver deliveries: %+v", mine.Data)
	}

	for _, status := range []string{"in-progress", "completed"} {
		if code := s.do(t, http.MethodPatch, "/api/deliveries/"+created.ID+"/status", driver, UpdateStatusRequest{Status: status}, nil); code != http.StatusOK {
			t.Fatalf("driver → %s: %d", status, code)
		}
	}
	snap, err := s.store.Get(context.Background(), models.DeliveriesCollection, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var stored models.Delivery
	snap.DataTo(&stored)
	if stored.Status != models.DeliveryStatusCompleted || stored.CompletedAt == nil {
		t.Fatalf("stored delivery: %+v", stored)
	}
}

func TestNotificationReachesRecipient(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@example.com")
	driver := s.login(t, "driver@example.com")

	note := models.Notification{UserID: "driver-1", Title: "New delivery", Message: "1 Ring Rd"}
	if code := s.do(t, http.MethodPost, "/api/notifications", admin, note, nil); code != http.StatusCreated {
		t.Fatalf("send: %d", code)
	}

	var inbox NotificationsResponse
	s.do(t, http.MethodGet, "/api/notifications", driver, nil, &inbox)
	if len(inbox.Data) != 1 || inbox.UnreadCount != 1 {
		t.Fatalf("driver inbox: %+v", inbox)
	}

	// Drivers may only notify themselves
	note.UserID = "admin-1"
	if code := s.do(t, http.MethodPost, "/api/notifications", driver, note, nil); code != http.StatusForbidden {
		t.Fatalf("driver → admin: %d, want 403", code)
	}

	s.do(t, http.MethodPost, "/api/notifications/read-all", driver, nil, &inbox)
	if inbox.UnreadCount != 0 {
		t.Fatalf("unread after read-all: %d", inbox.UnreadCount)
	}
}

func TestReportsGenerateAndExport(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@example.com")

	var report models.Report
	if code := s.do(t, http.MethodPost, "/api/reports/daily", admin, GenerateReportRequest{Date: "2025-03-14"}, &report); code != http.StatusCreated {
		t.Fatalf("generate: %d", code)
	}
	if report.ID == "" || report.Type != models.ReportDaily {
		t.Fatalf("report: %+v", report)
	}
	if code := s.do(t, http.MethodPost, "/api/reports/yearly", admin, nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown type: %d", code)
	}

	req, _ := http.NewRequest(http.MethodGet, s.URL+"/api/reports/export", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", raw)
	}
}

func TestThemeSettings(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "driver@example.com")

	var theme struct {
		DarkMode         bool `json:"darkMode"`
		SidebarCollapsed bool `json:"sidebarCollapsed"`
	}
	s.do(t, http.MethodPatch, "/api/settings/theme", token, ThemeRequest{Toggle: "darkMode"}, &theme)
	if !theme.DarkMode {
		t.Fatal("expected dark mode on")
	}
	collapsed := true
	s.do(t, http.MethodPatch, "/api/settings/theme", token, ThemeRequest{SidebarCollapsed: &collapsed}, &theme)
	if !theme.DarkMode || !theme.SidebarCollapsed {
		t.Fatalf("theme: %+v", theme)
	}
}

func TestRevokeEndsSessions(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@example.com")
	driver := s.login(t, "driver@example.com")

	if code := s.do(t, http.MethodPost, "/api/users/driver-1/revoke", admin, nil, nil); code != http.StatusOK {
		t.Fatalf("revoke: %d", code)
	}
	if code := s.do(t, http.MethodGet, "/api/deliveries", driver, nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("revoked driver: %d, want 401", code)
	}
}

func TestOnlyAdminsChangeRoles(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@example.com")
	manager := s.login(t, "manager@example.com")

	if code := s.do(t, http.MethodPatch, "/api/users/manager-1/role", manager, UpdateRoleRequest{Role: "admin"}, nil); code != http.StatusForbidden {
		t.Fatalf("manager self-promotion: %d, want 403", code)
	}
	if code := s.do(t, http.MethodPost, "/api/users/driver-1/revoke", manager, nil, nil); code != http.StatusForbidden {
		t.Fatalf("manager revoke: %d, want 403", code)
	}
	// Managers keep the rest of user management
	if code := s.do(t, http.MethodGet, "/api/users", manager, nil, nil); code != http.StatusOK {
		t.Fatalf("manager list users: %d", code)
	}
	if code := s.do(t, http.MethodPatch, "/api/users/driver-1/role", admin, UpdateRoleRequest{Role: "manager"}, nil); code != http.StatusOK {
		t.Fatalf("admin role change: %d", code)
	}
}
