package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func tenantTestContext(t *testing.T, target string, header map[string]string) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestResolveTenantIDPrecedence(t *testing.T) {
	// Verified JWT claim outranks the header, which outranks the query
	// parameter, which outranks the configured default.
	c := tenantTestContext(t, "/rota/doctors?tenant_id=clinic_query", map[string]string{
		"X-Tenant-ID": "clinic_header",
	})
	c.Set("jwt_tenant_id", "clinic_jwt")

	if got := resolveTenantID(c, "clinic_default"); got != "clinic_jwt" {
		t.Errorf("resolveTenantID = %q, want clinic_jwt", got)
	}

	c.Set("jwt_tenant_id", "")
	if got := resolveTenantID(c, "clinic_default"); got != "clinic_header" {
		t.Errorf("with empty claim, resolveTenantID = %q, want clinic_header", got)
	}
}

func TestResolveTenantIDQueryThenDefault(t *testing.T) {
	c := tenantTestContext(t, "/rota/doctors?tenant_id=clinic_query", nil)
	if got := resolveTenantID(c, "clinic_default"); got != "clinic_query" {
		t.Errorf("resolveTenantID = %q, want clinic_query", got)
	}

	c = tenantTestContext(t, "/rota/doctors", nil)
	if got := resolveTenantID(c, "clinic_default"); got != "clinic_default" {
		t.Errorf("resolveTenantID = %q, want clinic_default", got)
	}
}

func TestTenantIDPattern(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"clinic_north", true},
		{"c1", true},
		{"a", true},
		{"clinic_2024_ortho", true},
		{"Clinic", false},  // schema names stay lowercase
		{"1clinic", false}, // must start with a letter
		{"", false},
		{"clinic-north", false},
		{"clinic.north", false},
		{"clinic north", false},
		{"x'; DROP SCHEMA tenant_x", false},
		{"a" + strings.Repeat("b", 31), false}, // over the length cap
	}
	for _, tt := range tests {
		if got := tenantIDPattern.MatchString(tt.id); got != tt.ok {
			t.Errorf("tenantIDPattern.MatchString(%q) = %v, want %v", tt.id, got, tt.ok)
		}
	}
}

func TestSchemaForTenant(t *testing.T) {
	if got := schemaForTenant("clinic_north"); got != "tenant_clinic_north" {
		t.Errorf("schemaForTenant = %q, want tenant_clinic_north", got)
	}
}

func TestTenantMiddlewareRejectsBadTenant(t *testing.T) {
	c := tenantTestContext(t, "/rota/doctors", map[string]string{
		"X-Tenant-ID": "clinic;north",
	})

	h := TenantMiddleware(nil, "clinic_default")(func(echo.Context) error {
		t.Fatal("handler must not run for an invalid tenant")
		return nil
	})

	err := h(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if he.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", he.Code, http.StatusBadRequest)
	}
}

func TestTenantFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TenantIDKey, "clinic_north")
	if got := TenantFromContext(ctx); got != "clinic_north" {
		t.Errorf("TenantFromContext = %q, want clinic_north", got)
	}
	if got := TenantFromContext(context.Background()); got != "" {
		t.Errorf("TenantFromContext on bare context = %q, want empty", got)
	}
	// A mistyped value reads as absent rather than panicking.
	ctx = context.WithValue(context.Background(), TenantIDKey, 42)
	if got := TenantFromContext(ctx); got != "" {
		t.Errorf("TenantFromContext with wrong type = %q, want empty", got)
	}
}

func TestConnFromContextAbsent(t *testing.T) {
	if ConnFromContext(context.Background()) != nil {
		t.Error("expected nil conn from bare context")
	}
	ctx := context.WithValue(context.Background(), DBConnKey, "not-a-conn")
	if ConnFromContext(ctx) != nil {
		t.Error("expected nil conn when the value has the wrong type")
	}
}

func TestTxFromContextAbsent(t *testing.T) {
	if TxFromContext(context.Background()) != nil {
		t.Error("expected nil tx from bare context")
	}
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	if TxFromContext(ctx) != nil {
		t.Error("expected nil tx when the value has the wrong type")
	}
}

func TestWithTxRequiresTenantConn(t *testing.T) {
	_, _, err := WithTx(context.Background())
	if err == nil {
		t.Fatal("expected error outside a tenant-scoped request")
	}
	if err.Error() != "no database connection in context" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreateTenantSchemaRejectsBadIDs(t *testing.T) {
	for _, id := range []string{"clinic-north", "Clinic", "9lives", "a b", ""} {
		if err := CreateTenantSchema(context.Background(), nil, id, ""); err == nil {
			t.Errorf("expected error for tenant id %q", id)
		}
	}
}
