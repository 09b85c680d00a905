// ABOUTME: Unit tests for the role authorization gate
// ABOUTME: Verifies the 401 vs 403 distinction and exact role matching

package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthorize(t *testing.T) {
	admin := &Principal{UserID: "a", Roles: []string{RoleAdmin, RoleUser}}
	user := &Principal{UserID: "u", Roles: []string{RoleUser}}

	tests := []struct {
		name      string
		principal *Principal
		role      string
		wantErr   error
	}{
		{name: "nil principal", principal: nil, role: RoleUser, wantErr: ErrUnauthenticated},
		{name: "user has user role", principal: user, role: RoleUser, wantErr: nil},
		{name: "user lacks admin role", principal: user, role: RoleAdmin, wantErr: ErrForbidden},
		{name: "admin has admin role", principal: admin, role: RoleAdmin, wantErr: nil},
		{name: "admin retains user role", principal: admin, role: RoleUser, wantErr: nil},
		{name: "no hierarchy, exact match only", principal: &Principal{Roles: []string{"admin"}}, role: RoleAdmin, wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.principal, tt.role)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Authorize() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Authorize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireRole_StatusCodes(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name      string
		principal *Principal
		wantCode  int
	}{
		{name: "anonymous", principal: nil, wantCode: http.StatusUnauthorized},
		{name: "wrong role", principal: &Principal{Roles: []string{RoleUser}}, wantCode: http.StatusForbidden},
		{name: "right role", principal: &Principal{Roles: []string{RoleAdmin, RoleUser}}, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/keys", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tt.principal))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

// Key principals and token principals with equal roles must be treated
// identically by the gate.
func TestAuthorize_MethodAgnostic(t *testing.T) {
	tokenAdmin := &Principal{Roles: []string{RoleAdmin, RoleUser}, Method: MethodToken}
	keyAdmin := &Principal{Roles: []string{RoleAdmin, RoleUser}, Method: MethodAPIKey}

	if err := Authorize(tokenAdmin, RoleAdmin); err != nil {
		t.Errorf("token admin denied: %v", err)
	}
	if err := Authorize(keyAdmin, RoleAdmin); err != nil {
		t.Errorf("key admin denied: %v", err)
	}
}
