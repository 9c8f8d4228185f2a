package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/fiiportal/internal/app/system/auth"
)

// TestMember returns a signed-in portal member.
func TestMember() *auth.Member {
	return &auth.Member{
		UserID:   "user_test_1",
		Name:     "Maria Teste",
		Email:    "maria@test.com",
		ImageURL: "https://img.test/maria.png",
	}
}

// OtherMember returns a second member, distinct from TestMember.
func OtherMember() *auth.Member {
	return &auth.Member{
		UserID: "user_test_2",
		Name:   "João Teste",
		Email:  "joao@test.com",
	}
}

// TestAdmin returns a signed-in backend admin.
func TestAdmin() *auth.Admin {
	return &auth.Admin{Email: "admin@test.com", Name: "Test Admin"}
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is v encoded as JSON.
// A string v is sent as-is.
func NewJSONRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	var body io.Reader
	switch b := v.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AsMember puts m in the request context.
func AsMember(r *http.Request, m *auth.Member) *http.Request {
	return auth.WithMember(r, m)
}

// AsAdmin puts a in the request context.
func AsAdmin(r *http.Request, a *auth.Admin) *http.Request {
	return auth.WithAdmin(r, a)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertRedirect checks for a redirect to the expected location.
func (r *ResponseRecorder) AssertRedirect(t interface{ Errorf(string, ...any) }, expectedLocation string) {
	if r.Code != http.StatusSeeOther && r.Code != http.StatusFound && r.Code != http.StatusMovedPermanently {
		t.Errorf("expected redirect status, got %d", r.Code)
	}
	if loc := r.Header().Get("Location"); loc != expectedLocation {
		t.Errorf("redirect location: got %q, want %q", loc, expectedLocation)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q: %s", expected, r.Body.String())
	}
}

// AssertErrorCode checks the error code of a JSON error response.
func (r *ResponseRecorder) AssertErrorCode(t interface{ Errorf(string, ...any) }, code string) {
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(r.Body.Bytes(), &env); err != nil {
		t.Errorf("decode error body: %v (%s)", err, r.Body.String())
		return
	}
	if env.Error.Code != code {
		t.Errorf("error code: got %q, want %q", env.Error.Code, code)
	}
}

// DecodeJSON decodes the response body into v.
func (r *ResponseRecorder) DecodeJSON(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, r.Body.String())
	}
}
