package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthCookieRoundTrip(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")

	rec := httptest.NewRecorder()
	auth.SetAuthCookie(rec, 42)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}

	id, ok := auth.parseToken(cookies[0].Value)
	if !ok {
		t.Fatal("valid token must parse")
	}
	if id != 42 {
		t.Errorf("parsed id = %d, want 42", id)
	}
}

func TestParseToken_Tampered(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")
	token := auth.signMemberID("42")

	// подмена идентификатора без пересчёта подписи
	tampered := "43." + strings.Split(token, ".")[1]
	if _, ok := auth.parseToken(tampered); ok {
		t.Error("tampered token must not parse")
	}

	if _, ok := auth.parseToken("garbage"); ok {
		t.Error("malformed token must not parse")
	}

	other := NewAuthMiddleware("other-secret")
	if _, ok := other.parseToken(token); ok {
		t.Error("token signed with another secret must not parse")
	}
}

func TestMiddleware(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")

	var gotID int64
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = GetMemberIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	// без cookie — 401
	rec := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without cookie = %d, want 401", rec.Code)
	}

	// с валидным cookie идентификатор попадает в контекст
	setRec := httptest.NewRecorder()
	auth.SetAuthCookie(setRec, 7)
	cookie := setRec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	rec = httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with cookie = %d, want 200", rec.Code)
	}
	if !gotOK || gotID != 7 {
		t.Errorf("context member id = (%d, %v), want (7, true)", gotID, gotOK)
	}
}
