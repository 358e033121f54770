package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database/mock"
	"github.com/kozaktomas/attendance/internal/users"
)

var teacher = users.User{Username: "teacher", Role: constants.RoleTeacher, Name: "Teacher"}

func newManager(t *testing.T, store *mock.MockSessionStore) *SessionManager {
	t.Helper()
	var sm *SessionManager
	if store == nil {
		sm = NewSessionManager("test-secret", nil)
	} else {
		sm = NewSessionManager("test-secret", store)
	}
	t.Cleanup(sm.Stop)
	return sm
}

func TestSessionManager_CreateAndGet(t *testing.T) {
	sm := newManager(t, nil)

	session, err := sm.CreateSession(teacher)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.ID == "" || session.Username != "teacher" || session.Role != constants.RoleTeacher {
		t.Errorf("unexpected session: %+v", session)
	}
	if got := session.ExpiresAt.Sub(session.CreatedAt); got != constants.SessionDuration {
		t.Errorf("session lifetime = %v, want %v", got, constants.SessionDuration)
	}

	if sm.GetSession(session.ID) == nil {
		t.Error("GetSession() returned nil for a fresh session")
	}
	sm.DeleteSession(session.ID)
	if sm.GetSession(session.ID) != nil {
		t.Error("GetSession() should return nil after DeleteSession")
	}
}

func TestSessionManager_Expired(t *testing.T) {
	sm := newManager(t, nil)
	session, _ := sm.CreateSession(teacher)

	sm.now = func() time.Time { return session.ExpiresAt.Add(time.Second) }
	if sm.GetSession(session.ID) != nil {
		t.Error("GetSession() should return nil for an expired session")
	}
}

func TestSessionManager_SurvivesRestart(t *testing.T) {
	store := mock.NewMockSessionStore()
	first := newManager(t, store)
	session, _ := first.CreateSession(teacher)

	second := newManager(t, store)
	restored := second.GetSession(session.ID)
	if restored == nil {
		t.Fatal("session should be loaded from the store")
	}
	if restored.Username != "teacher" || restored.Role != constants.RoleTeacher || restored.Name != "Teacher" {
		t.Errorf("unexpected restored session: %+v", restored)
	}

	second.DeleteSession(session.ID)
	if got, _ := store.Get(context.Background(), session.ID); got != nil {
		t.Error("DeleteSession should remove the stored session")
	}
}

func TestSessionManager_SetAndGetSessionCookie(t *testing.T) {
	sm := newManager(t, nil)
	session, _ := sm.CreateSession(teacher)

	w := httptest.NewRecorder()
	sm.SetSessionCookie(w, httptest.NewRequest("POST", "/", nil), session)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("Session cookie not found")
		return
	}
	if !sessionCookie.HttpOnly || sessionCookie.Secure {
		t.Errorf("unexpected cookie flags: HttpOnly=%v Secure=%v", sessionCookie.HttpOnly, sessionCookie.Secure)
	}
	if !strings.HasPrefix(sessionCookie.Value, session.ID+".") {
		t.Errorf("cookie value should carry the signed session id, got %q", sessionCookie.Value)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(sessionCookie)
	retrieved := sm.GetSessionFromRequest(req)
	if retrieved == nil || retrieved.ID != session.ID {
		t.Errorf("GetSessionFromRequest() = %+v, want session %s", retrieved, session.ID)
	}
}

func TestSessionManager_InvalidCookie(t *testing.T) {
	sm := newManager(t, nil)
	session, _ := sm.CreateSession(teacher)

	tests := []struct {
		name  string
		value string
	}{
		{"garbage", "invalid-session.invalid-signature"},
		{"forged signature", session.ID + ".forged"},
		{"no signature", session.ID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tc.value})
			if sm.GetSessionFromRequest(req) != nil {
				t.Error("GetSessionFromRequest() should return nil")
			}
		})
	}
}

func TestSessionManager_BearerAuth(t *testing.T) {
	sm := newManager(t, nil)
	session, _ := sm.CreateSession(teacher)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)

	retrieved := sm.GetSessionFromRequest(req)
	if retrieved == nil || retrieved.ID != session.ID {
		t.Errorf("GetSessionFromRequest() = %+v, want session %s", retrieved, session.ID)
	}
}

func TestRequireAuth(t *testing.T) {
	sm := newManager(t, nil)
	session, _ := sm.CreateSession(teacher)

	handlerCalled := false
	protected := RequireAuth(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if GetSessionFromContext(r.Context()) == nil {
			t.Error("Session not found in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid session", func(t *testing.T) {
		handlerCalled = false
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+session.ID)

		protected.ServeHTTP(w, req)

		if w.Code != http.StatusOK || !handlerCalled {
			t.Errorf("Status = %d, handler called = %v", w.Code, handlerCalled)
		}
	})

	t.Run("no session", func(t *testing.T) {
		handlerCalled = false
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))

		if w.Code != http.StatusUnauthorized || handlerCalled {
			t.Errorf("Status = %d, handler called = %v", w.Code, handlerCalled)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		session *Session
		want    int
	}{
		{"admin", &Session{ID: "a", Role: constants.RoleAdmin}, http.StatusNoContent},
		{"teacher", &Session{ID: "t", Role: constants.RoleTeacher}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/users", nil)
			if tc.session != nil {
				req = req.WithContext(SetSessionInContext(req.Context(), tc.session))
			}
			w := httptest.NewRecorder()
			RequireAdmin(ok).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("Status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestSessionManager_ClearSessionCookie(t *testing.T) {
	sm := newManager(t, nil)

	w := httptest.NewRecorder()
	sm.ClearSessionCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName {
		t.Fatalf("unexpected cookies: %v", cookies)
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1 (expired)", cookies[0].MaxAge)
	}
}

func TestSession_MarshalJSON(t *testing.T) {
	session := &Session{
		ID:        "test123",
		Username:  "teacher",
		Role:      constants.RoleTeacher,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	data, err := session.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	for _, want := range []string{`"session_id":"test123"`, `"username":"teacher"`, `"role":"teacher"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON %s should contain %s", data, want)
		}
	}
}

func TestCORS(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://school.example")
	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://school.example", true},
		{"http://localhost:5173", true},
		{"https://evil.example", false},
	}
	for _, tc := range tests {
		t.Run(tc.origin, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/health", nil)
			req.Header.Set("Origin", tc.origin)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get("Access-Control-Allow-Origin") == tc.origin
			if got != tc.allowed {
				t.Errorf("allowed = %v, want %v", got, tc.allowed)
			}
		})
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/students", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("preflight status = %d", w.Code)
	}
}
