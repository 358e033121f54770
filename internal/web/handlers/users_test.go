package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/attendance/internal/constants"
)

func TestUsersHandler(t *testing.T) {
	handler := NewUsersHandler(newTestUsers(t))

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/users", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var list []UserResponse
	parseJSONResponse(t, recorder, &list)
	if len(list) != 2 || list[0].Username != "admin" || list[1].Role != constants.RoleTeacher {
		t.Errorf("unexpected users: %+v", list)
	}
	if bytes.Contains(recorder.Body.Bytes(), []byte("password")) {
		t.Error("user listing must not contain password hashes")
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"created", `{"username":"jane","password":"s3cret","role":"teacher","name":"Jane"}`, http.StatusCreated},
		{"exists", `{"username":"jane","password":"s3cret","role":"teacher"}`, http.StatusConflict},
		{"bad role", `{"username":"joe","password":"s3cret","role":"janitor"}`, http.StatusBadRequest},
		{"no password", `{"username":"joe","role":"teacher"}`, http.StatusBadRequest},
		{"invalid json", `[`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.Create(recorder, httptest.NewRequest("POST", "/api/v1/users", bytes.NewBufferString(tc.body)))
			assertStatusCode(t, recorder, tc.want)
		})
	}
}
