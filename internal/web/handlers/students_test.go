package handlers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStudentsHandler_List(t *testing.T) {
	handler := NewStudentsHandler(newTestService(t))

	t.Run("all", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.List(recorder, httptest.NewRequest("GET", "/api/v1/students", nil))

		assertStatusCode(t, recorder, http.StatusOK)
		var result []StudentResponse
		parseJSONResponse(t, recorder, &result)
		if len(result) != 2 || result[0].ID != "1" || result[1].Name != "Grace" {
			t.Errorf("unexpected students: %+v", result)
		}
	})

	t.Run("search", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.List(recorder, httptest.NewRequest("GET", "/api/v1/students?q=gra", nil))

		var result []StudentResponse
		parseJSONResponse(t, recorder, &result)
		if len(result) != 1 || result[0].ID != "2" {
			t.Errorf("unexpected search result: %+v", result)
		}
	})
}

func TestStudentsHandler_Create(t *testing.T) {
	handler := NewStudentsHandler(newTestService(t))

	face := base64.StdEncoding.EncodeToString(gradientPNG(t))
	body := fmt.Sprintf(`{"id":"3","name":"Linus","email":"linus@school.test","course":"CS","face":%q}`, face)
	recorder := httptest.NewRecorder()
	handler.Create(recorder, httptest.NewRequest("POST", "/api/v1/students", bytes.NewBufferString(body)))

	assertStatusCode(t, recorder, http.StatusCreated)
	var result EnrollmentResponse
	parseJSONResponse(t, recorder, &result)
	if result.Student.ID != "3" || !result.Student.HasFace || !result.Enrolled {
		t.Errorf("unexpected enrollment: %+v", result)
	}
}

func TestStudentsHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing email", `{"id":"3","name":"Linus"}`, http.StatusBadRequest},
		{"non numeric id", `{"id":"x","name":"Linus","email":"l@school.test"}`, http.StatusBadRequest},
		{"duplicate id", `{"id":"1","name":"Ada","email":"ada@school.test"}`, http.StatusConflict},
		{"bad face", `{"id":"3","name":"Linus","email":"l@school.test","face":"bm90IGFuIGltYWdl"}`, http.StatusBadRequest},
	}

	handler := NewStudentsHandler(newTestService(t))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.Create(recorder, httptest.NewRequest("POST", "/api/v1/students", bytes.NewBufferString(tc.body)))
			assertStatusCode(t, recorder, tc.want)
		})
	}
}

func TestStudentsHandler_GetAndDelete(t *testing.T) {
	handler := NewStudentsHandler(newTestService(t))

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/students/2", nil), map[string]string{"id": "2"})
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	req = requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/students/2", nil), map[string]string{"id": "2"})
	recorder = httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	req = requestWithChiParams(httptest.NewRequest("GET", "/api/v1/students/2", nil), map[string]string{"id": "2"})
	recorder = httptest.NewRecorder()
	handler.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestStudentsHandler_UploadFace(t *testing.T) {
	handler := NewStudentsHandler(newTestService(t))

	req := requestWithChiParams(httptest.NewRequest("PUT", "/api/v1/students/1/face", bytes.NewReader(gradientPNG(t))), map[string]string{"id": "1"})
	recorder := httptest.NewRecorder()
	handler.UploadFace(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result EnrollmentResponse
	parseJSONResponse(t, recorder, &result)
	if !result.Enrolled || result.Student.FaceImage != "Images/1.jpg" {
		t.Errorf("unexpected enrollment: %+v", result)
	}

	req = requestWithChiParams(httptest.NewRequest("PUT", "/api/v1/students/9/face", bytes.NewReader(gradientPNG(t))), map[string]string{"id": "9"})
	recorder = httptest.NewRecorder()
	handler.UploadFace(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)

	req = requestWithChiParams(httptest.NewRequest("PUT", "/api/v1/students/1/face", nil), map[string]string{"id": "1"})
	recorder = httptest.NewRecorder()
	handler.UploadFace(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
}
