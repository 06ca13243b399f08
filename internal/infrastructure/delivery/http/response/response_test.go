package response_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"titan/internal/infrastructure/delivery/http/response"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name      string
		write     func(w http.ResponseWriter)
		wantCode  int
		wantMsg   string
		wantError string
		wantData  bool
	}{
		{
			name:     "ok with data",
			write:    func(w http.ResponseWriter) { response.OK(w, "done", map[string]int{"n": 1}, nil) },
			wantCode: http.StatusOK,
			wantMsg:  "done",
			wantData: true,
		},
		{
			name:      "conflict",
			write:     func(w http.ResponseWriter) { response.Conflict(w, "busy", errors.New("job in progress")) },
			wantCode:  http.StatusConflict,
			wantMsg:   "busy",
			wantError: "job in progress",
		},
		{
			name: "bad gateway with hint",
			write: func(w http.ResponseWriter) {
				response.BadGateway(w, "failed", map[string]string{"hint": "retry"}, errors.New("403"))
			},
			wantCode:  http.StatusBadGateway,
			wantMsg:   "failed",
			wantError: "403",
			wantData:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)

			if rec.Code != tc.wantCode {
				t.Errorf("got status %d, want %d", rec.Code, tc.wantCode)
			}

			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("got content type %q", ct)
			}

			var body response.Response
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}

			if body.Message != tc.wantMsg || body.Error != tc.wantError {
				t.Errorf("got %+v", body)
			}

			if (body.Data != nil) != tc.wantData {
				t.Errorf("got data %v, want present=%v", body.Data, tc.wantData)
			}
		})
	}
}
