package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studio/internal/domain"
	"studio/internal/studio"
)

func TestFailMapsErrors(t *testing.T) {
	app := NewApp(nil, nil, nil)
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{name: "validation", err: domain.NewValidationError(domain.MsgPromptRequired), wantStatus: http.StatusBadRequest, wantCode: "validation_error", wantMsg: "Please enter a prompt."},
		{name: "wrapped validation", err: fmt.Errorf("aspect: %w", domain.NewValidationError("bad ratio")), wantStatus: http.StatusBadRequest, wantCode: "validation_error", wantMsg: "bad ratio"},
		{name: "not found", err: studio.ErrSessionNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "closed", err: studio.ErrClosed, wantStatus: http.StatusGone, wantCode: "gone"},
		{name: "busy", err: studio.ErrBusy, wantStatus: http.StatusConflict, wantCode: "busy"},
		{name: "backend", err: domain.NewBackendError("generate image", domain.MsgImageGenerationFailed, errors.New("quota")), wantStatus: http.StatusBadGateway, wantCode: "backend_error"},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal", wantMsg: "internal error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.fail(rec, httptest.NewRequest(http.MethodPost, "/", nil), tc.err)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body errorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", body.Error.Code, tc.wantCode)
			}
			if tc.wantMsg != "" && body.Error.Message != tc.wantMsg {
				t.Fatalf("message = %q, want %q", body.Error.Message, tc.wantMsg)
			}
		})
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	app := NewApp(nil, nil, nil)
	var req promptRequest

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"text":"x","extra":1}`))
	if app.decode(rec, r, &req) {
		t.Fatal("decode accepted unknown field")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(""))
	if !app.decode(rec, r, &req) {
		t.Fatal("decode rejected an empty body")
	}
}

func TestAspectRatiosLists(t *testing.T) {
	app := NewApp(nil, nil, nil)
	rec := httptest.NewRecorder()
	app.AspectRatios(rec, httptest.NewRequest(http.MethodGet, "/v1/aspect-ratios", nil))

	var body struct {
		Items   []domain.AspectRatioOption `json:"items"`
		Default string                     `json:"default"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 5 || body.Items[0].Value != domain.AspectSquare || body.Default != "1:1" {
		t.Fatalf("unexpected body %+v", body)
	}
}
