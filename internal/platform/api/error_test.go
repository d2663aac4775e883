package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	BadRequest(rr, CodeInvalidReaction, "unknown reaction type", "req-1", map[string]any{"type": "WAVE"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	want := `{"error":{"code":"INVALID_REACTION","message":"unknown reaction type","details":{"type":"WAVE"},"request_id":"req-1"}}` + "\n"
	if got := rr.Body.String(); got != want {
		t.Fatalf("unexpected body\n got %s\nwant %s", got, want)
	}
}

func TestWriteError_OmitsEmptyOptionalFields(t *testing.T) {
	rr := httptest.NewRecorder()
	NotFound(rr, "comment not found", "")

	want := `{"error":{"code":"NOT_FOUND","message":"comment not found"}}` + "\n"
	if rr.Code != http.StatusNotFound || rr.Body.String() != want {
		t.Fatalf("unexpected response %d %s", rr.Code, rr.Body.String())
	}
}
