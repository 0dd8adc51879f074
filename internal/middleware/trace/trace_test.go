package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when missing", "", false},
		{"incoming reused", "abc-123", true},
		{"malformed replaced", "bad id\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = FromRequest(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if seen == "" || rec.Header().Get(HeaderRequestID) != seen {
				t.Fatalf("context id %q, header %q", seen, rec.Header().Get(HeaderRequestID))
			}
			if tt.keep && seen != tt.incoming {
				t.Errorf("id = %q, want %q", seen, tt.incoming)
			}
			if !tt.keep && !strings.HasPrefix(seen, "req_") {
				t.Errorf("id = %q, want generated", seen)
			}
		})
	}
}
