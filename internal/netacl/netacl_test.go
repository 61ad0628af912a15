package netacl

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseAndAllows(t *testing.T) {
	l, err := Parse([]string{"10.0.0.0/8", " 192.168.1.10 ", "", "2001:db8::/32"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	checks := []struct {
		remote string
		want   bool
	}{
		{"10.1.2.3:5555", true},
		{"192.168.1.10:80", true},
		{"192.168.1.11:80", false},
		{"[2001:db8::1]:443", true},
		{"[::ffff:10.0.0.1]:1", true},
		{"8.8.8.8", false},
		{"not-an-ip:80", false},
	}
	for _, c := range checks {
		if got := l.AllowsRemote(c.remote); got != c.want {
			t.Fatalf("%s: got %v want %v", c.remote, got, c.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"10.0.0.0/33", "banana"} {
		if _, err := Parse([]string{in}); err == nil {
			t.Fatalf("%s: expected error", in)
		}
	}
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	empty, _ := Parse(nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	empty.Middleware(ok).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("empty list should allow, got %d", rr.Code)
	}

	l, _ := Parse([]string{"127.0.0.0/8"})
	rr = httptest.NewRecorder()
	l.Middleware(ok).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	req.RemoteAddr = "127.0.0.1:999"
	l.Middleware(ok).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected pass, got %d", rr.Code)
	}
}
