package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestIssueAndParseToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.IssueToken("prov-1", "doc@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "prov-1" {
		t.Errorf("expected subject prov-1, got %s", claims.Subject)
	}
	if claims.Email != "doc@example.com" {
		t.Errorf("expected email claim, got %s", claims.Email)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m := NewManager("secret-a", time.Hour)
	token, _ := m.IssueToken("prov-1", "doc@example.com")

	other := NewManager("secret-b", time.Hour)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatal("expected parse to fail under a different secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)
	token, _ := m.IssueToken("prov-1", "doc@example.com")

	if _, err := m.ParseToken(token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestMiddleware(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	e := echo.New()

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, ProviderID(c))
	}
	protected := m.Middleware()(handler)

	t.Run("valid token", func(t *testing.T) {
		token, _ := m.IssueToken("prov-1", "doc@example.com")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		if err := protected(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Body.String() != "prov-1" {
			t.Errorf("expected provider id in context, got %q", rec.Body.String())
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		err := protected(e.NewContext(req, httptest.NewRecorder()))
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		err := protected(e.NewContext(req, httptest.NewRecorder()))
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		err := protected(e.NewContext(req, httptest.NewRecorder()))
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("expected password to match its hash")
	}
	if CheckPassword(hash, "hunter23") {
		t.Error("expected wrong password to fail")
	}
}
