package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, expiresIn, err := svc.GenerateAccessToken(&TokenClaims{
		UserID: "11111111-2222-3333-4444-555555555555",
		Email:  "user@example.com",
		Role:   "user",
	})
	if err != nil {
		t.Fatalf("GenerateAccessToken returned error: %v", err)
	}
	if expiresIn != 24*60*60 {
		t.Errorf("expires_in = %d, want 86400", expiresIn)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if claims.UserID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("user id = %q", claims.UserID)
	}
	if claims.Email != "user@example.com" || claims.Role != "user" {
		t.Errorf("claims not preserved: %+v", claims)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, err := NewJWTService("secret-a").GenerateAccessToken(&TokenClaims{UserID: "u1"})
	if err != nil {
		t.Fatalf("GenerateAccessToken returned error: %v", err)
	}
	if _, err := NewJWTService("secret-b").ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := NewJWTService("s").ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestMiddlewareAuthFlow(t *testing.T) {
	svc := NewJWTService("test-secret")
	app := fiber.New()
	app.Get("/protected", Middleware(svc), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("userID")})
	})
	app.Get("/admin", Middleware(svc), AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	do := func(path, token string) int {
		req := httptest.NewRequest("GET", path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := do("/protected", ""); code != http.StatusUnauthorized {
		t.Errorf("missing header: status %d, want 401", code)
	}
	if code := do("/protected", "bogus"); code != http.StatusUnauthorized {
		t.Errorf("bad token: status %d, want 401", code)
	}

	userToken, _, _ := svc.GenerateAccessToken(&TokenClaims{UserID: "u1", Role: "user"})
	if code := do("/protected", userToken); code != http.StatusOK {
		t.Errorf("valid token: status %d, want 200", code)
	}
	if code := do("/admin", userToken); code != http.StatusForbidden {
		t.Errorf("non-admin on admin route: status %d, want 403", code)
	}

	adminToken, _, _ := svc.GenerateAccessToken(&TokenClaims{UserID: "a1", Role: "admin"})
	if code := do("/admin", adminToken); code != http.StatusOK {
		t.Errorf("admin token: status %d, want 200", code)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !CheckPassword("hunter2", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("hunter3", hash) {
		t.Error("wrong password accepted")
	}
}
