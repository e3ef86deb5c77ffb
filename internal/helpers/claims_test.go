package helpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.Claims, key interface{}) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestValidateReviewerToken(t *testing.T) {
	secret := "unit-test-secret"
	token := signToken(t, jwt.SigningMethodHS256, &ReviewerClaims{
		Role: "reviewer",
		Name: "desk ops",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "rev-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, []byte(secret))

	claims, err := ValidateReviewerToken(token, secret)
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if !claims.IsReviewer() {
		t.Error("reviewer role not recognized")
	}
	if claims.Name != "desk ops" {
		t.Errorf("name = %q", claims.Name)
	}
}

func TestValidateReviewerTokenRejectsExpired(t *testing.T) {
	secret := "unit-test-secret"
	token := signToken(t, jwt.SigningMethodHS256, &ReviewerClaims{
		Role: "reviewer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, []byte(secret))

	if _, err := ValidateReviewerToken(token, secret); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestValidateReviewerTokenRejectsWrongSecret(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, &ReviewerClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, []byte("right-secret"))

	if _, err := ValidateReviewerToken(token, "wrong-secret"); err == nil {
		t.Fatal("token signed with a different secret accepted")
	}
}

func TestValidateReviewerTokenRequiresSecret(t *testing.T) {
	if _, err := ValidateReviewerToken("anything", ""); err == nil {
		t.Fatal("empty secret accepted")
	}
}

func TestIsReviewer(t *testing.T) {
	cases := map[string]bool{
		"reviewer": true,
		"admin":    true,
		"viewer":   false,
		"":         false,
	}
	for role, want := range cases {
		rc := &ReviewerClaims{Role: role}
		if got := rc.IsReviewer(); got != want {
			t.Errorf("IsReviewer(%q) = %v, want %v", role, got, want)
		}
	}
}
