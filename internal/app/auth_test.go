package app

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func withTestSecret(t *testing.T) {
	t.Helper()
	old := config.JWTSecret
	config.JWTSecret = "unit-test-secret"
	t.Cleanup(func() { config.JWTSecret = old })
}

func TestJWTRoundTrip(t *testing.T) {
	withTestSecret(t)

	token, err := generateJWT(42, RoleModerator)
	if err != nil {
		t.Fatalf("generateJWT: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token shape: %q", token)
	}

	claims, err := parseAndValidateJWT(token)
	if err != nil {
		t.Fatalf("parseAndValidateJWT: %v", err)
	}
	if claims.UserID != 42 || claims.Role != RoleModerator {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Issuer != jwtIssuer {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
	if claims.Expires <= claims.Issued {
		t.Fatalf("exp %d not after iat %d", claims.Expires, claims.Issued)
	}
}

func TestJWTRejectsTampering(t *testing.T) {
	withTestSecret(t)

	token, err := generateJWT(42, RoleUser)
	if err != nil {
		t.Fatalf("generateJWT: %v", err)
	}
	parts := strings.Split(token, ".")

	// Swap in a payload claiming admin; the signature no longer matches.
	forgedPayload, err := encodeJWTPart(jwtClaims{
		UserID: 42, Role: RoleAdmin, Issuer: jwtIssuer,
		Issued: 0, Expires: 1<<62 - 1,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	forged := parts[0] + "." + forgedPayload + "." + parts[2]
	if _, err := parseAndValidateJWT(forged); err == nil {
		t.Fatalf("forged payload accepted")
	}

	if _, err := parseAndValidateJWT("not.a.token"); err == nil {
		t.Fatalf("garbage token accepted")
	}
	if _, err := parseAndValidateJWT(parts[0] + "." + parts[1]); err == nil {
		t.Fatalf("two-part token accepted")
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	withTestSecret(t)
	token, err := generateJWT(7, RoleUser)
	if err != nil {
		t.Fatalf("generateJWT: %v", err)
	}

	config.JWTSecret = "a-different-secret"
	if _, err := parseAndValidateJWT(token); err == nil {
		t.Fatalf("token signed with the old secret accepted")
	}
}

func TestJWTRequiresSecret(t *testing.T) {
	old := config.JWTSecret
	config.JWTSecret = ""
	t.Cleanup(func() { config.JWTSecret = old })

	if _, err := generateJWT(1, RoleUser); err == nil {
		t.Fatalf("generateJWT without a secret must fail")
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer lowercase-ok", "lowercase-ok", false},
		{"", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"Bearer", "", true},
		{"Bearer a b", "", true},
	}
	for _, c := range cases {
		r := httptest.NewRequest("GET", "/api/posts", nil)
		if c.header != "" {
			r.Header.Set("Authorization", c.header)
		}
		got, err := extractBearerToken(r)
		if c.wantErr {
			if err == nil {
				t.Fatalf("header %q: expected error, got token %q", c.header, got)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("header %q: token=%q err=%v", c.header, got, err)
		}
	}
}
