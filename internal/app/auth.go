package app

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	jwtIssuer   = "viego-api"
	jwtLifetime = 24 * time.Hour
)

type jwtClaims struct {
	UserID  int64  `json:"user_id"`
	Role    string `json:"role"`
	Issuer  string `json:"iss"`
	Issued  int64  `json:"iat"`
	Expires int64  `json:"exp"`
}

type authContextKey struct{}

func generateJWT(userID int64, role string) (string, error) {
	secret := jwtSecret()
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	if userID <= 0 {
		return "", errors.New("invalid user id")
	}

	now := time.Now().UTC()
	claims := jwtClaims{
		UserID:  userID,
		Role:    role,
		Issuer:  jwtIssuer,
		Issued:  now.Unix(),
		Expires: now.Add(jwtLifetime).Unix(),
	}

	headerPart, err := encodeJWTPart(map[string]string{
		"alg": "HS256",
		"typ": "JWT",
	})
	if err != nil {
		return "", err
	}
	payloadPart, err := encodeJWTPart(claims)
	if err != nil {
		return "", err
	}

	unsigned := headerPart + "." + payloadPart
	signature := signJWT(unsigned, secret)
	return unsigned + "." + signature, nil
}

func parseAndValidateJWT(token string) (*jwtClaims, error) {
	secret := jwtSecret()
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid token format")
	}

	unsigned := parts[0] + "." + parts[1]
	expected := signJWT(unsigned, secret)
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, errors.New("invalid token signature")
	}

	var header struct {
		Alg string `json:"alg"`
		Typ string `json:"typ"`
	}
	if err := decodeJWTPart(parts[0], &header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(header.Alg), "HS256") {
		return nil, errors.New("unsupported token algorithm")
	}

	var claims jwtClaims
	if err := decodeJWTPart(parts[1], &claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	if claims.UserID <= 0 {
		return nil, errors.New("token user is invalid")
	}
	if claims.Expires <= 0 || time.Now().UTC().Unix() >= claims.Expires {
		return nil, errors.New("token is expired")
	}
	if claims.Issuer != "" && claims.Issuer != jwtIssuer {
		return nil, errors.New("invalid token issuer")
	}

	return &claims, nil
}

// requireAuth rejects requests without a valid bearer token and stashes
// the claims in the request context.
func (srv *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := authorizeRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, claims)
		next(w, r.WithContext(ctx))
	}
}

// optionalAuth attaches claims when a valid token is present but lets
// anonymous requests through; visibility checks then see a nil viewer.
func (srv *Server) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if claims, err := authorizeRequest(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), authContextKey{}, claims))
		}
		next(w, r)
	}
}

// requirePermission chains requireAuth with a role check done against the
// live user row, so a demoted or banned account loses access before its
// token expires.
func (srv *Server) requirePermission(perm Permission, next http.HandlerFunc) http.HandlerFunc {
	return srv.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		user, err := srv.currentUser(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "valid bearer token is required")
			return
		}
		if !HasPermission(user, perm) {
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next(w, r)
	})
}

func authorizeRequest(r *http.Request) (*jwtClaims, error) {
	token, err := extractBearerToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := parseAndValidateJWT(token)
	if err != nil {
		return nil, errors.New("valid bearer token is required")
	}
	return claims, nil
}

func claimsFromContext(ctx context.Context) (*jwtClaims, bool) {
	if ctx == nil {
		return nil, false
	}
	claims, ok := ctx.Value(authContextKey{}).(*jwtClaims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

// currentUser loads the authenticated user's row. Deactivated accounts
// are treated as unauthenticated.
func (srv *Server) currentUser(r *http.Request) (*User, error) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		return nil, fmt.Errorf("%w: no token", ErrUnauthorized)
	}
	user, err := srv.store.GetUser(claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", ErrForbidden)
	}
	return user, nil
}

// viewerOrNil is for public endpoints: nil means anonymous.
func (srv *Server) viewerOrNil(r *http.Request) *User {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := srv.store.GetUser(claims.UserID)
	if err != nil || !user.IsActive {
		return nil
	}
	return user
}

func extractBearerToken(r *http.Request) (string, error) {
	if r == nil {
		return "", errors.New("valid bearer token is required")
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("valid bearer token is required")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("valid bearer token is required")
	}
	return token, nil
}

func encodeJWTPart(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeJWTPart(src string, dst any) error {
	raw, err := base64.RawURLEncoding.DecodeString(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func signJWT(unsigned, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(unsigned))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func jwtSecret() string {
	return strings.TrimSpace(config.JWTSecret)
}
