package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const RoleGuest = "GUEST"

// Claims is the subset of the workshop token the backup routes care about.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type claimsKeyType string

const claimsKey claimsKeyType = "claims"

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// Authenticator verifies HS256 bearer tokens and enforces a role allow-list.
type Authenticator struct {
	secret  []byte
	allowed map[string]struct{}
}

func NewAuthenticator(secret string, allowedRoles []string) *Authenticator {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role == "" || role == RoleGuest {
			continue
		}
		allowed[role] = struct{}{}
	}

	a := &Authenticator{allowed: allowed}
	if secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

func (a *Authenticator) Enabled() bool {
	return a.secret != nil
}

func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	if a.secret == nil {
		return nil, errors.New("authentication is not configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// ExtractToken pulls the token out of "Bearer <token>".
func ExtractToken(authHeader string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("missing bearer token")
	}
	return strings.TrimSpace(token), nil
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := ExtractToken(r.Header.Get("Authorization"))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "No token provided. Please login.")
			return
		}

		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeMessage(w, http.StatusUnauthorized, "Token expired. Please login again.")
				return
			}
			writeMessage(w, http.StatusUnauthorized, "Invalid token. Please login again.")
			return
		}

		role := strings.ToUpper(claims.Role)
		if role == RoleGuest {
			writeMessage(w, http.StatusForbidden, "Guest access is not allowed.")
			return
		}
		if _, ok := a.allowed[role]; !ok {
			writeMessage(w, http.StatusForbidden, "Insufficient permissions.")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}
