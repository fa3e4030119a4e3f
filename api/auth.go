/*
auth.go - Bearer-token actor resolution

PURPOSE:
  Resolves the authenticated Actor for each request. Token issuance lives
  elsewhere (the lab's SSO signs HS256 tokens); this middleware only
  verifies the signature and seeds the request context with the Actor.
  Every mutating ledger operation rejects a request that carries no Actor.

CLAIMS:
  sub   actor id
  name  display name
  role  one of the ledger roles (unknown strings degrade to read_only)

SEE ALSO:
  - ledger/actor.go: Role hierarchy and the permission gate
  - server.go:       Where the middleware is mounted
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ehslabs/labledger/ledger"
)

type ctxKey int

const ctxActor ctxKey = iota

// Claims is the token payload the lab's SSO signs.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens and yields Actors.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Middleware validates the Authorization header and seeds the request
// context with the resolved Actor. Requests without a valid token are
// rejected before any handler runs.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing credentials", nil)
			return
		}

		token := raw
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing credentials", nil)
			return
		}

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !parsed.Valid || claims.Subject == "" {
			writeError(w, http.StatusUnauthorized, "invalid token", err)
			return
		}

		actor := ledger.Actor{
			ID:     ledger.ActorID(claims.Subject),
			Name:   claims.Name,
			Role:   ledger.ParseRole(claims.Role),
			Active: true,
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// WithActor seeds a context with an Actor. Exported for tests and for
// callers embedding the engine without HTTP.
func WithActor(ctx context.Context, actor ledger.Actor) context.Context {
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFrom extracts the Actor resolved by the middleware. The zero
// Actor fails every permission check, so a missing value is safe.
func ActorFrom(ctx context.Context) ledger.Actor {
	actor, _ := ctx.Value(ctxActor).(ledger.Actor)
	return actor
}
