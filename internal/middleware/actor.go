package middleware

import (
	"context"
	"net/http"
)

// headerActor carries the caller identity established by the fronting auth
// layer. Capability checks (createwiki, managewiki, requestwiki) happen there;
// the core only needs the identity for audit attribution.
const headerActor = "X-Farm-Actor"

type actorKey struct{}

// Actor is HTTP middleware that stores the caller identity from X-Farm-Actor
// in the request context. Requests without the header are rejected: every
// mutating operation must be attributable.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get(headerActor)
		if actor == "" {
			http.Error(w, `{"error":"missing `+headerActor+` header"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromContext returns the caller identity, or an empty string when the
// request did not pass through Actor.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}
