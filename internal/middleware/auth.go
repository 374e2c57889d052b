package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dukerupert/mealcart/internal/auth"
)

// UserHeader carries the authenticated user ID, set by the gateway that
// terminates authentication in front of this service.
const UserHeader = "X-User-ID"

// RequireUser resolves the caller from UserHeader and populates the
// request's Identity. Requests without a valid positive ID get a 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserHeader)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing "+UserHeader+" header")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid "+UserHeader+" header")
			return
		}

		ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
