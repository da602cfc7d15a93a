package middleware

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/kresha325/FootballPro-sub001/internal/crypto"
	"github.com/kresha325/FootballPro-sub001/internal/dal"
)

type contextKey string

const authKey contextKey = "authorization"

// BasicAuth is a middleware that mandates basic auth is present in the headers and validates
func BasicAuth(next http.Handler, db *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// whitelisted endpoints
		if r.URL.Path == "/register" {
			next.ServeHTTP(w, r)
			return
		}

		username, password, ok := r.BasicAuth()
		username = strings.Trim(username, " ")
		if !ok {
			writeAuthError(w)
			return
		}

		user, err := dal.GetUserByUsername(db, username)
		if err != nil || crypto.CompareHashAndPassword(user.Password, password) != nil {
			log.Println(fmt.Errorf("auth error: %w", err))
			writeAuthError(w)
			return
		}

		ctx := context.WithValue(r.Context(), authKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="basic-client"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// GetUsername is used in endpoint handlers to retrieve the username of the client that created the request.
func GetUsername(r *http.Request) string {
	username, _ := r.Context().Value(authKey).(string)
	return username
}

// GetUsernameWS retrieves the authenticated username from the http request
// that initiated a websocket connection.
func GetUsernameWS(ws *websocket.Conn) string {
	return GetUsername(ws.Request())
}

// DebugLogging logs every request before it is handled.
func DebugLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
