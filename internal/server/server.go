// package server assembles the jonsport signaling server: user registration
// over REST and the persistent call-control channel over websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/websocket"

	"github.com/kresha325/FootballPro-sub001/internal/db"
	"github.com/kresha325/FootballPro-sub001/internal/middleware"
	"github.com/kresha325/FootballPro-sub001/internal/routes"
)

func CreateAndListen(debug bool, host string, port int) {
	db := db.GetDB()
	defer db.Close()

	h := routes.NewRouteHandler(db)

	mux := http.NewServeMux()
	createRoutes(mux, h)

	// apply middlewares
	var handler http.Handler
	if debug {
		handler = middleware.DebugLogging(mux)
	} else {
		handler = mux
	}
	handler = middleware.BasicAuth(handler, db)

	// note: no ReadTimeout/IdleTimeout here, the signaling channel is a
	// long-lived connection
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		ReadHeaderTimeout: 500 * time.Millisecond,
		Handler:           handler,
	}

	// graceful shutdown channel
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// run server
	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
		log.Println("Stopped serving new connections.")
	}()

	// recieve stop signals
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("http shutdown error: %v", err)
	}
	log.Println("Graceful shutdown complete.")
}

// createRoutes creates the routing rules for the webserver
func createRoutes(mux *http.ServeMux, h *routes.RouteHandler) {
	mux.HandleFunc("POST /register", h.Register)

	channelHandler := websocket.Server{
		Handshake: websocketHandshake,
		Handler:   h.ChannelWS,
	}
	mux.Handle("GET /channel", channelHandler)
}

func websocketHandshake(_ *websocket.Config, _ *http.Request) error { return nil }
