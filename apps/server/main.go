package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"squirrel-server/apps/server/internal/auth"
	"squirrel-server/apps/server/internal/gateway"
	"squirrel-server/apps/server/internal/lobby"
)

func main() {
	authService, err := auth.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to init auth service: %v", err)
	}
	defer authService.Close()

	manager := lobby.Context().Manager()
	manager.StartMonitoring()

	gw := gateway.New(manager, authService)
	authHTTP := auth.NewHTTPHandler(authService)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	authHTTP.RegisterRoutes(mux)

	addr := ":8080"
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		addr = ":" + port
	}
	log.Printf("[Server] Starting WebSocket server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}
