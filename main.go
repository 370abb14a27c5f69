package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; real env vars win either way
	godotenv.Load()

	addr := flag.String("addr", envOr("ADDR", ":8080"), "HTTP listen address")
	clientDir := flag.String("client", envOr("CLIENT_DIR", "../client"), "Path to client directory (empty to disable)")
	dbPath := flag.String("db", envOr("DB_PATH", "knockout.db"), "SQLite match-history path (empty to disable)")
	publicURL := flag.String("public-url", envOr("PUBLIC_URL", ""), "Public base URL for QR join links")
	flag.Parse()

	var db *DB
	if *dbPath != "" {
		var err error
		db, err = OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
	}
	history := NewRecorder(db)

	registry := NewRegistry(history)
	hub := NewHub(registry, history)
	go hub.Run()

	handler := SetupRoutes(hub, *clientDir, *publicURL)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: handler}

	go func() {
		log.Printf("Server starting on %s", *addr)
		if *clientDir != "" {
			log.Printf("Serving client files from %s", *clientDir)
		}
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	registry.Shutdown()
	history.Stop()
}
