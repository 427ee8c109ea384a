// Command jeu-react-backend starts the memory card game server.
//
// It exposes a REST API, a WebSocket endpoint for real-time play, and an
// /mcp HTTP endpoint for AI agents. With DATABASE_URL set the server keeps
// outcomes, player statistics, media, and session snapshots in PostgreSQL;
// without it, snapshots go to JSON files and decks come from a built-in
// media set. NATS_URL optionally mirrors all session traffic onto a broker.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"

	"github.com/Jerem-14/jeu-react-backend/api"
	"github.com/Jerem-14/jeu-react-backend/game/media"
	"github.com/Jerem-14/jeu-react-backend/game/service"
	"github.com/Jerem-14/jeu-react-backend/game/session"
	"github.com/Jerem-14/jeu-react-backend/storage/postgres"
	"github.com/Jerem-14/jeu-react-backend/transport/broker"
	"github.com/Jerem-14/jeu-react-backend/transport/mcp"
	"github.com/Jerem-14/jeu-react-backend/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Memory Card Game Server"
)

var (
	port            = flag.Int("port", 8080, "HTTP server port")
	host            = flag.String("host", "", "HTTP server host")
	snapshotDir     = flag.String("snapshot-dir", getSnapshotDirDefault(), "Directory for session snapshot files (ignored with DATABASE_URL)")
	debug           = flag.Bool("debug", false, "Enable debug logging")
	version         = flag.Bool("version", false, "Show version information")
	cleanupInterval = flag.Duration("cleanup-interval", 10*time.Minute, "How often idle sessions are evicted from memory")
	sessionMaxAge   = flag.Duration("session-max-age", time.Hour, "Idle time before a session is evicted from memory")
)

// getSnapshotDirDefault honors the SNAPSHOT_DIR environment variable, then
// falls back to "data/sessions"
func getSnapshotDirDefault() string {
	if dir := os.Getenv("SNAPSHOT_DIR"); dir != "" {
		return dir
	}
	return "data/sessions"
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	log.Printf("Starting %s v%s", AppName, Version)

	// Storage: PostgreSQL when configured, file snapshots plus the built-in
	// media set otherwise
	var (
		snapshots     session.SnapshotStore
		mediaProvider service.MediaProvider
		gameStore     service.GameStore
		pgStore       *postgres.Store
	)

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		store, err := postgres.Open(dsn)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		if err := store.SeedMedia(context.Background(), media.DefaultImageSet()); err != nil {
			log.Printf("Warning: Failed to seed media: %v", err)
		}
		snapshots = store
		mediaProvider = store
		gameStore = store
		pgStore = store
		log.Println("Using PostgreSQL for persistence and media")
	} else {
		fileStore, err := session.NewFileStore(*snapshotDir)
		if err != nil {
			log.Fatalf("Failed to create snapshot store: %v", err)
		}
		snapshots = fileStore
		mediaProvider = media.NewStaticProvider(media.DefaultImageSet(), nil)
		log.Printf("No DATABASE_URL set; using file snapshots in %s and the built-in media set", *snapshotDir)
	}

	manager := session.NewManagerWithSnapshots(snapshots)
	if err := manager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}

	// The hub and the game service reference each other; wire the service in
	// after construction
	hub := websocket.NewHub()

	var broadcaster service.Broadcaster = hub
	if url := os.Getenv("NATS_URL"); url != "" {
		pub, err := broker.Connect(url)
		if err != nil {
			log.Printf("Warning: Failed to connect to broker at %s: %v", url, err)
		} else {
			defer pub.Close()
			broadcaster = service.MultiBroadcaster{hub, pub}
			log.Printf("Mirroring session traffic to broker at %s", url)
		}
	}

	gameService := service.NewGameService(manager, mediaProvider, gameStore, broadcaster)
	hub.SetService(gameService)
	go hub.Run()

	// Periodic eviction of idle sessions; snapshots stay recoverable
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(*cleanupInterval),
		gocron.NewTask(func() {
			if removed := manager.CleanupExpired(*sessionMaxAge); removed > 0 {
				log.Printf("Evicted %d idle sessions from memory", removed)
			}
		}),
	); err != nil {
		log.Fatalf("Failed to schedule session cleanup: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Printf("Warning: Failed to stop scheduler: %v", err)
		}
	}()

	apiServer := api.NewServer(gameService, hub, pgStore)
	mcpServer := mcp.NewServer(gameService)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	addr := fmt.Sprintf("%s:%d", *host, *port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: HTTP server shutdown failed: %v", err)
	}

	log.Println("Server stopped")
}
