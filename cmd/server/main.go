package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/hezhaoyun/ichess-server/internal/config"
	"github.com/hezhaoyun/ichess-server/internal/db"
	"github.com/hezhaoyun/ichess-server/internal/engine"
	"github.com/hezhaoyun/ichess-server/internal/player"
	"github.com/hezhaoyun/ichess-server/internal/server"
	"github.com/hezhaoyun/ichess-server/internal/transport"
)

func main() {
	// Load configuration
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting chess server in %s mode", cfg.Environment)

	// Connect to MongoDB
	mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongodb.Close(ctx)
	}()

	log.Printf("Connected to MongoDB database: %s", cfg.MongoDB.Database)

	// Engine pool
	enginePath := cfg.Engine.Path
	if enginePath == "" {
		enginePath, err = engine.BinaryPath()
		if err != nil {
			log.Fatalf("Failed to select engine binary: %v", err)
		}
	}
	log.Printf("Using engine binary: %s", enginePath)
	pool := engine.NewPool(enginePath, cfg.Engine.PoolSize)
	defer pool.Close()

	// Player store and game server
	store := player.NewStore(mongodb)

	// Hub and server reference each other: the hub delivers inbound
	// events to the server, the server sends through the hub's facade.
	hub := transport.NewHub()
	srv := server.NewServer(store, hub, pool, server.Options{
		BotWait:     time.Duration(cfg.Matchmaking.BotWaitSeconds) * time.Second,
		MatchPeriod: time.Duration(cfg.Matchmaking.PeriodSeconds) * time.Second,
		TickPeriod:  time.Duration(cfg.Clock.TickSeconds) * time.Second,
	})
	hub.SetHandler(srv)
	srv.Start()
	defer srv.Stop()

	// Set up router
	router := mux.NewRouter()

	router.HandleFunc("/ws", hub.HandleWebSocket)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		online, waiting := srv.Stats()
		fmt.Fprintf(w, "Welcome to Chessroad!\n")
		fmt.Fprintf(w, "Server time: %s\n", time.Now().Format("15:04"))
		fmt.Fprintf(w, "Players online: %d\n", online)
		fmt.Fprintf(w, "Waiting for match: %d\n", waiting)
	}).Methods("GET")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// CORS middleware
	allowedOrigins := []string{"*"}
	if cfg.Frontend.URL != "" {
		allowedOrigins = []string{cfg.Frontend.URL}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     corsHandler.Handler(router),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
