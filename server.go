package livemaphub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/theoremus-urban-solutions/livemap-hub/channel"
	"github.com/theoremus-urban-solutions/livemap-hub/config"
	"github.com/theoremus-urban-solutions/livemap-hub/flights"
	"github.com/theoremus-urban-solutions/livemap-hub/hub"
	"github.com/theoremus-urban-solutions/livemap-hub/metrics"
)

var server *http.Server

func StartServer(registry *hub.Registry, flightSvc *flights.Service, collector *metrics.Collector) {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/ws", channel.NewHandler(registry).ServeHTTP)
	r.Get("/api/health", handleHealth(registry))
	r.Get("/api/flight", flightSvc.ServeHTTP)
	r.Handle("/metrics", collector.Handler())

	addr := fmt.Sprintf(":%d", config.Config.Server.Port)
	server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", addr)
}

type healthResponse struct {
	Status        string `json:"status"`
	ActiveBrokers int    `json:"active_brokers"`
}

func handleHealth(registry *hub.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := healthResponse{
			Status:        "ok",
			ActiveBrokers: registry.BrokerCount(),
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func HandleGracefulShutdown(registry *hub.Registry) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("server shutdown error: %v", err)
		} else {
			log.Printf("server shut down successfully")
		}
	}
	registry.Close()
}
