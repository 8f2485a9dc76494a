package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thanhnp/record-ledger/internal/api"
	"github.com/thanhnp/record-ledger/internal/api/handlers"
	"github.com/thanhnp/record-ledger/internal/config"
	"github.com/thanhnp/record-ledger/internal/ledger"
	"github.com/thanhnp/record-ledger/internal/models"
	"github.com/thanhnp/record-ledger/internal/notifier"
	"github.com/thanhnp/record-ledger/internal/storage"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Starting record ledger server...")

	registry := ledger.NewRegistry()
	blockNotifier := notifier.New(notifier.DefaultBuffer)
	schemas := make(map[string]handlers.PayloadValidator)

	// Track ledger stores for cleanup
	var ledgerStores []*storage.LedgerStores
	closeStores := func() {
		for _, ls := range ledgerStores {
			if err := ls.Close(); err != nil {
				log.Printf("Error closing ledger database: %v", err)
			}
		}
	}

	for _, lc := range cfg.Ledgers {
		if cfg.Pebble.InMemory {
			log.Printf("Opening in-memory Pebble database for ledger %s", lc.Name)
		} else {
			log.Printf("Opening Pebble database for ledger %s under %s", lc.Name, cfg.Pebble.Path)
		}
		stores, err := storage.OpenLedgerStores(cfg.Pebble.Path, lc.Name, cfg.Pebble.InMemory)
		if err != nil {
			closeStores()
			log.Fatalf("Failed to open ledger database: %v", err)
		}
		stores.DB.SetNoSync(cfg.Pebble.NoSync || cfg.Pebble.InMemory)
		ledgerStores = append(ledgerStores, stores)

		l, err := openLedger(lc, stores.BlockStore, blockNotifier)
		if err != nil {
			closeStores()
			log.Fatalf("Failed to open ledger %s: %v", lc.Name, err)
		}
		registry.Register(lc.Name, l)

		if v := handlers.ValidatorFor(lc.Schema); v != nil {
			schemas[lc.Name] = v
		}
		log.Printf("[%s] Ready with %d blocks (link rule %s)", lc.Name, l.Len(), l.LinkRule())
	}

	// Initialize API router with the ledger registry
	router := api.NewRouter(registry, blockNotifier, api.Settings{
		AuthToken: cfg.Server.AuthToken,
		AuthReads: cfg.Server.AuthReads,
		Schemas:   schemas,
	})
	if cfg.Server.AuthToken == "" {
		log.Println("Warning: no auth token configured, ledger routes are open")
	} else if !cfg.Server.AuthReads {
		log.Println("Warning: auth_reads is off, records are readable without a token")
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Engine(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streams stay open
		IdleTimeout:  120 * time.Second,
	}

	// Start HTTP server in goroutine
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// End open block streams so their requests can finish
	blockNotifier.Close()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Close all ledger databases once no request can append
	closeStores()

	log.Println("Server stopped")
}

// openLedger opens one configured ledger on top of its block store
func openLedger(lc config.LedgerConfig, store ledger.Store, n notifier.BlockNotifier) (*ledger.Ledger, error) {
	rule, err := ledger.ParseLinkRule(lc.LinkRule)
	if err != nil {
		return nil, err
	}

	name := lc.Name
	return ledger.Open(store, ledger.Options{
		Name:           name,
		Clock:          ledger.SystemClock{},
		LinkRule:       rule,
		GenesisPayload: lc.Genesis,
		Collection:     lc.Collection,
		IDField:        lc.IDField,
		OnAppend: func(block models.Block) {
			n.Publish(name, block)
		},
	})
}
