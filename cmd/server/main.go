package main // Entry point package

import (
	"context" // Context for startup deadlines
	"log"     // Logging library
	"time"    // Timeouts

	"github.com/joho/godotenv"    // Optional .env loading for local runs
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/credzi/credzi/internal/algorand"   // Algorand node client
	"github.com/credzi/credzi/internal/config"     // Internal config loader
	"github.com/credzi/credzi/internal/database"   // MongoDB bootstrap
	"github.com/credzi/credzi/internal/handler"    // HTTP handlers
	"github.com/credzi/credzi/internal/ipfs"       // Pinata metadata publisher
	"github.com/credzi/credzi/internal/queue"      // Certificate event consumer
	"github.com/credzi/credzi/internal/repository" // Data access layer
	"github.com/credzi/credzi/internal/router"     // Internal router setup
	"github.com/credzi/credzi/internal/saga"       // Issuance orchestration
	queue_publisher "github.com/credzi/credzi/internal/service"
)

func main() {
	_ = godotenv.Load() // Load .env when present; real env always wins

	cfg := config.Load() // Load environment config

	// Connect to MongoDB and make sure the unique indexes that back
	// duplicate detection exist before serving traffic.
	db, err := database.Open(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("mongodb: %v", err)
	}
	idxCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := database.EnsureIndexes(idxCtx, db); err != nil {
		cancel()
		log.Fatalf("mongodb indexes: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient() // May be nil; rate limit and cache degrade gracefully

	// Consume certificate lifecycle events into logs/certificate.log.
	go func() {
		if err := queue.StartCertificateConsumer(); err != nil {
			log.Printf("certificate consumer stopped: %v", err)
		}
	}()

	ledger, err := algorand.NewLedger(cfg.AlgodURL, cfg.AlgodToken)
	if err != nil {
		log.Fatalf("algod: %v", err)
	}
	pinner := ipfs.NewPinner(cfg.PinataAPIKey, cfg.PinataSecret, "", cfg.IpfsGateway)

	users := repository.NewUserRepo(db)
	certs := repository.NewCertificateRepo(db)

	orch := saga.NewOrchestrator(ledger, ledger, certs, users, queue_publisher.PublishCertificateEvent)

	e := echo.New()          // Create Echo instance
	router.RegisterRoutes(e) // Register application routes
	router.RegisterAPI(e, cfg, router.Handlers{
		Users:        handler.NewUserHandler(cfg, users),
		Metadata:     handler.NewMetadataHandler(cfg, pinner),
		Prepare:      handler.NewPrepareHandler(ledger, pinner),
		Certificates: handler.NewCertificateHandler(cfg, orch, certs, users),
		OptIn:        handler.NewOptInHandler(ledger),
		Transfer:     handler.NewTransferHandler(orch, certs),
		Verify:       handler.NewVerifyHandler(ledger, pinner, certs, users),
	}, users, rdb)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
