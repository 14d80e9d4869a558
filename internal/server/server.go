package server

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"minicasino/internal/cache"
	"minicasino/internal/database"
	"minicasino/internal/game"
	"minicasino/internal/ledger"
)

type balanceWriter interface {
	game.UserLedger
	SetBalance(ctx context.Context, userID string, amount float64) error
}

type FiberServer struct {
	*fiber.App

	db    database.Service
	cache cache.Service

	userLedger balanceWriter
	rounds     game.RoundStore

	gameHub     *game.Hub
	gameFactory *game.GameFactory
	rooms       *game.Coordinator
}

func New() *FiberServer {
	// Postgres backs the durable round store and transaction log.
	db := database.New()
	txLog := database.NewTxLog(db.Pool())
	roundStore := database.NewRoundStore(db.Pool())

	// Redis backs balances and in-flight game state. Without it the server
	// still runs for local development, on in-memory collaborators.
	redisService := cache.New()

	var (
		userLedger balanceWriter
		states     game.StateStore
	)
	if redisService != nil {
		userLedger = ledger.NewRedisLedger(redisService.GetClient())
		states = cache.NewStateStore(redisService.GetClient())
	} else {
		log.Println("[SERVER] Redis unavailable, using in-memory balances and game state")
		userLedger = ledger.NewMemoryLedger()
		states = ledger.NewMemoryStateStore()
	}

	hub := game.NewHub()

	deps := game.Deps{
		Ledger: userLedger,
		TxLog:  txLog,
		Rounds: roundStore,
		States: states,
		Hub:    hub,
	}

	factory := game.NewGameFactory()
	factory.RegisterEngine(game.NewCrashEngine(deps))
	factory.RegisterEngine(game.NewDiceEngine(deps))
	factory.RegisterEngine(game.NewMinesEngine(deps))

	retention := time.Duration(getEnvAsInt("ROOM_RETENTION_MINUTES", 60)) * time.Minute
	rooms := game.NewCoordinator(deps, retention)

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "minicasino",
			AppName:       "minicasino",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		db:          db,
		cache:       redisService,
		userLedger:  userLedger,
		rounds:      roundStore,
		gameHub:     hub,
		gameFactory: factory,
		rooms:       rooms,
	}

	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	go hub.Run()

	if err := factory.StartAll(); err != nil {
		log.Printf("[SERVER] Failed to start game engines: %v", err)
	}

	log.Println("[SERVER] Game engines and room coordinator started")

	return server
}

// Close stops the engines and releases storage connections. The HTTP
// listener itself is shut down through the embedded fiber.App.
func (s *FiberServer) Close() error {
	log.Println("[SERVER] Shutting down...")

	if s.gameFactory != nil {
		if err := s.gameFactory.StopAll(); err != nil {
			log.Printf("[SERVER] Error stopping game engines: %v", err)
		}
	}

	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return nil
}
