// Package database provides the Postgres-backed collaborators: the durable
// round store and the append-only transaction log, plus health checks and
// migration helpers.
package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
)

type Service interface {
	Pool() *pgxpool.Pool
	Health() map[string]string
	Close()
}

type service struct {
	pool *pgxpool.Pool
}

var (
	database   = os.Getenv("CASINO_DB_DATABASE")
	password   = os.Getenv("CASINO_DB_PASSWORD")
	username   = os.Getenv("CASINO_DB_USERNAME")
	port       = os.Getenv("CASINO_DB_PORT")
	host       = os.Getenv("CASINO_DB_HOST")
	schema     = os.Getenv("CASINO_DB_SCHEMA")
	dbInstance *service
)

func New() Service {
	if dbInstance != nil {
		return dbInstance
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, ConnectionString())
	if err != nil {
		log.Fatalf("[DB] Invalid database configuration: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("[DB] Database connection failed: %v", err)
	}

	log.Println("[DB] Postgres connected successfully")

	dbInstance = &service{pool: pool}
	return dbInstance
}

// ConnectionString assembles the DSN from the CASINO_DB_* environment.
func ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		orDefault(username, "postgres"),
		orDefault(password, "postgres"),
		orDefault(host, "localhost"),
		orDefault(port, "5432"),
		orDefault(database, "casino"),
		orDefault(schema, "public"),
	)
}

func (s *service) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	poolStats := s.pool.Stat()
	stats["total_conns"] = strconv.FormatInt(int64(poolStats.TotalConns()), 10)
	stats["idle_conns"] = strconv.FormatInt(int64(poolStats.IdleConns()), 10)
	stats["acquired_conns"] = strconv.FormatInt(int64(poolStats.AcquiredConns()), 10)
	stats["acquire_count"] = strconv.FormatInt(poolStats.AcquireCount(), 10)

	return stats
}

func (s *service) Close() {
	log.Println("[DB] Disconnecting from Postgres")
	s.pool.Close()
}

func orDefault(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}
