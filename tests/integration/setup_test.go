// Package integration contains integration tests for the matching engine.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle over a live server
// - Database tests: match-and-settle transactions against live Postgres
// - WebSocket tests: trade feed broadcast after settlement
//
// Tests skip automatically when the test database is unreachable.
// Configure with TEST_DB_* environment variables.
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"metalex/internal/api"
	"metalex/internal/engine"
	"metalex/internal/models"
	"metalex/internal/repository"
	"metalex/internal/service"
	"metalex/internal/websocket"
)

// TestConfig contains configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB       *sql.DB
	Router   *mux.Router
	Server   *httptest.Server
	Hub      *websocket.Hub
	Repos    *TestRepositories
	Services *TestServices
	Cleanup  func()
}

// TestRepositories contains all repository instances for testing
type TestRepositories struct {
	Order   *repository.OrderRepository
	Trade   *repository.TradeRepository
	Holding *repository.HoldingRepository
}

// TestServices contains all service instances for testing
type TestServices struct {
	Match *service.MatchService
	Book  *service.BookService
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "metalex_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open(config.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// SetupTestServer creates a complete test server with all components
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	if err := initTestTables(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
		return nil
	}

	logger := zap.NewNop()

	hub := websocket.NewHub(logger)
	go hub.Run()

	repos := &TestRepositories{
		Order:   repository.NewOrderRepository(db),
		Trade:   repository.NewTradeRepository(db),
		Holding: repository.NewHoldingRepository(db),
	}

	settler := engine.NewSettlementCoordinator(db, repos.Order, repos.Trade, repos.Holding, logger)
	locks := engine.NewInstrumentLocks()

	services := &TestServices{
		Match: service.NewMatchService(repos.Order, settler, locks, hub, logger, 3, 10*time.Millisecond),
		Book:  service.NewBookService(repos.Order, repos.Trade, repos.Holding),
	}

	deps := &api.Dependencies{
		MatchService: services.Match,
		BookService:  services.Book,
		TradeFeedWS:  hub.ServeWS,
		Logger:       logger,
	}
	router := api.SetupRoutes(deps)

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:       db,
		Router:   router,
		Server:   server,
		Hub:      hub,
		Repos:    repos,
		Services: services,
		Cleanup:  cleanup,
	}
}

// initTestTables creates or truncates tables for testing
func initTestTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			instrument_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			side VARCHAR(4) NOT NULL,
			limit_price NUMERIC(20, 8) NOT NULL CHECK (limit_price > 0),
			quantity NUMERIC(20, 8) NOT NULL CHECK (quantity > 0),
			filled_quantity NUMERIC(20, 8) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			instrument_id TEXT NOT NULL,
			buy_order_id TEXT NOT NULL,
			sell_order_id TEXT NOT NULL,
			buyer_id TEXT NOT NULL,
			seller_id TEXT NOT NULL,
			quantity NUMERIC(20, 8) NOT NULL CHECK (quantity > 0),
			price NUMERIC(20, 8) NOT NULL CHECK (price > 0),
			executed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS holdings (
			user_id TEXT NOT NULL,
			instrument_id TEXT NOT NULL,
			balance NUMERIC(20, 8) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, instrument_id)
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// cleanupTestTables truncates all test tables
func cleanupTestTables(db *sql.DB) {
	tables := []string{
		"trades",
		"orders",
		"holdings",
	}

	for _, table := range tables {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}
}

// insertOrder seeds a resting order directly into the ledger
func insertOrder(t *testing.T, db *sql.DB, order *models.Order) string {
	t.Helper()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	_, err := db.Exec(`
		INSERT INTO orders (id, instrument_id, owner_id, side, limit_price, quantity, filled_quantity, status, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		order.ID, order.InstrumentID, order.OwnerID, order.Side,
		order.LimitPrice, order.Quantity, order.FilledQuantity, order.Status, order.Version,
	)
	if err != nil {
		t.Fatalf("failed to insert order: %v", err)
	}
	return order.ID
}

// seedHolding credits a user balance directly
func seedHolding(t *testing.T, db *sql.DB, userID, instrumentID string, balance decimal.Decimal) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO holdings (user_id, instrument_id, balance, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, instrument_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()`,
		userID, instrumentID, balance,
	)
	if err != nil {
		t.Fatalf("failed to seed holding: %v", err)
	}
}

// buyOrder builds an open buy order for tests
func buyOrder(owner, instrument, price, qty string) *models.Order {
	return &models.Order{
		InstrumentID:   instrument,
		OwnerID:        owner,
		Side:           models.SideBuy,
		LimitPrice:     decimal.RequireFromString(price),
		Quantity:       decimal.RequireFromString(qty),
		FilledQuantity: decimal.Zero,
		Status:         models.OrderStatusOpen,
		Version:        1,
	}
}

// sellOrder builds an open sell order for tests
func sellOrder(owner, instrument, price, qty string) *models.Order {
	return &models.Order{
		InstrumentID:   instrument,
		OwnerID:        owner,
		Side:           models.SideSell,
		LimitPrice:     decimal.RequireFromString(price),
		Quantity:       decimal.RequireFromString(qty),
		FilledQuantity: decimal.Zero,
		Status:         models.OrderStatusOpen,
		Version:        1,
	}
}
