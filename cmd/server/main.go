// Package main - Campaign Chat conversation router entry point
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"campaign-chat/internal/adapters/gateway"
	"campaign-chat/internal/adapters/handler"
	"campaign-chat/internal/adapters/repository"
	"campaign-chat/internal/config"
	"campaign-chat/internal/core/services"
)

func main() {
	// 1. Load Configuration from Environment
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to MariaDB with Retry Logic
	// Docker containers may not be ready immediately, so we retry
	db := connectMariaDB(cfg.DB, 5, 2*time.Second)
	defer db.Close()

	// 3. Connect to Redis with Retry Logic
	rdb := connectRedis(cfg.Redis, 5, 2*time.Second)
	defer rdb.Close()

	// 4. Repository adapters (implementing ports)
	store := repository.NewMariaDBRepository(db)
	cache := repository.NewRedisCache(rdb, cfg.Redis.Prefix)

	// 5. Gateway adapters (external collaborators)
	users := gateway.NewNorthstarClient(cfg.Upstream.NorthstarBaseURI, cfg.Upstream.NorthstarAPIKey)
	content := gateway.NewContentClient(cfg.Upstream.ContentBaseURI, cfg.Upstream.ContentAPIKey)
	oracle := gateway.NewDialogueClient(cfg.Upstream.DialogueBaseURI)
	sender := gateway.NewTwilioClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
	renderer := gateway.NewTagRenderer()

	// 6. Core services (business logic)
	state := services.NewStateMachine(store)
	classifier := services.NewClassifier(content, cache, cfg.Redis.CacheTTL)
	factory := services.NewMessageFactory(store, store, renderer)
	processor := services.NewProcessor(
		state,
		classifier,
		factory,
		store,   // ConversationRepository
		store,   // MessageRepository
		users,   // UserService
		content, // ContentService
		oracle,  // ReplyOracle
		sender,  // MessageSender
	)

	// 7. HTTP handlers
	messagesHandler := handler.NewMessagesHandler(processor, cfg.App.APIKey, cfg.App.AppSecret)

	// Start retention watchdog
	services.RunWatchdog(db)

	// 8. Start HTTP Server
	startHTTPServer(cfg.App.Port, messagesHandler)
}

// connectMariaDB attempts to connect to MariaDB with retry logic
func connectMariaDB(cfg config.DBConfig, maxRetries int, retryDelay time.Duration) *sql.DB {
	dsn := cfg.GetDSN()

	var db *sql.DB
	var err error

	for i := 1; i <= maxRetries; i++ {
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			log.Printf("  Attempt %d/%d: Failed to configure DB driver: %v", i, maxRetries, err)
			time.Sleep(retryDelay)
			continue
		}

		// Test the connection with Ping
		err = db.Ping()
		if err == nil {
			return db
		}

		log.Printf("  Attempt %d/%d: Cannot ping MariaDB: %v", i, maxRetries, err)
		db.Close()

		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	log.Fatalf("Cannot connect to MariaDB after %d attempts: %v", maxRetries, err)
	return nil // unreachable
}

// connectRedis attempts to connect to Redis with retry logic
func connectRedis(cfg config.RedisConfig, maxRetries int, retryDelay time.Duration) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})

	ctx := context.Background()
	var err error

	for i := 1; i <= maxRetries; i++ {
		err = rdb.Ping(ctx).Err()
		if err == nil {
			return rdb
		}

		log.Printf("  Attempt %d/%d: Cannot ping Redis: %v", i, maxRetries, err)

		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	log.Fatalf("Cannot connect to Redis after %d attempts: %v", maxRetries, err)
	return nil // unreachable
}

// startHTTPServer starts the HTTP server with the messages endpoints
func startHTTPServer(port int, messagesHandler *handler.MessagesHandler) {
	// Health check endpoint
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"code":200,"message":"Campaign Chat is running","data":null}`)
	})

	// POST /api/v2/messages?origin=broadcastLite|twilio
	http.HandleFunc("/api/v2/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		messagesHandler.HandleMessages(w, r)
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("[HTTP] Server listening on %s", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
