package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gasdash-backend/internal/config"
	"gasdash-backend/internal/database"
	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/handlers"
	"gasdash-backend/internal/identity"
	"gasdash-backend/internal/resource"
	"gasdash-backend/internal/services"
	"gasdash-backend/internal/websocket"
	"gasdash-backend/internal/workspace"

	firebase "firebase.google.com/go/v4"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func fatal(title string, err error, hints ...string) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("❌ FATAL ERROR: %s", title)
	log.Printf("   Error: %v", err)
	for _, h := range hints {
		log.Printf("   %s", h)
	}
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Fatal(err)
}

// identityProvider is a Provider that can also drop sessions on this
// instance, which the Redis relay needs
type identityProvider interface {
	identity.Provider
	identity.LocalRevoker
}

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 GAS DELIVERY DASHBOARD BACKEND STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg, err := config.Load("")
	if err != nil {
		fatal("Invalid configuration", err)
	}
	log.Printf("✅ Configuration loaded (store backend: %s)", cfg.StoreBackend)

	// Firebase app, shared by Firestore, Auth and Cloud Messaging
	var app *firebase.App
	if cfg.FirebaseEnabled() {
		app, err = services.NewFirebaseApp(ctx, cfg.FirebaseCredentialsBase64, cfg.FirebaseCredentialsFile, cfg.FirebaseProjectID)
		if err != nil {
			if cfg.StoreBackend == config.BackendFirestore {
				fatal("Firebase initialization failed", err)
			}
			log.Printf("⚠️  Failed to initialize Firebase: %v (push notifications disabled)", err)
			app = nil
		} else {
			log.Println("✅ Firebase app initialized")
		}
	}

	// Postgres backs the document store in postgres mode and the local
	// credential table whenever Firebase Auth is not used
	var db *sqlx.DB
	if cfg.DatabaseURL != "" && (cfg.StoreBackend == config.BackendPostgres || app == nil || cfg.FirebaseAPIKey == "") {
		log.Println("🔌 Connecting to database...")
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			fatal("Database connection failed", err,
				"This is usually caused by:",
				"1. Wrong DATABASE_URL format",
				"2. PostgreSQL service is down",
				"3. Network connectivity issue",
				"4. Invalid credentials")
		}
		defer db.Close()

		log.Println("🔄 Running database migrations...")
		if err := database.Migrate(db); err != nil {
			fatal("Database migrations failed", err)
		}
	}

	// Document store
	var docs docstore.Store
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			fatal("Firestore client failed", err)
		}
		defer client.Close()
		docs = docstore.NewFirestore(client)
	case config.BackendPostgres:
		docs = docstore.NewPostgres(db)
	default:
		log.Println("⚠️  Using the in-memory document store; data is lost on restart")
		docs = docstore.NewMemory()
	}

	// Identity provider
	var provider identityProvider
	switch {
	case app != nil && cfg.FirebaseAPIKey != "":
		fb, err := identity.NewFirebase(ctx, app, cfg.FirebaseAPIKey, cfg.TokenLifetime())
		if err != nil {
			fatal("Firebase Auth initialization failed", err)
		}
		provider = fb
		log.Println("✅ Identity provider: Firebase Auth")
	case db != nil:
		local := identity.NewLocal(db, cfg.JWTSecret, cfg.TokenLifetime())
		provider = local
		log.Println("✅ Identity provider: local credentials")
		// Idempotent; also restores demo profiles the memory store lost on restart
		log.Println("🌱 Seeding database with initial data...")
		if err := database.SeedAccounts(ctx, db, local, docs, database.DefaultAccounts); err != nil {
			fatal("Account seeding failed", err)
		}
	default:
		fatal("No identity provider", errors.New("set FIREBASE_API_KEY with Firebase credentials, or DATABASE_URL for local credentials"))
	}

	var sessions identity.Provider = provider
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️  Redis unreachable at %s: %v (revocations stay local)", cfg.RedisAddr, err)
			rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
			relay := identity.NewRelay(provider, rdb, cfg.RevocationChannel)
			go func() {
				if err := relay.Start(ctx, nil); err != nil && ctx.Err() == nil {
					log.Printf("❌ Revocation relay stopped: %v", err)
				}
			}()
			sessions = relay
			log.Printf("✅ Revocation relay on Redis %s", cfg.RedisAddr)
		}
	}

	// Push notifications
	var pusher resource.Pusher
	if app != nil {
		fcm, err := services.NewFCMService(ctx, app)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM: %v (push notifications disabled)", err)
		} else {
			pusher = services.NewFCMPusher(fcm, docs)
			log.Println("✅ Firebase Cloud Messaging initialized")
		}
	}

	// Geocoding
	var geocoder services.Geocoder
	var geocodeCache *services.GeocodeCache
	if cfg.GoogleMapsAPIKey != "" {
		gs, err := services.NewGeocodingService(cfg.GoogleMapsAPIKey)
		if err != nil {
			fatal("Geocoding service failed", err)
		}
		geocodeCache = services.NewGeocodeCache(gs, rdb)
		defer geocodeCache.Close()
		geocoder = geocodeCache
		log.Println("✅ Geocoding enabled")
	} else {
		log.Println("⚠️  GOOGLE_MAPS_API_KEY not set, customer addresses will not be geocoded")
	}

	deps := workspace.Deps{Store: docs, Provider: sessions}
	if geocoder != nil {
		deps.Geocoder = geocoder
	}
	if pusher != nil {
		deps.Pusher = pusher
	}
	registry := workspace.NewRegistry(deps)
	defer registry.Close()

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run(ctx)
	log.Println("✅ WebSocket hub started")

	router := handlers.NewRouter(handlers.RouterConfig{
		Registry:       registry,
		Provider:       sessions,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Geocoder:       geocoder,
		GeocodeCache:   geocodeCache,
		WebSocket: websocket.HandleWebSocket(hub, cfg.JWTSecret, registry,
			websocket.NewUpgrader(cfg.AllowedOrigins), cfg.Debounce()),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fatal("Server failed to start", err, "Port: "+cfg.Port)
		}
	case <-ctx.Done():
		log.Println("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Graceful shutdown failed: %v", err)
		}
	}
	log.Println("👋 Server stopped")
}
