package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/picload/picload/handlers"
	"github.com/picload/picload/internal/assets"
	"github.com/picload/picload/internal/config"
	"github.com/picload/picload/internal/database"
	"github.com/picload/picload/internal/oidc"
	"github.com/picload/picload/internal/orphans"
	"github.com/picload/picload/internal/sessions"
	"github.com/picload/picload/internal/storage"
	"github.com/picload/picload/internal/tokens"
	"github.com/picload/picload/internal/users"
	"github.com/picload/picload/pkg/logger"
	"github.com/picload/picload/pkg/metrics"
	"github.com/picload/picload/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: oidc=%v mongo=%v redis=%v", cfg.OIDC.Issuer != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple; production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	r.Use(gin.Logger(), gin.Recovery())

	// shared runtime vars used by handlers/readiness
	var verifier middleware.Verifier
	var userSvc *users.Service
	var sessionsSvc *sessions.Service
	var assetStore *storage.MinIOStorage

	// Connect to Redis early so the rate limiter and token blacklist can use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := redisClient.Ping(context.Background()).Err(); err == nil {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["users"] = userSvc != nil
		deps["sessions"] = sessionsSvc != nil
		if userSvc == nil || sessionsSvc == nil {
			ready = false
		}

		deps["storage"] = assetStore != nil
		if assetStore == nil {
			ready = false
		}

		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = redisClient != nil
			if redisClient == nil {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// Token verifier: external OIDC issuer when configured, otherwise
	// locally issued HS256 tokens. ALLOW_INSECURE_TOKEN is for
	// integration tests only.
	ctx := context.Background()
	if cfg.OIDC.Issuer != "" && cfg.OIDC.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, strings.TrimRight(cfg.OIDC.Issuer, "/"), cfg.OIDC.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && cfg.JWT.Secret != "" {
		verifier = tokens.NewVerifier(cfg.JWT.Secret)
	}
	if verifier == nil && strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure token verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}
	if verifier == nil {
		logger.Fatalf("no token verifier available: set OIDC_ISSUER/OIDC_CLIENT_ID or JWT_SECRET")
	}

	// Prefer Redis-backed sessions when available
	if redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
		logger.Infof("using Redis for session storage")
	}

	// MongoDB-backed user directory (+ sessions fallback). Retry with
	// backoff to tolerate container startup races.
	const maxAttempts = 5
	backoff := time.Second
	var client *mongo.Client
	var errConn error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if errConn == nil {
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if errConn != nil {
		logger.Fatalf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	usersCol := client.Database(cfg.MongoDB.Database).Collection("users")
	userSvc = users.NewService(users.NewMongoUserRepository(usersCol))

	if sessionsSvc == nil {
		sessionsCol := client.Database(cfg.MongoDB.Database).Collection("sessions")
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(sessionsCol))
	}

	// Remote asset store
	assetStore, err = storage.NewMinIOStorage(storage.LoadMinIOConfig())
	if err != nil {
		logger.Fatalf("failed to initialize object storage: %v", err)
	}

	ledger := &orphans.Ledger{MongoURI: cfg.MongoDB.URI, Database: cfg.MongoDB.Database}
	synchronizer := assets.NewSynchronizer(userSvc, assetStore, ledger)

	root := r.Group("/")
	handlers.NewAuthHandler(cfg, userSvc, sessionsSvc).Register(root)
	handlers.NewUserHandler(userSvc, assetStore, synchronizer).Register(root, verifier)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting picload on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
