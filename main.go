package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pollbox/pollbox/handlers"
	"github.com/pollbox/pollbox/internal/config"
	"github.com/pollbox/pollbox/internal/database"
	"github.com/pollbox/pollbox/internal/poll/repository"
	pollsvc "github.com/pollbox/pollbox/internal/poll/service"
	"github.com/pollbox/pollbox/internal/ratelimit"
	"github.com/pollbox/pollbox/internal/security"
	"github.com/pollbox/pollbox/internal/sessions"
	"github.com/pollbox/pollbox/internal/users"
	"github.com/pollbox/pollbox/pkg/logger"
	"github.com/pollbox/pollbox/pkg/metrics"
	"github.com/pollbox/pollbox/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// log level controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v jwt_secret_set=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Auth.JWTSecret != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond
	// to OPTIONS. Production deployments should put a stricter policy in front.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-CSRF-Token")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Retry-After")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	r.Use(gin.Logger(), gin.Recovery())

	// Coarse per-IP flood gate in front of the whole router. The per-action
	// budgets (create poll, vote, login, register) live inside the services.
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	r.Use(middleware.CallerExtractor(cfg.Auth.SessionCookie))

	ctx := context.Background()

	// Connect to Redis early; sessions prefer it when available.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	var sessionSvc *sessions.Service
	if redisClient != nil {
		sessionSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
		logger.Infof("using Redis for session storage")
	} else {
		sessionSvc = sessions.NewService(sessions.NewMemoryRepository())
		logger.Warnf("using in-memory session storage; sessions will not survive restarts")
	}

	// Connect to MongoDB with retry/backoff to tolerate startup races.
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, err = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if err == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if mongoClient != nil {
			defer func() { _ = mongoClient.Disconnect(ctx) }()
		}
	}

	var userRepo users.UserRepository
	var pollRepo repository.PollRepository
	var voteRepo repository.VoteRepository
	if mongoClient != nil {
		db := mongoClient.Database(cfg.MongoDB.Database)
		userRepo = users.NewMongoUserRepository(db.Collection("users"))
		pollRepo = repository.NewMongoPollRepository(db.Collection("polls"))
		voteRepo = repository.NewMongoVoteRepository(db.Collection("votes"))
		logger.Infof("connected to MongoDB database %q", cfg.MongoDB.Database)
	} else {
		userRepo = users.NewMemoryUserRepository()
		pollRepo = repository.NewMemoryPollRepository()
		voteRepo = repository.NewMemoryVoteRepository()
		logger.Warnf("MongoDB unavailable; using in-memory storage (development only)")
	}

	limiter := ratelimit.New()
	userSvc := users.NewService(userRepo, limiter, cfg.Auth.BcryptCost)
	resolver := security.NewResolver(sessionSvc, userSvc, cfg.Auth.JWTSecret)
	svc := pollsvc.New(pollRepo, voteRepo, limiter, resolver)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when the dependencies we were configured with respond
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		if cfg.MongoDB.URI != "" {
			deps["mongo"] = mongoClient != nil
			if !deps["mongo"] {
				ready = false
			}
		} else {
			deps["mongo"] = true
		}
		if cfg.Redis.Host != "" {
			deps["redis"] = redisClient != nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status := http.StatusOK
		label := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			label = "not_ready"
		}
		c.JSON(status, gin.H{"status": label, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	api := r.Group("/api")
	handlers.NewAuthHandler(cfg, userSvc, sessionSvc, resolver).Register(api)
	handlers.NewPollHandler(svc, sessionSvc).Register(api)
	handlers.NewVoteHandler(svc, sessionSvc).Register(api)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting pollbox on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
