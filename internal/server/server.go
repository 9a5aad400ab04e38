// Package server wires the stores, state machine adapter, and handlers into
// an HTTP router.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/duetlabs/duet/internal/backup"
	"github.com/duetlabs/duet/internal/config"
	"github.com/duetlabs/duet/internal/email"
	"github.com/duetlabs/duet/internal/handler"
	"github.com/duetlabs/duet/internal/metrics"
	"github.com/duetlabs/duet/internal/middleware"
	"github.com/duetlabs/duet/internal/push"
	"github.com/duetlabs/duet/internal/store"
	"github.com/duetlabs/duet/internal/syncer"
	ws "github.com/duetlabs/duet/internal/websocket"
)

type Server struct {
	db  *sql.DB
	cfg config.Config
	hub *ws.Hub

	authH     *handler.AuthHandler
	coupleH   *handler.CoupleHandler
	taskH     *handler.TaskHandler
	rewardH   *handler.RewardHandler
	settingsH *handler.SettingsHandler
	pushH     *handler.PushHandler
	resetH    *handler.ResetHandler

	sessionStore *store.SessionStore
	userStore    *store.UserStore

	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	taskStore := store.NewTaskStore(db)
	rewardStore := store.NewRewardStore(db)
	sessionStore := store.NewSessionStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	sync := syncer.New(db, userStore, taskStore, rewardStore, hub, logger.With("component", "syncer"))

	mailer := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From, cfg.Server.BaseURL)

	pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber, logger.With("component", "push"))
	notifier := push.NewNotifier(pushSvc, pushStore, userStore, logger.With("component", "push"))

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3Endpoint,
			Bucket:    cfg.Backup.S3Bucket,
			Region:    cfg.Backup.S3Region,
			AccessKey: cfg.Backup.S3AccessKey,
			SecretKey: cfg.Backup.S3SecretKey,
		},
		Passphrase: cfg.Backup.Passphrase,
		Interval:   cfg.Backup.IntervalDuration(),
		Keep:       cfg.Backup.Keep,
	}, db, backupStore, logger.With("component", "backup"))

	return &Server{
		db:            db,
		cfg:           cfg,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, sessionStore, sync, logger.With("component", "auth")),
		coupleH:       handler.NewCoupleHandler(userStore, sync, mailer, logger.With("component", "couple")),
		taskH:         handler.NewTaskHandler(sync, taskStore, notifier, logger.With("component", "task")),
		rewardH:       handler.NewRewardHandler(sync, rewardStore, notifier, logger.With("component", "reward")),
		settingsH:     handler.NewSettingsHandler(settingsStore, logger.With("component", "settings")),
		pushH:         handler.NewPushHandler(pushSvc, pushStore, logger.With("component", "push_handler")),
		resetH:        handler.NewResetHandler(sync, logger.With("component", "reset")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)
	if s.cfg.Metrics.Enabled {
		outerMux.Handle("GET /metrics", metrics.Handler())
	}

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Couple linking
	mux.HandleFunc("POST /api/couple/code", s.coupleH.GenerateCode)
	mux.HandleFunc("POST /api/couple/link", s.coupleH.Link)
	mux.HandleFunc("POST /api/couple/invite", s.coupleH.Invite)

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /api/tasks/{id}/evaluate", s.taskH.Evaluate)

	// Rewards and redemptions
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("PUT /api/rewards/{id}", s.rewardH.Update)
	mux.HandleFunc("DELETE /api/rewards/{id}", s.rewardH.Delete)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/redemptions", s.rewardH.ListRedemptions)
	mux.HandleFunc("POST /api/redemptions/{id}/rate", s.rewardH.RateRedemption)
	mux.HandleFunc("GET /api/balance", s.rewardH.Balance)
	mux.HandleFunc("GET /api/balances", s.rewardH.Balances)

	// Settings
	mux.HandleFunc("GET /api/settings/theme", s.settingsH.GetTheme)
	mux.HandleFunc("PUT /api/settings/theme", s.settingsH.SetTheme)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// Danger zone
	mux.HandleFunc("POST /api/reset", s.resetH.Reset)

	// Change notifications
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
