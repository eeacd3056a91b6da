package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	api "github.com/quizsmith/quizsmith/internal/api/http"
	"github.com/quizsmith/quizsmith/internal/attempt"
	auth "github.com/quizsmith/quizsmith/internal/auth/middleware"
	"github.com/quizsmith/quizsmith/internal/config"
	"github.com/quizsmith/quizsmith/internal/db"
	"github.com/quizsmith/quizsmith/internal/question"
	"github.com/quizsmith/quizsmith/internal/rbac"
	"github.com/quizsmith/quizsmith/internal/structure"
	syncx "github.com/quizsmith/quizsmith/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	var logger *zap.Logger
	var err error
	if cfg.Mode == config.ModeProd {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}

	coord := structure.NewCoordinator(
		dbh, cfg.DBDriver,
		question.NewSQLStore(),
		attempt.NewSQLEngine(),
		syncx.NewEventRepo(),
		logger.Named("structure"),
	)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("quiz:view-structure")).
			Get("/quizzes/{quizID}/structure", api.GetStructureHandler(coord))
		pr.With(rbac.Require("quiz:view-structure")).
			Get("/quizzes/{quizID}/numbering", api.NumberSlotsHandler(coord))

		pr.With(rbac.Require("quiz:edit-structure")).
			Post("/quizzes/{quizID}/slots", api.AppendSlotHandler(coord))
		pr.With(rbac.Require("quiz:edit-structure")).
			Post("/quizzes/{quizID}/slots/{slotID}/move", api.MoveSlotHandler(coord))
		pr.With(rbac.Require("quiz:edit-structure")).
			Delete("/quizzes/{quizID}/slots/{ordinal}", api.RemoveSlotHandler(coord))
		pr.With(rbac.Require("quiz:edit-structure")).
			Post("/quizzes/{quizID}/slots/{slotID}/pagebreak", api.PageBreakHandler(coord))
		pr.With(rbac.Require("quiz:edit-marks")).
			Patch("/quizzes/{quizID}/slots/{slotID}/maxmark", api.MaxMarkHandler(coord))
		pr.With(rbac.Require("quiz:edit-structure")).
			Patch("/quizzes/{quizID}/slots/{slotID}/dependency", api.DependencyHandler(coord))

		pr.With(rbac.Require("quiz:edit-structure")).
			Post("/quizzes/{quizID}/sections", api.AddSectionHandler(coord))
		pr.With(rbac.Require("section:edit-meta")).
			Patch("/quizzes/{quizID}/sections/{sectionID}", api.UpdateSectionHandler(coord))
		pr.With(rbac.Require("quiz:edit-structure")).
			Delete("/quizzes/{quizID}/sections/{sectionID}", api.RemoveSectionHandler(coord))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	logger.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("mode", string(cfg.Mode)),
		zap.String("db", cfg.DBDriver))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
