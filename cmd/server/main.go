package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/inamate/logicsketch/internal/asset"
	"github.com/inamate/logicsketch/internal/auth"
	"github.com/inamate/logicsketch/internal/config"
	"github.com/inamate/logicsketch/internal/diagram"
	"github.com/inamate/logicsketch/internal/engine"
	mw "github.com/inamate/logicsketch/internal/middleware"
	"github.com/inamate/logicsketch/internal/session"
	"github.com/inamate/logicsketch/internal/store"
	"github.com/inamate/logicsketch/internal/typeid"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	queries := store.New(pool)
	if err := queries.Migrate(ctx); err != nil {
		return err
	}

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	diagramService := diagram.NewService(queries, diagram.Options{
		Resolution: cfg.ClockResolutionMS,
		HitRadius:  cfg.HitRadius,
		MaxTicks:   cfg.MaxTicks,
	})
	diagramHandler := diagram.NewHandler(diagramService)

	hub := session.NewHub(diagramService.LoadDocument, diagramService.SaveDocument, engine.Options{
		Resolution: cfg.ClockResolutionMS,
		HitRadius:  cfg.HitRadius,
	})

	assetHandler := asset.NewHandler(cfg.AssetDir)

	origins := mw.SplitOrigins(cfg.AllowedOrigins)

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Assets are public so the playground can place images too
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Playground queries need no account
	r.HandleFunc("/gates", diagramHandler.Gates).Methods("GET")
	r.HandleFunc("/playground/hittest", diagramHandler.HitTest).Methods("POST", "OPTIONS")
	r.HandleFunc("/playground/select", diagramHandler.Select).Methods("POST", "OPTIONS")
	r.HandleFunc("/playground/simulate", diagramHandler.Simulate).Methods("POST", "OPTIONS")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/documents", diagramHandler.List).Methods("GET")
	api.HandleFunc("/documents", diagramHandler.Create).Methods("POST")
	api.HandleFunc("/documents/{documentId}", diagramHandler.Get).Methods("GET")
	api.HandleFunc("/documents/{documentId}", diagramHandler.Delete).Methods("DELETE")
	api.HandleFunc("/documents/{documentId}/invite", diagramHandler.Invite).Methods("POST")
	api.HandleFunc("/documents/{documentId}/members", diagramHandler.ListMembers).Methods("GET")
	api.HandleFunc("/documents/{documentId}/members/{userId}", diagramHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/documents/{documentId}/snapshots/latest", diagramHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/documents/{documentId}/snapshots", diagramHandler.SaveSnapshot).Methods("POST")
	api.HandleFunc("/documents/{documentId}/hittest", diagramHandler.HitTest).Methods("POST")
	api.HandleFunc("/documents/{documentId}/select", diagramHandler.Select).Methods("POST")
	api.HandleFunc("/documents/{documentId}/simulate", diagramHandler.Simulate).Methods("POST")

	r.HandleFunc("/ws/document/{documentId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, diagramService, origins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, diagrams *diagram.Service, origins []string) {
	documentID := mux.Vars(r)["documentId"]
	if err := checkDocumentID(documentID); err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}

	var userID string
	var displayName string

	if documentID == diagram.PlaygroundID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		var err error
		userID, err = authSvc.Authenticate(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := diagrams.IsMember(r.Context(), documentID, userID); err != nil {
			http.Error(w, "not a document member", http.StatusForbidden)
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	room, err := hub.Open(r.Context(), documentID)
	if err != nil {
		slog.Error("open document", "document", documentID, "error", err)
		http.Error(w, "could not open document", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(origins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		hub.Discard(room)
		return
	}

	client := session.NewClient(hub, room, conn, userID, displayName, typeid.NewSessionID())

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// checkDocumentID accepts the playground and well-formed document ids.
func checkDocumentID(id string) error {
	if id == diagram.PlaygroundID {
		return nil
	}
	return typeid.Validate(id, typeid.PrefixDocument)
}

// originPatterns strips the scheme, which websocket origin patterns do not
// include.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "http://")
		o = strings.TrimPrefix(o, "https://")
		out = append(out, o)
	}
	return out
}
