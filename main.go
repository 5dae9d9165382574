package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/steve-kings/project-management-system/config"
	"github.com/steve-kings/project-management-system/handlers"
	"github.com/steve-kings/project-management-system/logging"
	"github.com/steve-kings/project-management-system/middleware"
	"github.com/steve-kings/project-management-system/realtime"
	"github.com/steve-kings/project-management-system/repositories"
	"github.com/steve-kings/project-management-system/services"
	"github.com/steve-kings/project-management-system/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.Log)
	logging.Logger.Infof("Event ID: SERVICE_START, Description: Starting workspaces service (env: %s)", cfg.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_ = client.Disconnect(dctx)
	}()

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	db := client.Database(cfg.Mongo.DBName)
	if err := repositories.EnsureIndexes(ctx, db); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: Failed to create indexes: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Using MongoDB database %s", cfg.Mongo.DBName)

	userRepo := repositories.NewUserRepo(db.Collection(repositories.UsersCollection))
	workspaceRepo := repositories.NewWorkspaceRepo(db.Collection(repositories.WorkspacesCollection))
	projectRepo := repositories.NewProjectRepo(db.Collection(repositories.ProjectsCollection))
	taskRepo := repositories.NewTaskRepo(db.Collection(repositories.TasksCollection))

	// The notification feed is optional; a nil store disables it.
	var notificationStore services.NotificationStore
	var notificationHandler *handlers.NotificationHandler
	if cfg.Cassandra.Enabled() {
		notificationRepo, err := repositories.NewNotificationRepo(cfg.Cassandra)
		if err != nil {
			logging.Logger.Fatalf("Event ID: CASSANDRA_CONNECTION_FAILED, Description: %v", err)
		}
		defer notificationRepo.Close()
		if err := notificationRepo.CreateTable(); err != nil {
			logging.Logger.Fatalf("Event ID: CASSANDRA_TABLE_FAILED, Description: %v", err)
		}
		notificationStore = notificationRepo
		notificationHandler = handlers.NewNotificationHandler(services.NewNotificationService(notificationRepo))
	} else {
		logging.Logger.Info("Event ID: NOTIFICATIONS_DISABLED, Description: CASS_DB not set, notification feed disabled")
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.SessionTTLHours)*time.Hour)
	verifier := utils.NewGoogleVerifier(cfg.Google.ClientID, cfg.Google.TokenInfoURL,
		&http.Client{Timeout: 5 * time.Second}, utils.NewBreaker("google-tokeninfo-cb", 5*time.Second))
	mailer := utils.NewMailer(cfg.Email, utils.NewBreaker("smtp-cb", 10*time.Second))

	workspaceService := services.NewWorkspaceService(workspaceRepo, projectRepo, taskRepo, userRepo, mailer, notificationStore, cfg.ClientURL)
	var guard realtime.JoinGuard
	if cfg.EnforceRealtimeMembership {
		guard = workspaceService.CanAccess
	}
	hub := realtime.NewHub(guard)
	defer hub.Close()

	authService := services.NewAuthService(userRepo, verifier, tokens)
	projectService := services.NewProjectService(projectRepo, taskRepo, workspaceRepo, userRepo, hub)
	taskService := services.NewTaskService(taskRepo, projectRepo, workspaceRepo, userRepo, hub)

	serverCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)
	handlers.Routes{
		Auth:          handlers.NewAuthHandler(authService, tokens.TTL(), cfg.IsProduction()),
		Workspaces:    handlers.NewWorkspaceHandler(workspaceService),
		Projects:      handlers.NewProjectHandler(projectService),
		Tasks:         handlers.NewTaskHandler(taskService),
		Notifications: notificationHandler,
	}.Register(r, middleware.RequireUser(authService))

	allowAnyOrigin := cfg.Environment == "development"
	r.Handle("/ws", realtime.NewHandler(serverCtx, hub, cfg.CORSOrigins, allowAnyOrigin, func(req *http.Request) string {
		claims, err := tokens.ValidateToken(middleware.TokenFromRequest(req))
		if err != nil {
			return ""
		}
		return claims.UserID
	}))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.CORSOrigins, allowAnyOrigin)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	serverErr := make(chan error, 1)

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost:%s", cfg.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed: %v", err)
		}
	case sig := <-shutdown:
		logging.Logger.Infof("Event ID: SERVER_SHUTDOWN, Description: Received %v, shutting down", sig)
		stopServer()

		sctx, scancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer scancel()
		if err := server.Shutdown(sctx); err != nil {
			logging.Logger.Warnf("Event ID: SERVER_SHUTDOWN_FAILED, Description: Graceful shutdown failed: %v, forcing close", err)
			_ = server.Close()
		}
		logging.Logger.Info("Event ID: SERVER_STOPPED, Description: Server shutdown complete")
	}
}
