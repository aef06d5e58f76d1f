package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/barachat/config"
	"github.com/example/barachat/modules/api"
	"github.com/example/barachat/modules/auth"
	"github.com/example/barachat/modules/broadcast"
	"github.com/example/barachat/modules/files"
	"github.com/example/barachat/modules/history"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.FromEnv()

	logLevel := mono.LogLevelInfo
	if cfg.Debug {
		logLevel = mono.LogLevelDebug
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	tokens := auth.DefaultTokenConfig()
	tokens.Secret = cfg.JWTSecret

	broadcastModule := broadcast.NewModule(app.Logger())
	authModule := auth.NewModule(cfg.DBPath, tokens, app.Logger())
	historyModule := history.NewModule(cfg.DBPath, app.Logger())
	filesModule := files.NewModule(cfg.DBPath, cfg.UploadDir, cfg.MaxFileSize, app.Logger())
	apiModule := api.NewModule(api.Config{
		Addr:        cfg.Addr(),
		CertFile:    cfg.CertFile,
		KeyFile:     cfg.KeyFile,
		MaxFileSize: cfg.MaxFileSize,
	}, app.Logger())

	// The hub, registry and file store are handed over directly; large
	// payloads and per-frame fan-out stay off the service container.
	apiModule.SetHub(broadcastModule.Hub())
	apiModule.SetRegistry(broadcastModule.Registry())
	apiModule.SetFilesModule(filesModule)

	// Order: independent modules first, then the HTTP surface that
	// depends on them.
	app.Register(broadcastModule)
	app.Register(authModule)
	app.Register(historyModule)
	app.Register(filesModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	scheme := "http"
	wsScheme := "ws"
	if cfg.TLSEnabled() {
		scheme = "https"
		wsScheme = "wss"
	}

	log.Println("")
	log.Println("BaraChat server started")
	log.Println("")
	log.Printf("REST API (%s://%s):", scheme, cfg.Addr())
	log.Println("  POST   /api/register           - Create an account")
	log.Println("  POST   /api/login              - Obtain a bearer token")
	log.Println("  POST   /api/upload             - Upload a file (auth)")
	log.Println("  GET    /api/download/:filename - Download a stored file")
	log.Println("  GET    /api/user               - Current user info (auth)")
	log.Println("  GET    /api/history/:room      - Stored room history")
	log.Println("  GET    /api/files/:room        - Recent uploads (auth)")
	log.Println("  GET    /health                 - Health check")
	log.Println("")
	log.Printf("Chat stream: %s://%s/ws?room=<name>", wsScheme, cfg.Addr())
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
