package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eringen/penpost"
	"github.com/eringen/penpost/imagehost"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		envFile := ".env"
		if len(os.Args) > 2 {
			envFile = os.Args[2]
		}
		if err := runServe(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("penpost %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(envFile string) error {
	s, err := loadSettings(envFile)
	if err != nil {
		return err
	}
	log := penpost.NewLogger(s.LogLevel, s.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []penpost.Option{penpost.WithLogger(log)}
	switch s.ImageHost {
	case "s3":
		host, err := imagehost.NewS3(ctx, s.S3)
		if err != nil {
			return err
		}
		opts = append(opts, penpost.WithImageHost(host))
	case "none":
		opts = append(opts, penpost.WithImageHost(imagehost.Disabled{}))
	}

	app := penpost.New(s.App, opts...)
	defer app.Close()

	log.Info().Str("version", version).Str("image_host", s.ImageHost).Msg("starting penpost")
	return app.Start(ctx)
}

func printUsage() {
	fmt.Println(`penpost - A multi-author blog built with Go, Echo, and templ

Usage:
  penpost <command> [arguments]

Commands:
  serve [envfile]   Run the web server (reads .env by default, if present)
  version           Print the penpost version
  help              Show this help message

Environment:
  JWT_SECRET (required), SESSION_SECRET, PORT, DATABASE_URL, REDIS_URL,
  COOKIE_SECURE, IMAGE_HOST (local|s3|none), S3_BUCKET, S3_REGION,
  S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY, S3_PUBLIC_URL,
  LOG_LEVEL, LOG_PRETTY, STORE_TIMEOUT, UPLOAD_TIMEOUT`)
}
