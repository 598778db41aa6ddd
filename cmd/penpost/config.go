package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eringen/penpost"
	"github.com/eringen/penpost/imagehost"
)

// settings is everything serve needs, read from the environment and an
// optional .env file.
type settings struct {
	App       penpost.Config
	LogLevel  string
	LogPretty bool
	ImageHost string // local, s3 or none
	S3        imagehost.S3Config
}

// loadSettings reads envFile when it exists, then the process environment,
// which wins over the file.
func loadSettings(envFile string) (settings, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 3000)
	v.SetDefault("DATABASE_URL", "sqlite://data/penpost.db")
	v.SetDefault("SITE_NAME", "Penpost")
	v.SetDefault("STATIC_DIR", "public")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("IMAGE_HOST", "local")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("STORE_TIMEOUT", 10*time.Second)
	v.SetDefault("UPLOAD_TIMEOUT", 15*time.Second)

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return settings{}, fmt.Errorf("read %s: %w", envFile, err)
			}
		}
	}

	s := settings{
		App: penpost.Config{
			Name:          v.GetString("SITE_NAME"),
			Addr:          fmt.Sprintf(":%d", v.GetInt("PORT")),
			DatabaseURL:   v.GetString("DATABASE_URL"),
			RedisURL:      v.GetString("REDIS_URL"),
			SessionSecret: v.GetString("SESSION_SECRET"),
			JWTSecret:     v.GetString("JWT_SECRET"),
			CookieSecure:  v.GetBool("COOKIE_SECURE"),
			StaticDir:     v.GetString("STATIC_DIR"),
			StoreTimeout:  v.GetDuration("STORE_TIMEOUT"),
			UploadTimeout: v.GetDuration("UPLOAD_TIMEOUT"),
		},
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogPretty: v.GetBool("LOG_PRETTY"),
		ImageHost: strings.ToLower(v.GetString("IMAGE_HOST")),
		S3: imagehost.S3Config{
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			PublicURL: v.GetString("S3_PUBLIC_URL"),
		},
	}

	if s.App.JWTSecret == "" {
		return settings{}, errors.New("JWT_SECRET is required")
	}
	switch s.ImageHost {
	case "local", "none":
	case "s3":
		if s.S3.Bucket == "" {
			return settings{}, errors.New("S3_BUCKET is required when IMAGE_HOST=s3")
		}
	default:
		return settings{}, fmt.Errorf("unknown IMAGE_HOST %q (want local, s3 or none)", s.ImageHost)
	}
	return s, nil
}
