//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/SoundAlike/internal/config"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
)

var (
	port           int
	configPath     string
	tempDir        string
	allowedOrigins string
	accessLog      bool
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&configPath, "config", "", "Settings file (env: SOUNDALIKE_CONFIG, default: soundalike.yaml)")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("SOUNDALIKE_TEMP_DIR", os.TempDir()), "Directory for uploaded reference clips")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&accessLog, "access-log", false, "Log every request")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warnf("Failed to load .env: %v", err)
	}
	flag.Parse()

	if configPath == "" {
		configPath = config.Path()
	}
	settings, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if err := settings.ApplyEnv(); err != nil {
		log.Fatalf("Invalid environment overrides: %v", err)
	}

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	service, err := soundalike.NewService(
		soundalike.WithSettings(settings),
		soundalike.WithLogger(logger.GetLogger()),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           port,
		TempDir:        tempDir,
		AllowedOrigins: origins,
		AccessLog:      accessLog,

		ReferenceExtensions: settings.ReferenceExtensions,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
