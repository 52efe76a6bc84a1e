package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/SoundAlike/internal/config"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
)

const version = "0.3.0"

const banner = `
 ____                        _    _    _ _ _
/ ___|  ___  _   _ _ __   __| |  / \  | (_) | _____
\___ \ / _ \| | | | '_ \ / _' | / _ \ | | | |/ / _ \
 ___) | (_) | |_| | | | | (_| |/ ___ \| | |   <  __/
|____/ \___/ \__,_|_| |_|\__,_/_/   \_\_|_|_|\_\___|

        Find the tracks that sound like this one
`

// Global flags
var (
	configPath   string
	cachePath    string
	cacheBackend string
	workers      int
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:           "soundalike",
	Short:         "Rank a music library by acoustic similarity to a reference clip",
	Long:          banner,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; anything else is worth a warning.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			logger.Warnf("Failed to load .env: %v", err)
		}
		if configPath == "" {
			configPath = config.Path()
		}
		level := logLevel
		if level == "" {
			level = os.Getenv(logger.EnvLevel)
		}
		if level != "" {
			lvl, err := logger.ParseLevel(level)
			if err != nil {
				return err
			}
			logger.SetLevel(lvl)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (env: SOUNDALIKE_CONFIG, default: soundalike.yaml)")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "Fingerprint cache location (env: SOUNDALIKE_CACHE_PATH)")
	rootCmd.PersistentFlags().StringVar(&cacheBackend, "backend", "", "Fingerprint cache backend: sqlite or badger (env: SOUNDALIKE_CACHE_BACKEND)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "j", 0, "Concurrent extractions, 0 for one per CPU (env: SOUNDALIKE_WORKERS)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (env: SOUNDALIKE_LOG_LEVEL)")
	rootCmd.SetVersionTemplate("soundalike version {{.Version}}\n")

	rootCmd.AddCommand(newSearchCmd(), newFingerprintCmd(), newCompareCmd(), newCacheCmd(), newConfigCmd())
}

// loadSettings reads the settings file and applies environment and flag
// overrides, in that order.
func loadSettings() (*config.Settings, error) {
	s, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyEnv(); err != nil {
		return nil, err
	}
	if cachePath != "" {
		s.CachePath = cachePath
	}
	if cacheBackend != "" {
		s.CacheBackend = cacheBackend
	}
	if workers > 0 {
		s.Workers = workers
	}
	return s, s.Validate()
}

// createService creates a new SoundAlike service from the loaded settings
func createService(s *config.Settings) (soundalike.Service, error) {
	return soundalike.NewService(
		soundalike.WithSettings(s),
		soundalike.WithLogger(logger.GetLogger()),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
