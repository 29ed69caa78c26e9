package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/franz/photo-tidy/internal/report"
	"github.com/franz/photo-tidy/internal/store"
	"github.com/franz/photo-tidy/internal/util"
)

// applyLogFlags sets the console log level from the global flags
func applyLogFlags() {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
}

// openStore opens the state database named by the global --db flag
func openStore() (*store.Store, error) {
	dbPath := viper.GetString("db")
	util.DebugLog("Opening database: %s", dbPath)

	opts := &store.OpenOptions{}
	if viper.GetBool("network") {
		util.DebugLog("Network storage mode: applying tuned pragmas")
		opts.NetworkOptimized = true
	}

	db, err := store.OpenWithOptions(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newLibrary builds the catalog over the store. On network storage file
// operations get the more patient retry profile.
func newLibrary(db *store.Store) *store.Library {
	var retry *util.RetryConfig
	if viper.GetBool("network") {
		retry = util.NetworkRetryConfig()
	}
	return store.NewLibrary(db, nil, retry)
}

// requireLibrary returns the configured library path or an error
func requireLibrary() (string, error) {
	library := viper.GetString("library")
	if library == "" {
		return "", fmt.Errorf("library directory is required (use --library/-l or set in config)")
	}
	return library, nil
}

// newEventLogger creates the JSONL event logger under artifacts/
func newEventLogger() *report.EventLogger {
	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger("artifacts", logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}
	return logger
}

// GetConfigInt retrieves an int config value, falling back to a default
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// GetConfigString retrieves a string config value, falling back to a default
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}
