package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath string

	SalesInputDir     string
	PurchasesInputDir string
	OutputDir         string
	RenamedDir        string

	SalesTemplatePath     string
	PurchasesTemplatePath string
	UploadTemplatePath    string

	LogLevel  string
	LogFormat string

	WatchIntervalSec int
	WatchSchedule    string
	ExportXLSX       bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	outputDir := getEnv("OUTPUT_DIR", filepath.Join(cwd, "output"))
	cfg := Config{
		DBPath: getEnv("DB_PATH", filepath.Join(cwd, "data", "ledgerflow.db")),

		SalesInputDir:     getEnv("SALES_INPUT_DIR", filepath.Join(cwd, "input", "sales")),
		PurchasesInputDir: getEnv("PURCHASES_INPUT_DIR", filepath.Join(cwd, "input", "purchases")),
		OutputDir:         outputDir,
		RenamedDir:        getEnv("RENAMED_DIR", filepath.Join(outputDir, "Renamed Invoices")),

		SalesTemplatePath:     getEnv("SALES_TEMPLATE_PATH", filepath.Join(cwd, "templates", "JSON_Template_Sales.json")),
		PurchasesTemplatePath: getEnv("PURCHASES_TEMPLATE_PATH", filepath.Join(cwd, "templates", "JSON_Template_Purchases.json")),
		UploadTemplatePath:    getEnv("UPLOAD_TEMPLATE_PATH", filepath.Join(cwd, "templates", "JSON_Template_Upload.json")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 30),
		WatchSchedule:    strings.TrimSpace(getEnv("WATCH_SCHEDULE", "")),
		ExportXLSX:       getEnvBool("EXPORT_XLSX", false),
	}

	if cfg.WatchIntervalSec <= 0 {
		return Config{}, fmt.Errorf("WATCH_INTERVAL_SEC must be positive, got %d", cfg.WatchIntervalSec)
	}
	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required setting: %s", name)
	}
	return nil
}

// Validate checks the paths every command needs. It runs after flag
// overrides, so an empty env value can still be fixed on the command line.
func (c Config) Validate() error {
	for _, s := range []struct{ name, value string }{
		{"DB_PATH", c.DBPath},
		{"SALES_INPUT_DIR", c.SalesInputDir},
		{"PURCHASES_INPUT_DIR", c.PurchasesInputDir},
		{"OUTPUT_DIR", c.OutputDir},
		{"RENAMED_DIR", c.RenamedDir},
	} {
		if err := c.Require(s.name, s.value); err != nil {
			return err
		}
	}
	return nil
}

// Output paths.
func (c Config) SalesCSV() string     { return filepath.Join(c.OutputDir, "sales_data.csv") }
func (c Config) PurchasesCSV() string { return filepath.Join(c.OutputDir, "purchases_data.csv") }
func (c Config) LedgerCSV() string    { return filepath.Join(c.OutputDir, "combined_data.csv") }
func (c Config) UploadCSV() string    { return filepath.Join(c.OutputDir, "upload_data.csv") }

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
