package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Firebase FirebaseConfig
	Console  ConsoleConfig
	Catalog  CatalogConfig
}

type ServerConfig struct {
	AppEnv     string
	Port       string
	APIKey     string
	StagingDir string
	// Passed to gin's SetTrustedProxies; empty trusts none.
	TrustedProxies []string
}

type LoggerConfig struct {
	Mode       string
	Level      string
	FileEnable bool
	Filename   string
}

type FirebaseConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsFile string
	StorageBucket   string
	WebAPIKey       string
}

type ConsoleConfig struct {
	IdleTTL time.Duration
	// Used by the static identity provider when Firebase is disabled.
	AdminEmail    string
	AdminPassword string
}

// CatalogConfig is the vocabulary the editor and storefront share.
type CatalogConfig struct {
	Collection        string   `yaml:"collection"`
	StoragePrefix     string   `yaml:"storagePrefix"`
	BrandName         string   `yaml:"brandName"`
	DefaultWebURL     string   `yaml:"defaultWebUrl"`
	DefaultLabels     []string `yaml:"defaultLabels"`
	StandardLabels    []string `yaml:"standardLabels"`
	DefaultCategories []string `yaml:"defaultCategories"`
	Currencies        []string `yaml:"currencies"`
}

func LoadEnv() (*Config, error) {
	catalog, err := LoadCatalog(getEnv("CATALOG_CONFIG", ""))
	if err != nil {
		return nil, err
	}
	return &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "dev"),
			Port:           getEnv("PORT", "8082"),
			APIKey:         getEnv("API_KEY", ""),
			StagingDir:     getEnv("STAGING_DIR", os.TempDir()),
			TrustedProxies: getEnvSlice("TRUSTED_PROXIES", nil),
		},
		Logger: LoggerConfig{
			Mode:       getEnv("LOGGER_MODE", "development"),
			Level:      getEnv("LOGGER_LEVEL", "debug"),
			FileEnable: getEnvBool("LOGGER_FILE_ENABLE", false),
			Filename:   getEnv("LOGGER_FILENAME", "shopfront.log"),
		},
		Firebase: FirebaseConfig{
			Enabled:         getEnvBool("FIREBASE_ENABLED", true),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			StorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
			WebAPIKey:       getEnv("FIREBASE_WEB_API_KEY", ""),
		},
		Console: ConsoleConfig{
			IdleTTL:       time.Duration(getEnvInt("CONSOLE_IDLE_TTL_SECONDS", 1800)) * time.Second,
			AdminEmail:    getEnv("ADMIN_EMAIL", "admin@localhost"),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		Catalog: *catalog,
	}, nil
}

// LoadCatalog reads the catalog vocabulary from path, or the embedded
// defaults when path is empty. Keys missing from the file keep their default.
func LoadCatalog(path string) (*CatalogConfig, error) {
	var c CatalogConfig
	if err := yaml.Unmarshal(defaultCatalog, &c); err != nil {
		return nil, errors.Wrap(err, "parse embedded catalog config")
	}
	if path == "" {
		return &c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog config %s", path)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(err, "parse catalog config %s", path)
	}
	if len(c.DefaultCategories) == 0 {
		return nil, errors.Errorf("catalog config %s: defaultCategories must not be empty", path)
	}
	return &c, nil
}

func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(c.Server.AppEnv) {
	case "", "dev", "development":
		return true
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}
