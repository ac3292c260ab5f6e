package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the ontology mapping service.
type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	// Ontology source files (pipe-delimited; .gz accepted).
	ConceptFile      string `mapstructure:"CONSO_PATH"`
	SemanticTypeFile string `mapstructure:"STY_PATH"`
	RelationFile     string `mapstructure:"REL_PATH"`

	Language      string   `mapstructure:"LANGUAGE"`
	SemanticTypes []string `mapstructure:"SEMANTIC_TYPES"`
	CodeSources   []string `mapstructure:"CODE_SOURCES"`
	BuildWorkers  int      `mapstructure:"BUILD_WORKERS"`

	FuzzyFloor      float64 `mapstructure:"FUZZY_FLOOR"`
	ConfidenceDecay float64 `mapstructure:"CONFIDENCE_DECAY"`
	MaxParentDepth  int     `mapstructure:"MAX_PARENT_DEPTH"`
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("LANGUAGE", "ENG")
	// Disorder-flavored semantic types: disease or syndrome, neoplastic
	// process, mental/behavioral dysfunction, pathologic function, sign or
	// symptom, congenital abnormality, injury or poisoning.
	v.SetDefault("SEMANTIC_TYPES", "T047,T191,T048,T046,T184,T019,T037")
	v.SetDefault("CODE_SOURCES", "ICD10CM,ICD9CM")
	v.SetDefault("BUILD_WORKERS", 4)
	v.SetDefault("FUZZY_FLOOR", 0.7)
	v.SetDefault("CONFIDENCE_DECAY", 0.9)
	v.SetDefault("MAX_PARENT_DEPTH", 3)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("CONSO_PATH")
	v.BindEnv("STY_PATH")
	v.BindEnv("REL_PATH")
	v.BindEnv("LANGUAGE")
	v.BindEnv("SEMANTIC_TYPES")
	v.BindEnv("CODE_SOURCES")
	v.BindEnv("BUILD_WORKERS")
	v.BindEnv("FUZZY_FLOOR")
	v.BindEnv("CONFIDENCE_DECAY")
	v.BindEnv("MAX_PARENT_DEPTH")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// CSV-valued keys arrive as single strings from the environment.
	cfg.SemanticTypes = splitCSV(v.GetString("SEMANTIC_TYPES"))
	cfg.CodeSources = splitCSV(v.GetString("CODE_SOURCES"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is internally consistent. Source
// file paths are only needed for index builds and are checked by the build
// command, not here.
func (c *Config) Validate() error {
	if c.FuzzyFloor < 0.6 || c.FuzzyFloor > 1.0 {
		return fmt.Errorf("FUZZY_FLOOR must be in [0.6, 1.0], got %v", c.FuzzyFloor)
	}
	if c.ConfidenceDecay <= 0 || c.ConfidenceDecay > 1.0 {
		return fmt.Errorf("CONFIDENCE_DECAY must be in (0, 1.0], got %v", c.ConfidenceDecay)
	}
	if c.MaxParentDepth < 0 {
		return fmt.Errorf("MAX_PARENT_DEPTH must be >= 0, got %d", c.MaxParentDepth)
	}
	if c.BuildWorkers < 1 {
		return fmt.Errorf("BUILD_WORKERS must be >= 1, got %d", c.BuildWorkers)
	}
	if len(c.SemanticTypes) == 0 {
		return fmt.Errorf("SEMANTIC_TYPES must list at least one semantic type")
	}
	if len(c.CodeSources) == 0 {
		return fmt.Errorf("CODE_SOURCES must list at least one code source")
	}
	return nil
}
