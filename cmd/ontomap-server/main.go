package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ontomap/ontomap/internal/config"
	"github.com/ontomap/ontomap/internal/domain/ontology"
	"github.com/ontomap/ontomap/internal/domain/recovery"
	"github.com/ontomap/ontomap/internal/domain/resolve"
	"github.com/ontomap/ontomap/internal/platform/db"
	"github.com/ontomap/ontomap/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ontomap-server",
		Short: "Ontology-backed classification-code resolver",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(scoreCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the resolver API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := "-"
				if s.Applied {
					status = "applied"
					appliedAt = s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the ontology indexes from the source files",
		RunE: func(cmd *cobra.Command, args []string) error {
			persist, _ := cmd.Flags().GetBool("persist")

			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.ConceptFile == "" || cfg.SemanticTypeFile == "" || cfg.RelationFile == "" {
				return fmt.Errorf("CONSO_PATH, STY_PATH and REL_PATH are required for index builds")
			}

			builder := ontology.NewBuilder(buildConfig(cfg), logger)

			ctx := context.Background()
			if !persist {
				_, stats, err := builder.Build(ctx)
				if err != nil {
					return err
				}
				return printJSON(stats)
			}

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := ontology.NewService(builder, ontology.NewPGStore(pool), logger)
			stats, err := svc.BuildAndPersist(ctx)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	cmd.Flags().Bool("persist", false, "Replace the persistent store with the built index")
	return cmd
}

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <term>",
		Short: "Resolve a free-text medical term to classification codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			svc, cleanup, err := newResolveService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			mappings, err := svc.ResolveTerm(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if len(mappings) == 0 {
				fmt.Println("no mapping found")
				return nil
			}
			return printJSON(mappings)
		},
	}
	cmd.Flags().Int("limit", resolve.DefaultLimit, "Maximum candidate concepts per term")
	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score extracted indication sets against ground truth",
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectsPath, _ := cmd.Flags().GetString("subjects")
			outDir, _ := cmd.Flags().GetString("out")
			if subjectsPath == "" {
				return fmt.Errorf("--subjects is required")
			}

			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			raw, err := os.ReadFile(subjectsPath)
			if err != nil {
				return fmt.Errorf("read subjects file: %w", err)
			}
			var subjects []recovery.SubjectInput
			if err := json.Unmarshal(raw, &subjects); err != nil {
				return fmt.Errorf("parse subjects file: %w", err)
			}

			ctx := context.Background()
			resolveSvc, cleanup, err := newResolveService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			scorer := recovery.NewScorer(resolveSvc, resolve.DefaultLimit)
			svc := recovery.NewService(scorer, cfg.BuildWorkers, logger)
			results, err := svc.ScoreBatch(ctx, subjects)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			csvPath := filepath.Join(outDir, "recovery.csv")
			csvFile, err := os.Create(csvPath)
			if err != nil {
				return fmt.Errorf("create csv report: %w", err)
			}
			defer csvFile.Close()
			if err := recovery.WriteCSV(csvFile, results); err != nil {
				return err
			}
			if err := recovery.WriteXLSX(filepath.Join(outDir, "recovery.xlsx"), results); err != nil {
				return err
			}

			logger.Info().Str("dir", outDir).Int("subjects", len(results)).Msg("reports written")
			return nil
		},
	}
	cmd.Flags().String("subjects", "", "JSON file of subjects to score")
	cmd.Flags().String("out", "./reports", "Output directory for reports")
	return cmd
}

// newResolveService wires a resolve service over the persistent store. The
// store must already hold a built index; run `build --persist` first.
func newResolveService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*resolve.Service, func(), error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { pool.Close() }

	store := ontology.NewPGStore(pool)
	ready, err := store.HasData(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if !ready {
		cleanup()
		return nil, nil, fmt.Errorf("persistent store is empty; run `ontomap-server build --persist` first")
	}

	var cache resolve.Cache
	if cfg.RedisURL != "" {
		redisCache, err := resolve.NewRedisCache(ctx, cfg.RedisURL, 24*time.Hour, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, resolving without cache")
		} else {
			cache = redisCache
			prev := cleanup
			cleanup = func() { redisCache.Close(); prev() }
		}
	}

	resolver := resolve.NewResolver(store, cfg.FuzzyFloor)
	mapper := resolve.NewMapper(store, cfg.MaxParentDepth)
	return resolve.NewService(resolver, mapper, cache, cfg.ConfidenceDecay, logger), cleanup, nil
}

func buildConfig(cfg *config.Config) ontology.BuildConfig {
	return ontology.BuildConfig{
		ConceptFile:      cfg.ConceptFile,
		SemanticTypeFile: cfg.SemanticTypeFile,
		RelationFile:     cfg.RelationFile,
		Language:         cfg.Language,
		SemanticTypes:    cfg.SemanticTypes,
		CodeSources:      cfg.CodeSources,
		Workers:          cfg.BuildWorkers,
	}
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	store := ontology.NewPGStore(pool)

	var cache resolve.Cache
	if cfg.RedisURL != "" {
		redisCache, err := resolve.NewRedisCache(ctx, cfg.RedisURL, 24*time.Hour, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, resolving without cache")
		} else {
			defer redisCache.Close()
			cache = redisCache
			logger.Info().Msg("resolve cache enabled")
		}
	}

	resolver := resolve.NewResolver(store, cfg.FuzzyFloor)
	mapper := resolve.NewMapper(store, cfg.MaxParentDepth)
	resolveSvc := resolve.NewService(resolver, mapper, cache, cfg.ConfidenceDecay, logger)

	scorer := recovery.NewScorer(resolveSvc, resolve.DefaultLimit)
	recoverySvc := recovery.NewService(scorer, cfg.BuildWorkers, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
		}
		ready, err := store.HasData(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
		}
		status := "ok"
		if !ready {
			status = "empty"
		}
		return c.JSON(http.StatusOK, map[string]string{"status": status})
	})

	apiV1 := e.Group("/api/v1")
	resolve.NewHandler(resolveSvc).RegisterRoutes(apiV1)
	recovery.NewHandler(recoverySvc).RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	return nil
}
