package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
	"github.com/NhanTrannn/TravelGO-sub000/core/orchestrator"
	"github.com/NhanTrannn/TravelGO-sub000/internal/profile"
	"github.com/NhanTrannn/TravelGO-sub000/internal/version"
	"github.com/NhanTrannn/TravelGO-sub000/search"
	"github.com/NhanTrannn/TravelGO-sub000/server"
	"github.com/NhanTrannn/TravelGO-sub000/store"
	"github.com/NhanTrannn/TravelGO-sub000/store/sessiondb"
	"github.com/NhanTrannn/TravelGO-sub000/weather"
)

var rootCmd = &cobra.Command{
	Use:   "travelgo",
	Short: "Conversational Vietnamese travel planning assistant.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Best-effort local .env; deployments set real environment variables.
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, err := buildServer(ctx, instanceProfile)
		if err != nil {
			slog.Error("failed to build server", "error", err)
			os.Exit(1)
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, terminationSignals...)
		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)
		if err := s.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			cancel()
		}
		<-ctx.Done()
	},
}

// buildServer constructs the full dependency graph explicitly: store,
// sessions, LLM, external services, orchestrator, transport.
func buildServer(ctx context.Context, p *profile.Profile) (*server.Server, error) {
	var docs store.DocumentStore
	if p.MongoURI != "" {
		mongoStore, err := store.Connect(ctx, p.MongoURI, p.MongoDB)
		if err != nil {
			return nil, err
		}
		docs = mongoStore
	} else {
		slog.Warn("no TRAVELGO_MONGO_URI configured, using empty in-memory store",
			"mode", p.Mode)
		docs = &store.MemStore{}
	}

	var sessions sessiondb.DB
	if p.RedisURL != "" {
		redisDB, err := sessiondb.NewRedis(p.RedisURL, time.Duration(p.SessionTTLHours)*time.Hour)
		if err != nil {
			return nil, err
		}
		sessions = redisDB
	} else {
		slog.Warn("no TRAVELGO_REDIS_URL configured, sessions are in-memory")
		sessions = sessiondb.NewMem(time.Duration(p.SessionTTLHours) * time.Hour)
	}

	var llmClient llm.Client
	if p.IsLLMEnabled() {
		client, err := llm.New(&llm.Config{
			Provider: p.LLMProvider,
			Model:    p.LLMModel,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Timeout:  p.LLMTimeout,
		})
		if err != nil {
			return nil, err
		}
		llmClient = client
		slog.Info("llm client initialized", "provider", p.LLMProvider, "model", p.LLMModel)
		go func() {
			warmupCtx, warmupCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer warmupCancel()
			llmClient.Warmup(warmupCtx)
		}()
	} else {
		slog.Warn("no LLM configured, extraction and generation use fallback paths")
	}

	var hybrid search.HybridSearch
	if p.SearchURL != "" {
		hybrid = search.NewClient(p.SearchURL)
	}
	var weatherSvc weather.Service
	if p.WeatherURL != "" {
		weatherSvc = weather.NewClient(p.WeatherURL)
	}

	aliases := store.NewAliases()
	if p.AliasFile != "" {
		if err := loadAliasOverrides(aliases, p.AliasFile); err != nil {
			slog.Warn("alias override load failed, using built-in table",
				"file", p.AliasFile, "error", err)
		}
	}

	orch := orchestrator.New(orchestrator.Deps{
		Docs:    docs,
		Hybrid:  hybrid,
		LLM:     llmClient,
		Weather: weatherSvc,
		Aliases: aliases,
	})
	return server.NewServer(p, orch, sessions), nil
}

// loadAliasOverrides merges a YAML `aliases: {phrase: province_id}` file
// into the built-in province alias table.
func loadAliasOverrides(aliases *store.Aliases, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	overrides := v.GetStringMapString("aliases")
	for phrase, provinceID := range overrides {
		aliases.RegisterAlias(phrase, provinceID)
	}
	slog.Info("province alias overrides loaded", "file", path, "count", len(overrides))
	return nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("TravelGO %s started successfully!\n", p.Version)
	fmt.Printf("Mode: %s\n", p.Mode)
	if len(p.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
	if p.IsDev() {
		fmt.Fprintln(os.Stderr, "Development mode is enabled")
	}
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 18080)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 18080, "port of server")

	for _, flag := range []string{"mode", "addr", "port"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("travelgo")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
