package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tripradarbackend/internal/agent"
	"tripradarbackend/internal/config"
	"tripradarbackend/internal/itinerary"
	"tripradarbackend/internal/llm"
	"tripradarbackend/internal/memory"
	"tripradarbackend/internal/output"
	"tripradarbackend/internal/radar"
	"tripradarbackend/internal/tools"
	transporthttp "tripradarbackend/internal/transport/http"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tripradar",
		Short: "Travel event detection with evidence-grounded validation",
	}

	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(approveCmd())
	rootCmd.AddCommand(stateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg      config.Config
	store    *memory.Store
	detector *radar.Detector
}

func buildApp(model string) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if model != "" {
		cfg.GroqModel = model
	}
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("TRIPRADAR_GROQ_API_KEY is required")
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	webClient := tools.NewClient(cfg.WebTimeout, cfg.WebRetries, cfg.WebUserAgent)
	registry := tools.NewRegistry(webClient, cfg.OfficialDomains)

	invoker := &agent.Agent{
		Client:      llm.NewClient(cfg.GroqAPIKey),
		Model:       cfg.GroqModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Tools:       registry,
	}

	detector, err := radar.NewDetector(invoker, store, cfg.OfficialDomains)
	if err != nil {
		return nil, err
	}
	detector.MaxEvents = cfg.MaxEvents

	return &app{cfg: cfg, store: store, detector: detector}, nil
}

func openStore(cfg config.Config) (*memory.Store, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	var backend memory.Backend
	switch cfg.MemoryBackend {
	case "sqlite":
		sqliteBackend, err := memory.NewSQLiteBackend(cfg.StatePath)
		if err != nil {
			return nil, err
		}
		backend = sqliteBackend
	default:
		backend = memory.NewJSONFileBackend(cfg.StatePath)
	}

	return memory.NewStore(backend, cfg.RejectionTTL)
}

func detectCmd() *cobra.Command {
	var (
		preferencesPath  string
		itineraryPath    string
		outputDir        string
		maxEvents        int
		model            string
		autoApprove      bool
		skipApprovalLoop bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run one detection pass over an itinerary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(model)
			if err != nil {
				return err
			}

			preferences, err := itinerary.LoadPreferences(preferencesPath)
			if err != nil {
				return err
			}
			rows, err := itinerary.Load(itineraryPath)
			if err != nil {
				return err
			}

			result, err := a.detector.Detect(cmd.Context(), radar.DetectParams{
				Preferences:  preferences,
				Itinerary:    itinerary.FormatRows(rows),
				ItineraryRef: itineraryPath,
				Context:      itinerary.ExtractContext(rows),
				MaxEvents:    maxEvents,
			})
			if err != nil {
				return err
			}
			if err := a.store.SetLastItinerary(itineraryPath); err != nil {
				return err
			}

			fmt.Printf("Detected %d events (%d discarded, %d suppressed, %d attempts)\n",
				len(result.Events), result.Discarded, result.Suppressed, result.Attempts)
			if result.Failure != "" {
				fmt.Printf("Degraded result: %s\n", result.Failure)
			}

			if !skipApprovalLoop {
				if err := reviewEvents(a.store, result.Events, autoApprove); err != nil {
					return err
				}
			}

			return writeArtifacts(a.store, rows, outputDir)
		},
	}

	cmd.Flags().StringVar(&preferencesPath, "preferences", "user_preferences.txt", "preferences text file")
	cmd.Flags().StringVar(&itineraryPath, "itinerary", "itinerary.csv", "itinerary CSV file")
	cmd.Flags().StringVar(&outputDir, "output", "out", "directory for generated artifacts")
	cmd.Flags().IntVar(&maxEvents, "max-events", 0, "cap on returned events (0 = configured default)")
	cmd.Flags().StringVar(&model, "model", "", "override the chat model")
	cmd.Flags().BoolVar(&autoApprove, "yes", false, "approve every detected event without prompting")
	cmd.Flags().BoolVar(&skipApprovalLoop, "no-review", false, "skip the interactive approval loop")

	return cmd
}

// reviewEvents walks detected events and records a y/n decision for each.
func reviewEvents(store *memory.Store, events []radar.Event, autoApprove bool) error {
	if len(events) == 0 {
		fmt.Println("No events to review.")
		return nil
	}

	reader := bufio.NewReader(os.Stdin)
	now := time.Now()

	for _, event := range events {
		fmt.Printf("\n[%s] %s (%s)\n", event.Category, event.Title, event.Date)
		fmt.Printf("  Location: %s\n", event.Location)
		fmt.Printf("  %s\n", event.Description)
		fmt.Printf("  Proposed: %s\n", event.ProposedChange)

		approved := true
		if !autoApprove {
			fmt.Print("Approve this change? [y/n]: ")
			answer, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read answer: %w", err)
			}
			approved = strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")
		}

		if err := store.RecordDecision(event.ID, approved, now); err != nil {
			return err
		}
	}
	return nil
}

func writeArtifacts(store *memory.Store, rows []itinerary.Row, outputDir string) error {
	set := output.BuildChangeSet(store.Snapshot())

	if err := output.WriteText(set, filepath.Join(outputDir, "itinerary_changes.txt")); err != nil {
		return err
	}
	if err := output.WriteJSON(set, filepath.Join(outputDir, "itinerary_changes.json")); err != nil {
		return err
	}

	patched := itinerary.ApplyChanges(rows, set.Approved)
	if err := itinerary.Write(patched, filepath.Join(outputDir, "updated_itinerary.csv")); err != nil {
		return err
	}

	fmt.Printf("Artifacts written to %s\n", outputDir)
	return nil
}

func serveCmd() *cobra.Command {
	var (
		addr      string
		outputDir string
		model     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(model)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.ListenAddr
			}

			server := transporthttp.NewServer(a.detector, a.store, outputDir)

			httpServer := &http.Server{
				Addr:         addr,
				Handler:      withLogging(withCORS(server.Routes())),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 5 * time.Minute,
				IdleTimeout:  60 * time.Second,
			}

			go func() {
				log.Printf("tripradar API listening on %s", addr)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("listen: %v", err)
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			log.Printf("signal received: %s, shutting down", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&outputDir, "output", "out", "directory for generated artifacts")
	cmd.Flags().StringVar(&model, "model", "", "override the chat model")

	return cmd
}

func approveCmd() *cobra.Command {
	var approved bool

	cmd := &cobra.Command{
		Use:   "approve <event-id>",
		Short: "Record a decision for a detected event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			id := args[0]
			if err := store.RecordDecision(id, approved, time.Now()); err != nil {
				return err
			}
			fmt.Printf("Recorded %s -> approved=%t\n", id, approved)
			return nil
		},
	}

	cmd.Flags().BoolVar(&approved, "approved", true, "approve (true) or reject (false) the event")

	return cmd
}

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print a summary of the persisted memory state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			record := store.Snapshot()
			fmt.Printf("Runs: %d\n", record.RunCount)
			fmt.Printf("Events: %d, approvals: %d, rejections: %d, pending: %d\n",
				len(record.Events), len(record.Approvals), len(record.Rejections), len(record.Pending))
			if record.LastItinerary != "" {
				fmt.Printf("Last itinerary: %s\n", record.LastItinerary)
			}
			for _, entry := range record.History {
				fmt.Printf("  %s %s\n", entry.Timestamp.Format(time.RFC3339), entry.Note)
			}
			return nil
		},
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
