package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"codedup/internal/annotations"
	"codedup/internal/config"
	"codedup/internal/embeddings"
	"codedup/internal/mcp"
	"codedup/internal/qdrant"
	"codedup/internal/query"
	"codedup/internal/scanner"
	"codedup/internal/server"
)

// Version info, populated from main at startup.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "codedup",
	Short: "Code chunk extraction and exact-duplicate indexing",
	Long:  "Extracts syntactic chunks from source trees, indexes exact duplicates by normalized fingerprint, and serves the corpus to HTTP and MCP clients",
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a source tree and build the chunk corpus and duplicate index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			cfg.InputDir = dir
		}
		if out, _ := cmd.Flags().GetString("out"); out != "" {
			cfg.OutputDir = out
		}
		return scanner.New(cfg).Run()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}

		engine, store, cleanup, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := server.New(engine, store, cfg.StatsPath(), cfg.DefaultMaxTextLen)
		return srv.Run(cfg.HTTPAddr)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		engine, store, cleanup, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		return mcp.NewServer(engine, store, cfg.DefaultMaxTextLen).Run()
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the configured vector store and embedding service answer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		timeout, _ := cmd.Flags().GetDuration("timeout")

		qc, err := qdrant.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("connect to qdrant: %w", err)
		}
		defer qc.Close()

		fmt.Printf("→ Checking vector store at %s\n", cfg.QdrantURL)
		if err := qc.WaitReady(timeout); err != nil {
			return err
		}
		fmt.Println("✓ Vector store is ready")

		if cfg.UseEmbeddings {
			ec := embeddings.NewClient(cfg)
			fmt.Println("→ Checking embedding service")
			if err := ec.WaitReady(timeout); err != nil {
				return err
			}
			fmt.Println("✓ Embedding service is ready")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("codedup %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
	},
}

// buildEngine wires the query layer for the serving commands. The chunk
// source is chosen once: the vector store when enabled, otherwise the local
// JSONL corpus.
func buildEngine(cfg config.Config) (*query.Engine, *annotations.Store, func(), error) {
	var source query.Source
	cleanup := func() {}

	if cfg.UseVectorStore {
		qc, err := qdrant.NewClient(cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to qdrant: %w", err)
		}
		source = query.NewQdrantSource(qc, cfg.Collection, cfg.FetchLimit)
		cleanup = func() { qc.Close() }
	} else {
		source = query.NewFileSource(cfg.ChunksPath())
	}

	store, err := annotations.Open(cfg.DBPath, cfg.SessionID, cfg.AllowHumanPriorityUpdate)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	engine := query.NewEngine(source, query.NewDupCache(cfg.DupsPath()), store)
	closeAll := func() {
		store.Close()
		cleanup()
	}
	return engine, store, closeAll, nil
}

func init() {
	scanCmd.Flags().String("dir", "", "Source tree to scan (overrides INPUT_DIR)")
	scanCmd.Flags().String("out", "", "Artifact output directory (overrides OUTPUT_DIR)")
	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	verifyCmd.Flags().Duration("timeout", 30*time.Second, "How long to wait for each service")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
