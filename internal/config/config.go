package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full recognized option surface. Every field has an
// environment variable; unparseable values fall back to the default rather
// than failing the run.
type Config struct {
	InputDir  string
	OutputDir string
	Repo      string

	MinChunkChars int
	MaxChunkChars int
	MaxFiles      int

	UseEmbeddings  bool
	EmbeddingModel string
	OpenAIBaseURL  string
	OpenAIAPIKey   string

	UseVectorStore bool
	QdrantURL      string
	QdrantAPIKey   string
	Collection     string
	FetchLimit     int

	DBPath                   string
	SessionID                string
	AllowHumanPriorityUpdate bool
	DefaultMaxTextLen        int

	HTTPAddr string
}

// Load assembles the effective configuration. Precedence, lowest first:
// built-in defaults, ~/.codedup/config.json, a .env file in the working
// directory, then the process environment.
func Load() Config {
	// Both file loaders are best-effort and only fill unset variables.
	_ = godotenv.Load()
	_ = LoadFromUserConfig()

	outputDir := Get("OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "output"
	}
	inputDir := Get("INPUT_DIR")
	if inputDir == "" {
		inputDir = "."
	}
	repo := Get("REPO_NAME")
	if repo == "" {
		if abs, err := filepath.Abs(inputDir); err == nil {
			repo = filepath.Base(abs)
		} else {
			repo = filepath.Base(inputDir)
		}
	}

	return Config{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Repo:      repo,

		MinChunkChars: GetInt("MIN_CHUNK_CHARS", 120),
		MaxChunkChars: GetInt("MAX_CHUNK_CHARS", 12000),
		MaxFiles:      GetInt("MAX_FILES", 20000),

		UseEmbeddings:  GetBool("USE_EMBEDDINGS", true),
		EmbeddingModel: Get("EMBEDDING_MODEL", "OPENAI_EMBEDDING_MODEL"),
		OpenAIBaseURL:  Get("OPENAI_BASE_URL", "EMBEDDING_BASE_URL"),
		OpenAIAPIKey:   Get("OPENAI_API_KEY"),

		UseVectorStore: GetBool("USE_VECTOR_STORE", true),
		QdrantURL:      Get("QDRANT_URL"),
		QdrantAPIKey:   Get("QDRANT_API_KEY", "QDRANT_API_TOKEN"),
		Collection:     getDefault("QDRANT_COLLECTION", "code_chunks"),
		FetchLimit:     GetInt("FETCH_LIMIT", 10000),

		DBPath:                   getDefault("ANNOTATIONS_DB_PATH", filepath.Join(outputDir, "analysis_progress.sqlite")),
		SessionID:                getDefault("SESSION_ID", "default"),
		AllowHumanPriorityUpdate: GetBool("ALLOW_HUMAN_PRIORITY_UPDATE", false),
		DefaultMaxTextLen:        GetInt("DEFAULT_MAX_TEXT_LEN", 2000),

		HTTPAddr: getDefault("HTTP_ADDR", ":8080"),
	}
}

// ChunksPath is the on-disk chunk corpus location.
func (c Config) ChunksPath() string {
	return getDefault("CHUNKS_PATH", filepath.Join(c.OutputDir, "chunks.jsonl"))
}

// DupsPath is the on-disk duplicate-group listing location.
func (c Config) DupsPath() string {
	return getDefault("DUPS_PATH", filepath.Join(c.OutputDir, "candidates_exact_dups.jsonl"))
}

// StatsPath is the scan summary location.
func (c Config) StatsPath() string {
	return filepath.Join(c.OutputDir, "stats.json")
}

// Get returns the first non-empty environment variable from the provided keys.
func Get(keys ...string) string {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getDefault(key, fallback string) string {
	if v := Get(key); v != "" {
		return v
	}
	return fallback
}

// GetInt reads an integer environment variable; malformed values yield the
// default.
func GetInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

// GetBool reads a boolean environment variable. Anything other than the
// recognized false spellings counts as true.
func GetBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	switch strings.TrimSpace(raw) {
	case "0", "false", "False", "FALSE", "no", "NO":
		return false
	}
	return true
}
