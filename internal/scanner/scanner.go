// Package scanner runs the corpus build: walk the input tree, extract chunks
// from every supported file, derive the exact-duplicate index, write the
// on-disk artifacts, and optionally push the corpus into the vector store.
// The pipeline is deterministic for a fixed input tree: files are walked in
// lexical order and the merged chunk list is re-sorted after the parallel
// extraction phase.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"codedup/internal/config"
	"codedup/internal/embeddings"
	"codedup/internal/extract"
	"codedup/internal/language"
	"codedup/internal/models"
	"codedup/internal/qdrant"
)

const readyTimeout = 60 * time.Second

type Scanner struct {
	cfg config.Config
}

func New(cfg config.Config) *Scanner {
	return &Scanner{cfg: cfg}
}

// Run executes the full scan. Per-file failures are reported and skipped; the
// only fatal error classes are an unreadable input tree, unwritable
// artifacts, and a vector store or embedding service that never becomes
// ready.
func (s *Scanner) Run() error {
	started := time.Now()

	fmt.Printf("→ Scanning %s (repo %q)\n", s.cfg.InputDir, s.cfg.Repo)
	files, err := sourceFiles(s.cfg.InputDir, s.cfg.MaxFiles)
	if err != nil {
		return fmt.Errorf("walk input tree: %w", err)
	}
	fmt.Printf("✓ Found %d source files\n", len(files))
	if len(files) == 0 {
		fmt.Println("⚠ No supported source files found")
	}

	chunks := s.extractAll(files)
	sortChunks(chunks)
	fmt.Printf("✓ Extracted %d chunks\n", len(chunks))

	groups := buildGroups(chunks)
	fmt.Printf("✓ Found %d exact-duplicate groups\n", len(groups))

	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeJSONL(s.cfg.ChunksPath(), len(chunks), func(i int) any { return chunks[i] }); err != nil {
		return fmt.Errorf("write chunk corpus: %w", err)
	}
	if err := writeJSONL(s.cfg.DupsPath(), len(groups), func(i int) any { return groups[i] }); err != nil {
		return fmt.Errorf("write duplicate index: %w", err)
	}

	stats := buildStats(len(files), chunks, groups, time.Since(started))
	if err := writeStats(s.cfg.StatsPath(), stats); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	reportPath := filepath.Join(s.cfg.OutputDir, "report.html")
	if err := writeReport(reportPath, s.cfg.Repo, stats); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("✓ Wrote artifacts to %s\n", s.cfg.OutputDir)

	if s.cfg.UseVectorStore {
		if err := s.upload(chunks); err != nil {
			return err
		}
	}

	fmt.Printf("✓ Scan completed in %.1fs\n", time.Since(started).Seconds())
	return nil
}

// extractAll parses files on a CPU-bounded worker pool. Order of the merged
// result is not meaningful here; the caller re-sorts.
func (s *Scanner) extractAll(files []string) []models.Chunk {
	opts := extract.Options{
		Repo:     s.cfg.Repo,
		MinChars: s.cfg.MinChunkChars,
		MaxChars: s.cfg.MaxChunkChars,
	}

	var mu sync.Mutex
	var chunks []models.Chunk

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for _, relPath := range files {
		g.Go(func() error {
			spec := language.ForPath(relPath)
			if spec == nil {
				return nil
			}
			src, err := os.ReadFile(filepath.Join(s.cfg.InputDir, filepath.FromSlash(relPath)))
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ Skipping %s: %v\n", relPath, err)
				return nil
			}
			fileChunks, err := extract.File(src, relPath, spec, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ Skipping %s: %v\n", relPath, err)
				return nil
			}
			mu.Lock()
			chunks = append(chunks, fileChunks...)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; per-file failures are skips.
	_ = g.Wait()
	return chunks
}

// sortChunks restores corpus order after the parallel merge.
func sortChunks(chunks []models.Chunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Path != chunks[j].Path {
			return chunks[i].Path < chunks[j].Path
		}
		if chunks[i].StartByte != chunks[j].StartByte {
			return chunks[i].StartByte < chunks[j].StartByte
		}
		return chunks[i].EndByte < chunks[j].EndByte
	})
}

// buildGroups derives the exact-duplicate index from the sorted corpus:
// groups of two or more chunks sharing a fingerprint, largest first,
// fingerprint as tie-break, member samples capped at 50 ids in corpus order.
func buildGroups(chunks []models.Chunk) []models.DuplicateGroup {
	const maxMemberIDs = 50

	members := make(map[string][]string)
	for i := range chunks {
		fp := chunks[i].Fingerprint
		if fp == "" {
			continue
		}
		members[fp] = append(members[fp], chunks[i].ChunkID)
	}

	var groups []models.DuplicateGroup
	for fp, ids := range members {
		if len(ids) < 2 {
			continue
		}
		sample := ids
		if len(sample) > maxMemberIDs {
			sample = sample[:maxMemberIDs]
		}
		groups = append(groups, models.DuplicateGroup{
			Fingerprint: fp,
			Count:       len(ids),
			ChunkIDs:    sample,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Fingerprint < groups[j].Fingerprint
	})
	return groups
}

func buildStats(filesScanned int, chunks []models.Chunk, groups []models.DuplicateGroup, elapsed time.Duration) models.Stats {
	const topGroups = 100

	stats := models.Stats{
		FilesScanned:    filesScanned,
		ChunksExtracted: len(chunks),
		ByLanguage:      make(map[string]int),
		ByNodeType:      make(map[string]int),
		TokenBins: map[string]int{
			"<=50":     0,
			"51-150":   0,
			"151-400":  0,
			"401-1000": 0,
			">1000":    0,
		},
		DurationSeconds: elapsed.Seconds(),
	}
	for i := range chunks {
		stats.ByLanguage[chunks[i].Language]++
		stats.ByNodeType[chunks[i].NodeType]++
		stats.TokenBins[tokenBin(chunks[i].TokenEstimate)]++
	}
	top := groups
	if len(top) > topGroups {
		top = top[:topGroups]
	}
	stats.TopDupGroups = append([]models.DuplicateGroup{}, top...)
	return stats
}

func tokenBin(tokens int) string {
	switch {
	case tokens <= 50:
		return "<=50"
	case tokens <= 150:
		return "51-150"
	case tokens <= 400:
		return "151-400"
	case tokens <= 1000:
		return "401-1000"
	default:
		return ">1000"
	}
}

// upload pushes the corpus into the vector store. Both services must answer
// before any batch is sent; readiness failures abort the scan.
func (s *Scanner) upload(chunks []models.Chunk) error {
	qc, err := qdrant.NewClient(s.cfg)
	if err != nil {
		return fmt.Errorf("connect to qdrant: %w", err)
	}
	defer qc.Close()

	fmt.Println("→ Waiting for vector store...")
	if err := qc.WaitReady(readyTimeout); err != nil {
		return err
	}

	var emb embedder
	if s.cfg.UseEmbeddings {
		ec := embeddings.NewClient(s.cfg)
		fmt.Println("→ Waiting for embedding service...")
		if err := ec.WaitReady(readyTimeout); err != nil {
			return err
		}
		emb = ec
	} else {
		fmt.Println("⚠ Embeddings disabled; storing placeholder vectors")
	}

	return uploadBatches(qc, emb, s.cfg.Collection, chunks)
}
