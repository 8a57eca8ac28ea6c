package query

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	qdrantpb "github.com/qdrant/go-client/qdrant"

	"codedup/internal/models"
	"codedup/internal/qdrant"
)

// Source abstracts where the chunk corpus lives. ForEach streams chunks in
// corpus order and stops early when fn returns false; FetchByID resolves a
// single chunk or nil when unknown. The variant (remote store vs. local
// file) is chosen once at startup, not per call.
type Source interface {
	ForEach(repo string, fn func(*models.Chunk) bool) error
	FetchByID(chunkID string) (*models.Chunk, error)
}

// FileSource streams the chunks.jsonl corpus from disk. Malformed lines are
// skipped; a missing file is an empty corpus.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) ForEach(repo string, fn func(*models.Chunk) bool) error {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open chunk corpus: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Raw chunk text can be large; allow long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c models.Chunk
		if err := json.Unmarshal(line, &c); err != nil {
			continue
		}
		if repo != "" && c.Repo != repo {
			continue
		}
		if !fn(&c) {
			return nil
		}
	}
	return scanner.Err()
}

func (s *FileSource) FetchByID(chunkID string) (*models.Chunk, error) {
	var found *models.Chunk
	err := s.ForEach("", func(c *models.Chunk) bool {
		if c.ChunkID == chunkID {
			cp := *c
			found = &cp
			return false
		}
		return true
	})
	return found, err
}

// QdrantSource reads the corpus from the vector store by scrolling payloads.
type QdrantSource struct {
	client     *qdrant.Client
	collection string
	fetchLimit int
}

func NewQdrantSource(client *qdrant.Client, collection string, fetchLimit int) *QdrantSource {
	if fetchLimit <= 0 {
		fetchLimit = 10000
	}
	return &QdrantSource{client: client, collection: collection, fetchLimit: fetchLimit}
}

func (s *QdrantSource) ForEach(repo string, fn func(*models.Chunk) bool) error {
	var filter *qdrantpb.Filter
	if repo != "" {
		filter = qdrant.KeywordFilter("repo", repo)
	}
	return s.scroll(filter, s.fetchLimit, fn)
}

func (s *QdrantSource) FetchByID(chunkID string) (*models.Chunk, error) {
	var found *models.Chunk
	err := s.scroll(qdrant.KeywordFilter("chunk_id", chunkID), 1, func(c *models.Chunk) bool {
		cp := *c
		found = &cp
		return false
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *QdrantSource) scroll(filter *qdrantpb.Filter, max int, fn func(*models.Chunk) bool) error {
	const pageSize = 256

	var offset *qdrantpb.PointId
	seen := 0
	for {
		limit := uint32(pageSize)
		if remaining := max - seen; remaining < pageSize {
			if remaining <= 0 {
				return nil
			}
			limit = uint32(remaining)
		}

		points, next, err := s.client.ScrollFiltered(s.collection, filter, limit, offset)
		if err != nil {
			return fmt.Errorf("scroll chunks: %w", err)
		}
		for _, p := range points {
			seen++
			c, err := payloadToChunk(p.Payload)
			if err != nil {
				continue
			}
			if !fn(c) {
				return nil
			}
		}
		if next == nil || seen >= max {
			return nil
		}
		offset = next
	}
}

func payloadToChunk(payload map[string]*qdrantpb.Value) (*models.Chunk, error) {
	data, err := json.Marshal(qdrant.PayloadToMap(payload))
	if err != nil {
		return nil, err
	}
	var c models.Chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
