package scanner

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"

	qdrantpb "github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/errgroup"

	"codedup/internal/models"
	"codedup/internal/qdrant"
)

const (
	uploadBatchSize = 48
	uploadWorkers   = 4

	// placeholderDim is the vector size stored when embeddings are disabled;
	// the store still requires a vector per point.
	placeholderDim = 1
)

// uploadBatches embeds (when enabled) and upserts the corpus in fixed-size
// batches. The first batch runs alone so the collection can be sized from the
// actual embedding dimension; the rest go through a bounded worker group.
func uploadBatches(qc *qdrant.Client, ec embedder, collection string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batches := splitBatches(chunks, uploadBatchSize)

	first, err := buildPoints(ec, batches[0])
	if err != nil {
		return fmt.Errorf("embed batch 1/%d: %w", len(batches), err)
	}
	dim := placeholderDim
	if ec != nil && len(first) > 0 {
		dim = len(first[0].GetVectors().GetVector().GetData())
	}
	if err := qc.EnsureCollection(collection, uint64(dim)); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	if err := qc.Upsert(collection, first); err != nil {
		return fmt.Errorf("upsert batch 1/%d: %w", len(batches), err)
	}

	g := new(errgroup.Group)
	g.SetLimit(uploadWorkers)
	for i, batch := range batches[1:] {
		n := i + 2
		g.Go(func() error {
			points, err := buildPoints(ec, batch)
			if err != nil {
				return fmt.Errorf("embed batch %d/%d: %w", n, len(batches), err)
			}
			if err := qc.Upsert(collection, points); err != nil {
				return fmt.Errorf("upsert batch %d/%d: %w", n, len(batches), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("✓ Stored %d chunks in collection %q\n", len(chunks), collection)
	return nil
}

// embedder is the slice of the embeddings client the upload needs; nil means
// placeholder vectors.
type embedder interface {
	EmbedBatch(texts []string) ([][]float32, error)
}

func splitBatches(chunks []models.Chunk, size int) [][]models.Chunk {
	var batches [][]models.Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}

func buildPoints(ec embedder, batch []models.Chunk) ([]*qdrantpb.PointStruct, error) {
	var vectors [][]float32
	if ec != nil {
		// Embed the normalized form, not the raw text: exact duplicates then
		// get identical vectors by construction.
		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].NormalizedText
		}
		var err error
		vectors, err = ec.EmbedBatch(texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(vectors), len(batch))
		}
	}

	points := make([]*qdrantpb.PointStruct, 0, len(batch))
	for i := range batch {
		vector := []float32{0}
		if vectors != nil {
			vector = vectors[i]
		}
		payload, err := chunkPayload(&batch[i])
		if err != nil {
			return nil, err
		}
		points = append(points, &qdrantpb.PointStruct{
			Id: &qdrantpb.PointId{
				PointIdOptions: &qdrantpb.PointId_Num{
					Num: chunkPointID(batch[i].ChunkID),
				},
			},
			Vectors: &qdrantpb.Vectors{
				VectorsOptions: &qdrantpb.Vectors_Vector{
					Vector: &qdrantpb.Vector{Data: vector},
				},
			},
			Payload: payload,
		})
	}
	return points, nil
}

// chunkPointID derives a 64-bit numeric point id from the chunk id: first 8
// bytes of its SHA-256, big-endian.
func chunkPointID(chunkID string) uint64 {
	h := sha256.Sum256([]byte(chunkID))
	return binary.BigEndian.Uint64(h[:8])
}

// chunkPayload stores the chunk's full JSON shape as the point payload, so
// reads can reconstruct the chunk without consulting the file corpus.
func chunkPayload(c *models.Chunk) (map[string]*qdrantpb.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return qdrant.MapToPayload(m), nil
}
