package scanner

import (
	"reflect"
	"testing"

	"codedup/internal/models"
)

// recordingEmbedder captures the texts handed to the embedding service and
// returns a distinct vector per distinct input.
type recordingEmbedder struct {
	texts []string
}

func (e *recordingEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	e.texts = append(e.texts, texts...)
	byText := make(map[string]float32)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if _, ok := byText[text]; !ok {
			byText[text] = float32(len(byText))
		}
		vectors[i] = []float32{byText[text]}
	}
	return vectors, nil
}

// Embedding inputs are the normalized form, so chunks in the same duplicate
// group always embed to identical vectors.
func TestBuildPointsEmbedsNormalizedText(t *testing.T) {
	t.Parallel()

	batch := []models.Chunk{
		{
			ChunkID: "c1", RawText: "func one() { helperAlpha() }",
			NormalizedText: "func ID ( ) { ID ( ) }", Fingerprint: "fpA",
		},
		{
			ChunkID: "c2", RawText: "func two() { helperBeta() }",
			NormalizedText: "func ID ( ) { ID ( ) }", Fingerprint: "fpA",
		},
	}

	ec := &recordingEmbedder{}
	points, err := buildPoints(ec, batch)
	if err != nil {
		t.Fatalf("buildPoints: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}

	want := []string{"func ID ( ) { ID ( ) }", "func ID ( ) { ID ( ) }"}
	if !reflect.DeepEqual(ec.texts, want) {
		t.Fatalf("embedded texts = %q, want normalized forms %q", ec.texts, want)
	}

	v1 := points[0].GetVectors().GetVector().GetData()
	v2 := points[1].GetVectors().GetVector().GetData()
	if !reflect.DeepEqual(v1, v2) {
		t.Fatalf("duplicate chunks got different vectors: %v vs %v", v1, v2)
	}
}

func TestBuildPointsPlaceholderVectors(t *testing.T) {
	t.Parallel()

	batch := []models.Chunk{
		{ChunkID: "c1", NormalizedText: "func ID ( ) { }", Fingerprint: "fpA"},
	}
	points, err := buildPoints(nil, batch)
	if err != nil {
		t.Fatalf("buildPoints: %v", err)
	}
	data := points[0].GetVectors().GetVector().GetData()
	if !reflect.DeepEqual(data, []float32{0}) {
		t.Fatalf("placeholder vector = %v, want [0]", data)
	}
}
