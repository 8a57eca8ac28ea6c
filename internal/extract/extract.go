// Package extract turns one parsed source file into its list of chunks. The
// walk is a pre-order depth-first traversal: every node whose kind is
// chunk-worthy for the language becomes a candidate, and its span-derived
// ancestor id is threaded down to descendants whether or not the candidate
// itself survives the size window.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"codedup/internal/fingerprint"
	"codedup/internal/language"
	"codedup/internal/models"
	"codedup/internal/normalize"
)

// Options bound the size window, in runes of the raw chunk text.
type Options struct {
	Repo     string
	MinChars int
	MaxChars int
}

// File parses src and extracts chunks for the given language spec. relPath
// is the repository-relative path recorded on every chunk. Parse errors and
// parser panics are returned as errors; the caller skips the file and keeps
// scanning.
func File(src []byte, relPath string, spec *language.Spec, opts Options) (chunks []models.Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunks = nil
			err = fmt.Errorf("parser panic on %s: %v", relPath, r)
		}
	}()

	parser := sitter.NewParser()
	parser.SetLanguage(spec.Grammar)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	defer tree.Close()

	w := &walker{
		src:   src,
		path:  relPath,
		spec:  spec,
		opts:  opts,
		lines: NewLineMap(src),
	}
	w.walk(tree.RootNode(), "", 0)
	return w.chunks, nil
}

type walker struct {
	src    []byte
	path   string
	spec   *language.Spec
	opts   Options
	lines  *LineMap
	chunks []models.Chunk
}

// walk visits node and its children in source order, carrying the nearest
// chunk-worthy ancestor id and the tree depth explicitly.
func (w *walker) walk(node *sitter.Node, ancestorID string, depth int) {
	nextAncestor := ancestorID
	if w.spec.ChunkKinds[node.Type()] {
		start := int(node.StartByte())
		end := int(node.EndByte())
		if start < end {
			w.emit(node.Type(), ancestorID, depth, start, end)
			// The node anchors parent linkage for everything inside it,
			// even when the size window dropped it above.
			nextAncestor = fingerprint.AncestorID(w.path, start, end)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		w.walk(node.Child(i), nextAncestor, depth+1)
	}
}

func (w *walker) emit(nodeType, parentID string, depth, startByte, endByte int) {
	if startByte < 0 || endByte > len(w.src) {
		return
	}
	raw := decode(w.src[startByte:endByte])
	n := utf8.RuneCountInString(raw)
	if n < w.opts.MinChars || n > w.opts.MaxChars {
		return
	}

	norm := normalize.Normalize(raw)
	fp := fingerprint.Text(norm)

	w.chunks = append(w.chunks, models.Chunk{
		ChunkID:        fingerprint.ChunkID(w.path, startByte, endByte, fp),
		Repo:           w.opts.Repo,
		Path:           w.path,
		Language:       w.spec.Name,
		NodeType:       nodeType,
		ParentID:       parentID,
		Depth:          depth,
		StartByte:      startByte,
		EndByte:        endByte,
		StartLine:      w.lines.Line(startByte),
		EndLine:        w.lines.EndLine(startByte, endByte),
		RawText:        raw,
		NormalizedText: norm,
		TokenEstimate:  normalize.TokenEstimate(norm),
		Fingerprint:    fp,
	})
}

// decode interprets bytes as UTF-8 with replacement of invalid sequences.
func decode(b []byte) string {
	s := string(b)
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}
