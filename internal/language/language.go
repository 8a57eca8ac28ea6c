package language

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// Spec ties a language identifier to its tree-sitter grammar and the set of
// syntax-node kinds that are eligible to become chunks.
type Spec struct {
	Name       string
	Grammar    *sitter.Language
	ChunkKinds map[string]bool
}

// extToLang maps lowercased file extensions to language identifiers.
var extToLang = map[string]string{
	// C-like / braces
	".c":    "c",
	".h":    "c",
	".cc":   "cpp",
	".cpp":  "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".hh":   "cpp",
	".java": "java",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".go":   "go",
	".rs":   "rust",
	".cs":   "c_sharp",
	".php":  "php",
	// Others
	".py": "python",
	".rb": "ruby",
	// YAML-like
	".yml":  "yaml",
	".yaml": "yaml",
}

var specs = map[string]*Spec{
	"c": {
		Name:    "c",
		Grammar: c.GetLanguage(),
		ChunkKinds: kinds("function_definition", "compound_statement", "for_statement",
			"while_statement", "if_statement", "switch_statement", "do_statement"),
	},
	"cpp": {
		Name:    "cpp",
		Grammar: cpp.GetLanguage(),
		ChunkKinds: kinds("function_definition", "compound_statement", "for_statement",
			"while_statement", "if_statement", "switch_statement", "try_statement", "do_statement"),
	},
	"java": {
		Name:    "java",
		Grammar: java.GetLanguage(),
		ChunkKinds: kinds("method_declaration", "constructor_declaration", "block",
			"for_statement", "while_statement", "if_statement", "switch_expression",
			"switch_statement", "try_statement", "do_statement"),
	},
	"javascript": {
		Name:    "javascript",
		Grammar: javascript.GetLanguage(),
		ChunkKinds: kinds("function_declaration", "method_definition", "function",
			"statement_block", "for_statement", "while_statement", "if_statement",
			"switch_statement", "try_statement", "do_statement"),
	},
	"typescript": {
		Name:    "typescript",
		Grammar: typescript.GetLanguage(),
		ChunkKinds: kinds("function_declaration", "method_definition", "function",
			"statement_block", "for_statement", "while_statement", "if_statement",
			"switch_statement", "try_statement", "do_statement"),
	},
	"tsx": {
		Name:    "tsx",
		Grammar: tsx.GetLanguage(),
		ChunkKinds: kinds("function_declaration", "method_definition", "function",
			"statement_block", "for_statement", "while_statement", "if_statement",
			"switch_statement", "try_statement", "do_statement"),
	},
	"go": {
		Name:    "go",
		Grammar: golang.GetLanguage(),
		ChunkKinds: kinds("function_declaration", "method_declaration", "block",
			"for_statement", "if_statement", "switch_statement", "type_switch_statement"),
	},
	"rust": {
		Name:    "rust",
		Grammar: rust.GetLanguage(),
		ChunkKinds: kinds("function_item", "block", "for_expression", "while_expression",
			"if_expression", "match_expression", "loop_expression"),
	},
	"c_sharp": {
		Name:    "c_sharp",
		Grammar: csharp.GetLanguage(),
		ChunkKinds: kinds("method_declaration", "constructor_declaration", "block",
			"for_statement", "foreach_statement", "while_statement", "if_statement",
			"switch_statement", "try_statement", "do_statement"),
	},
	"php": {
		Name:    "php",
		Grammar: php.GetLanguage(),
		ChunkKinds: kinds("function_definition", "method_declaration", "compound_statement",
			"for_statement", "foreach_statement", "while_statement", "if_statement",
			"switch_statement", "try_statement", "do_statement"),
	},
	"python": {
		Name:    "python",
		Grammar: python.GetLanguage(),
		ChunkKinds: kinds("function_definition", "class_definition", "for_statement",
			"while_statement", "if_statement", "try_statement", "with_statement"),
	},
	"ruby": {
		Name:       "ruby",
		Grammar:    ruby.GetLanguage(),
		ChunkKinds: kinds("method", "class", "module", "if", "while", "until", "for", "begin"),
	},
	"yaml": {
		Name:       "yaml",
		Grammar:    yaml.GetLanguage(),
		ChunkKinds: kinds("block_mapping_pair", "block_sequence_item", "flow_pair"),
	},
}

func kinds(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// DetectLanguage returns the language identifier for a file path based on its
// extension, or "" for unsupported files.
func DetectLanguage(path string) string {
	return extToLang[strings.ToLower(filepath.Ext(path))]
}

// Lookup returns the spec for a language identifier, or nil.
func Lookup(lang string) *Spec {
	return specs[lang]
}

// ForPath returns the spec for a file path, or nil for unsupported files.
func ForPath(path string) *Spec {
	return Lookup(DetectLanguage(path))
}

// IsSupportedFile reports whether the file has a registered language.
func IsSupportedFile(path string) bool {
	return DetectLanguage(path) != ""
}
