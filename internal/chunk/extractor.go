package chunk

import (
	"strings"

	"github.com/amanmcp-labs/memoryd/internal/model"
)

// SymbolCandidate is a symbol found while walking one file's AST, before
// cross-file resolution. internal/index's two-pass symbol extraction
// promotes these to fully qualified model.Symbol records and resolves
// relations between them.
type SymbolCandidate struct {
	Name          string
	Kind          model.SymbolKind
	StartLine     int // 1-indexed
	EndLine       int
	Signature     string
	DocComment    string
	EnclosingName string // receiver/class name, for building a qualified name
}

// SymbolExtractor walks a parsed tree and finds every symbol-defining node.
type SymbolExtractor struct {
	registry *LanguageRegistry
}

// NewSymbolExtractor builds an extractor over the default language registry.
func NewSymbolExtractor() *SymbolExtractor {
	return NewSymbolExtractorWithRegistry(DefaultRegistry())
}

// NewSymbolExtractorWithRegistry builds an extractor over a custom registry.
func NewSymbolExtractorWithRegistry(registry *LanguageRegistry) *SymbolExtractor {
	return &SymbolExtractor{registry: registry}
}

// Extract walks tree and returns every symbol candidate it finds.
func (e *SymbolExtractor) Extract(tree *Tree) []SymbolCandidate {
	if tree == nil || tree.Root == nil {
		return []SymbolCandidate{}
	}

	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return []SymbolCandidate{}
	}

	var candidates []SymbolCandidate
	tree.Root.Walk(func(n *Node) bool {
		if c := e.extractFromNode(n, tree.Source, config, tree.Language); c != nil {
			candidates = append(candidates, *c)
		}
		return true
	})
	return candidates
}

func (e *SymbolExtractor) extractFromNode(n *Node, source []byte, config *LanguageConfig, language string) *SymbolCandidate {
	kind, ok := config.symbolKindFor(n.Type)
	if !ok {
		return e.extractSpecialSymbol(n, source, language)
	}

	name := e.extractName(n, source, language)
	if name == "" {
		return nil
	}

	return &SymbolCandidate{
		Name:          name,
		Kind:          kind,
		StartLine:     int(n.StartPoint.Row) + 1,
		EndLine:       int(n.EndPoint.Row) + 1,
		Signature:     e.extractSignature(n, source, kind, language),
		DocComment:    e.extractDocComment(n, source, language),
		EnclosingName: e.extractReceiver(n, source, language),
	}
}

// extractReceiver returns a Go method's receiver type name, so the index
// pipeline can build "ReceiverType.MethodName" as the fully qualified name.
func (e *SymbolExtractor) extractReceiver(n *Node, source []byte, language string) string {
	if language != "go" || n.Type != "method_declaration" {
		return ""
	}
	params := n.FindChildByType("parameter_list")
	if params == nil {
		return ""
	}
	for _, p := range params.FindAllByType("type_identifier") {
		return p.GetContent(source)
	}
	for _, p := range params.FindAllByType("pointer_type") {
		if id := p.FindChildByType("type_identifier"); id != nil {
			return id.GetContent(source)
		}
	}
	return ""
}

// NameOf exposes the language-specific name extraction extractFromNode uses
// internally, so internal/index's reference pass can label the enclosing
// scope of a call/import node without re-deriving per-grammar name rules.
func (e *SymbolExtractor) NameOf(n *Node, source []byte, language string) string {
	return e.extractName(n, source, language)
}

func (e *SymbolExtractor) extractName(n *Node, source []byte, language string) string {
	switch language {
	case "go":
		return e.extractGoName(n, source)
	case "typescript", "tsx", "javascript", "jsx":
		return e.extractJSName(n, source)
	case "python":
		return e.extractPythonName(n, source)
	default:
		for _, child := range n.Children {
			if child.Type == "identifier" {
				return child.GetContent(source)
			}
		}
	}
	return ""
}

func (e *SymbolExtractor) extractGoName(n *Node, source []byte) string {
	switch n.Type {
	case "function_declaration":
		if child := n.FindChildByType("identifier"); child != nil {
			return child.GetContent(source)
		}
	case "method_declaration":
		if child := n.FindChildByType("field_identifier"); child != nil {
			return child.GetContent(source)
		}
	case "type_declaration":
		for _, spec := range n.FindChildrenByType("type_spec") {
			if id := spec.FindChildByType("type_identifier"); id != nil {
				return id.GetContent(source)
			}
		}
	case "const_declaration":
		for _, spec := range n.FindChildrenByType("const_spec") {
			if id := spec.FindChildByType("identifier"); id != nil {
				return id.GetContent(source)
			}
		}
	case "var_declaration":
		for _, spec := range n.FindChildrenByType("var_spec") {
			if id := spec.FindChildByType("identifier"); id != nil {
				return id.GetContent(source)
			}
		}
	}
	return ""
}

func (e *SymbolExtractor) extractJSName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		for _, decl := range n.FindChildrenByType("variable_declarator") {
			if id := decl.FindChildByType("identifier"); id != nil {
				return id.GetContent(source)
			}
		}
		return ""
	}
	for _, child := range n.Children {
		if child.Type == "identifier" || child.Type == "type_identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractPythonName(n *Node, source []byte) string {
	if child := n.FindChildByType("identifier"); child != nil {
		return child.GetContent(source)
	}
	return ""
}

// extractSpecialSymbol handles const arrow = () => {} / const f = function(){}
// in JS/TS, which the grammar represents as a plain lexical_declaration
// rather than a dedicated function node.
func (e *SymbolExtractor) extractSpecialSymbol(n *Node, source []byte, language string) *SymbolCandidate {
	switch language {
	case "typescript", "tsx", "javascript", "jsx":
		if n.Type != "lexical_declaration" && n.Type != "variable_declaration" {
			return nil
		}
	default:
		return nil
	}

	for _, decl := range n.FindChildrenByType("variable_declarator") {
		var name string
		var isFunc bool
		for _, child := range decl.Children {
			if child.Type == "identifier" {
				name = child.GetContent(source)
			}
			if child.Type == "arrow_function" || child.Type == "function" || child.Type == "function_expression" {
				isFunc = true
			}
		}
		if name != "" && isFunc {
			return &SymbolCandidate{
				Name:      name,
				Kind:      model.SymbolFunction,
				StartLine: int(n.StartPoint.Row) + 1,
				EndLine:   int(n.EndPoint.Row) + 1,
				Signature: e.extractFunctionSignature(n.GetContent(source), "javascript"),
			}
		}
	}
	return nil
}

// extractDocComment looks at the line immediately preceding n for a
// single-line comment. Multi-line doc blocks are not collected, here or in
// the chunker, which prepends only the one line directly above a chunk.
func (e *SymbolExtractor) extractDocComment(n *Node, source []byte, language string) string {
	if n.StartPoint.Row == 0 {
		return ""
	}

	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	prevLineEnd := lineStart - 1
	prevLineStart := prevLineEnd - 1
	for prevLineStart > 0 && source[prevLineStart-1] != '\n' {
		prevLineStart--
	}
	prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))

	switch language {
	case "go", "typescript", "tsx", "javascript", "jsx":
		if strings.HasPrefix(prevLine, "//") {
			return strings.TrimSpace(strings.TrimPrefix(prevLine, "//"))
		}
	case "python":
		return "" // docstrings live inside the body, not before it
	}
	return ""
}

func (e *SymbolExtractor) extractSignature(n *Node, source []byte, kind model.SymbolKind, language string) string {
	content := n.GetContent(source)
	if content == "" {
		return ""
	}
	switch kind {
	case model.SymbolFunction, model.SymbolMethod:
		return e.extractFunctionSignature(content, language)
	case model.SymbolClassKind, model.SymbolInterface, model.SymbolTypeDecl:
		return e.extractTypeSignature(content)
	}
	return ""
}

func (e *SymbolExtractor) extractFunctionSignature(content, language string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	switch language {
	case "python":
		return firstLine
	default: // go, js/ts family
		if idx := strings.Index(firstLine, "{"); idx != -1 {
			return strings.TrimSpace(firstLine[:idx])
		}
		return firstLine
	}
}

func (e *SymbolExtractor) extractTypeSignature(content string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	if idx := strings.Index(firstLine, "{"); idx != -1 {
		return strings.TrimSpace(firstLine[:idx])
	}
	return firstLine
}
