package index

import (
	"fmt"

	"github.com/amanmcp-labs/memoryd/internal/chunk"
	"github.com/amanmcp-labs/memoryd/internal/model"
)

// ReferenceCandidate is a call/import/heritage node found while walking a
// file's AST, before cross-file resolution. EnclosingName names the
// definition (function, method, class...) the reference occurs inside; a
// reference with no enclosing symbol (a top-level import, say) has no
// source to anchor a relation on and is dropped before resolution.
type ReferenceCandidate struct {
	EnclosingName string
	TargetName    string
	Kind          model.SymbolRelationKind
}

// FileSymbols is one file's symbol-extraction output: definitions (promoted
// to model.Symbol by the caller once an FQN scheme is applied) and the
// reference candidates found alongside them.
type FileSymbols struct {
	FilePath   string
	Candidates []chunk.SymbolCandidate
	References []ReferenceCandidate
}

// SymbolPass runs the two local (per-file) extraction steps of the
// indexing pipeline's symbol stage: definitions via chunk.SymbolExtractor,
// and reference nodes (calls, imports, class heritage) via a scope-aware
// tree walk. Cross-file resolution happens afterward in the pipeline,
// once every file's candidates are known.
type SymbolPass struct {
	extractor *chunk.SymbolExtractor
	registry  *chunk.LanguageRegistry
}

// NewSymbolPass builds a SymbolPass over the default language registry.
func NewSymbolPass() *SymbolPass {
	return &SymbolPass{
		extractor: chunk.NewSymbolExtractor(),
		registry:  chunk.DefaultRegistry(),
	}
}

// Extract returns filePath's definitions and reference candidates.
func (p *SymbolPass) Extract(tree *chunk.Tree, filePath string) FileSymbols {
	fs := FileSymbols{FilePath: filePath}
	if tree == nil || tree.Root == nil {
		return fs
	}

	fs.Candidates = p.extractor.Extract(tree)

	config, ok := p.registry.GetByName(tree.Language)
	if !ok {
		return fs
	}

	p.walkReferences(tree.Root, tree.Source, tree.Language, config, nil, &fs.References)
	return fs
}

// walkReferences descends the tree maintaining a stack of enclosing
// definition names, emitting a ReferenceCandidate for every call, import,
// or class-heritage node it recognizes.
func (p *SymbolPass) walkReferences(n *chunk.Node, source []byte, language string, config *chunk.LanguageConfig, scope []string, out *[]ReferenceCandidate) {
	if n == nil {
		return
	}

	childScope := scope
	if _, ok := config.SymbolKindFor(n.Type); ok {
		if name := p.extractor.NameOf(n, source, language); name != "" {
			childScope = append(append([]string{}, scope...), name)
		}
	}

	enclosing := ""
	if len(childScope) > 0 {
		enclosing = childScope[len(childScope)-1]
	}

	if ref, ok := referenceFromNode(n, source, language, enclosing); ok {
		*out = append(*out, ref)
	}

	for _, child := range n.Children {
		p.walkReferences(child, source, language, config, childScope, out)
	}
}

// referenceFromNode recognizes the handful of reference-node shapes this
// pipeline resolves: call expressions, import statements, and (Go) struct
// embedding as a stand-in for extends. Anything else returns ok=false.
func referenceFromNode(n *chunk.Node, source []byte, language, enclosing string) (ReferenceCandidate, bool) {
	switch language {
	case "go":
		return goReference(n, source, enclosing)
	case "typescript", "tsx", "javascript", "jsx":
		return jsReference(n, source, enclosing)
	case "python":
		return pyReference(n, source, enclosing)
	default:
		return ReferenceCandidate{}, false
	}
}

func goReference(n *chunk.Node, source []byte, enclosing string) (ReferenceCandidate, bool) {
	switch n.Type {
	case "call_expression":
		fn := n.Children
		if len(fn) == 0 {
			return ReferenceCandidate{}, false
		}
		callee := fn[0]
		name := calleeName(callee, source)
		if name == "" {
			return ReferenceCandidate{}, false
		}
		return ReferenceCandidate{EnclosingName: enclosing, TargetName: name, Kind: model.RelCalls}, true
	case "import_spec":
		if path := n.FindChildByType("interpreted_string_literal"); path != nil {
			return ReferenceCandidate{EnclosingName: enclosing, TargetName: trimQuotes(path.GetContent(source)), Kind: model.RelImports}, true
		}
	case "field_declaration":
		// An anonymous (embedded) field has a type but no name child --
		// the closest Go equivalent of a class extends relation.
		if len(n.Children) == 1 {
			if id := embeddedTypeName(n.Children[0], source); id != "" {
				return ReferenceCandidate{EnclosingName: enclosing, TargetName: id, Kind: model.RelExtends}, true
			}
		}
	}
	return ReferenceCandidate{}, false
}

func embeddedTypeName(n *chunk.Node, source []byte) string {
	switch n.Type {
	case "type_identifier":
		return n.GetContent(source)
	case "pointer_type":
		if id := n.FindChildByType("type_identifier"); id != nil {
			return id.GetContent(source)
		}
	}
	return ""
}

func jsReference(n *chunk.Node, source []byte, enclosing string) (ReferenceCandidate, bool) {
	switch n.Type {
	case "call_expression":
		if len(n.Children) == 0 {
			return ReferenceCandidate{}, false
		}
		name := calleeName(n.Children[0], source)
		if name == "" {
			return ReferenceCandidate{}, false
		}
		return ReferenceCandidate{EnclosingName: enclosing, TargetName: name, Kind: model.RelCalls}, true
	case "import_statement":
		if src := n.FindChildByType("string"); src != nil {
			return ReferenceCandidate{EnclosingName: enclosing, TargetName: trimQuotes(src.GetContent(source)), Kind: model.RelImports}, true
		}
	case "class_heritage":
		for _, child := range n.Children {
			switch child.Type {
			case "extends_clause":
				if id := firstIdentifier(child, source); id != "" {
					return ReferenceCandidate{EnclosingName: enclosing, TargetName: id, Kind: model.RelExtends}, true
				}
			case "implements_clause":
				if id := firstIdentifier(child, source); id != "" {
					return ReferenceCandidate{EnclosingName: enclosing, TargetName: id, Kind: model.RelImplements}, true
				}
			}
		}
	}
	return ReferenceCandidate{}, false
}

func pyReference(n *chunk.Node, source []byte, enclosing string) (ReferenceCandidate, bool) {
	switch n.Type {
	case "call":
		if len(n.Children) == 0 {
			return ReferenceCandidate{}, false
		}
		name := calleeName(n.Children[0], source)
		if name == "" {
			return ReferenceCandidate{}, false
		}
		return ReferenceCandidate{EnclosingName: enclosing, TargetName: name, Kind: model.RelCalls}, true
	case "import_statement", "import_from_statement":
		if mod := n.FindChildByType("dotted_name"); mod != nil {
			return ReferenceCandidate{EnclosingName: enclosing, TargetName: mod.GetContent(source), Kind: model.RelImports}, true
		}
	case "class_definition":
		if bases := n.FindChildByType("argument_list"); bases != nil {
			if id := firstIdentifier(bases, source); id != "" {
				return ReferenceCandidate{EnclosingName: enclosing, TargetName: id, Kind: model.RelExtends}, true
			}
		}
	}
	return ReferenceCandidate{}, false
}

// calleeName extracts the simple name a call expression's function child
// resolves to: an identifier directly, or the final field/property of a
// selector/member expression (pkg.Func, obj.method, a.b.c).
func calleeName(n *chunk.Node, source []byte) string {
	switch n.Type {
	case "identifier":
		return n.GetContent(source)
	case "selector_expression", "member_expression", "attribute":
		if len(n.Children) == 0 {
			return ""
		}
		last := n.Children[len(n.Children)-1]
		return calleeName(last, source)
	case "field_identifier", "property_identifier":
		return n.GetContent(source)
	default:
		return ""
	}
}

func firstIdentifier(n *chunk.Node, source []byte) string {
	if n.Type == "identifier" || n.Type == "type_identifier" {
		return n.GetContent(source)
	}
	for _, child := range n.Children {
		if id := firstIdentifier(child, source); id != "" {
			return id
		}
	}
	return ""
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}

// qualifiedName builds a per-file-unique fully qualified name for a symbol
// candidate. Prefixing with the file path guarantees the (project_id, fqn)
// uniqueness invariant without needing a package-resolution pass; the
// enclosing name keeps method/receiver grouping legible in search results.
func qualifiedName(filePath string, c chunk.SymbolCandidate) string {
	if c.EnclosingName != "" {
		return fmt.Sprintf("%s#%s.%s", filePath, c.EnclosingName, c.Name)
	}
	return fmt.Sprintf("%s#%s", filePath, c.Name)
}
