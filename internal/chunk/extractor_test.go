package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanmcp-labs/memoryd/internal/model"
)

func TestSymbolExtractor_FindsFunctionsAndMethods(t *testing.T) {
	p := NewParser()
	defer p.Close()

	tree, err := p.Parse(context.Background(), []byte(goSample), "go")
	require.NoError(t, err)

	ex := NewSymbolExtractor()
	candidates := ex.Extract(tree)
	require.NotEmpty(t, candidates)

	byName := map[string]SymbolCandidate{}
	for _, c := range candidates {
		byName[c.Name] = c
	}

	greet, ok := byName["Greet"]
	require.True(t, ok)
	assert.Equal(t, model.SymbolFunction, greet.Kind)

	greeter, ok := byName["Greeter"]
	require.True(t, ok)
	assert.Equal(t, model.SymbolTypeDecl, greeter.Kind)
}

func TestSymbolExtractor_MethodCarriesEnclosingReceiver(t *testing.T) {
	p := NewParser()
	defer p.Close()

	tree, err := p.Parse(context.Background(), []byte(goSample), "go")
	require.NoError(t, err)

	ex := NewSymbolExtractor()
	candidates := ex.Extract(tree)

	var method *SymbolCandidate
	for i := range candidates {
		if candidates[i].Kind == model.SymbolMethod {
			method = &candidates[i]
		}
	}
	require.NotNil(t, method)
	assert.Equal(t, "Greeter", method.EnclosingName)
}

func TestSymbolExtractor_UnknownLanguageReturnsEmpty(t *testing.T) {
	ex := NewSymbolExtractor()
	candidates := ex.Extract(&Tree{Root: &Node{}, Language: "cobol"})
	assert.Empty(t, candidates)
}
