package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanmcp-labs/memoryd/internal/chunk"
	"github.com/amanmcp-labs/memoryd/internal/model"
)

const goSymbolSample = `package sample

import "fmt"

func Greet(name string) string {
	return fmt.Sprintf("hello, %s", name)
}

type Greeter struct {
	Prefix string
}

func (g *Greeter) Greet(name string) string {
	return g.Prefix + name
}
`

func TestSymbolPass_ExtractsDefinitionsAndReferences(t *testing.T) {
	p := chunk.NewParser()
	defer p.Close()

	tree, err := p.Parse(context.Background(), []byte(goSymbolSample), "go")
	require.NoError(t, err)

	pass := NewSymbolPass()
	out := pass.Extract(tree, "sample.go")

	require.NotEmpty(t, out.Candidates)
	names := map[string]bool{}
	for _, c := range out.Candidates {
		names[c.Name] = true
	}
	assert.True(t, names["Greet"])
	assert.True(t, names["Greeter"])

	var callsSprintf bool
	for _, ref := range out.References {
		if ref.Kind == model.RelCalls && ref.TargetName == "Sprintf" {
			callsSprintf = true
			assert.Equal(t, "Greet", ref.EnclosingName)
		}
	}
	assert.True(t, callsSprintf, "expected a calls reference to Sprintf from Greet")
}

func TestSymbolPass_NilTreeReturnsEmpty(t *testing.T) {
	pass := NewSymbolPass()
	out := pass.Extract(nil, "sample.go")
	assert.Empty(t, out.Candidates)
	assert.Empty(t, out.References)
}

func TestQualifiedName_UsesEnclosingNameWhenPresent(t *testing.T) {
	method := chunk.SymbolCandidate{Name: "Greet", EnclosingName: "Greeter", Kind: model.SymbolMethod}
	assert.Equal(t, "sample.go#Greeter.Greet", qualifiedName("sample.go", method))

	fn := chunk.SymbolCandidate{Name: "Greet", Kind: model.SymbolFunction}
	assert.Equal(t, "sample.go#Greet", qualifiedName("sample.go", fn))
}
