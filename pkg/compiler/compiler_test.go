package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BuildsCompilerFromOptions(t *testing.T) {
	c := New()
	assert.NotNil(t, c)
}

func TestCompile_ZeroBudgetReturnsError(t *testing.T) {
	c := New()
	_, err := c.Compile(context.Background(), CompileRequest{Intent: "x", BudgetTokens: 0})
	assert.Error(t, err)
}

func TestDefaultScoreWeights_MatchesPackageDefaults(t *testing.T) {
	w := DefaultScoreWeights()
	assert.Equal(t, 0.40, w.Semantic)
	assert.Equal(t, 0.20, w.Lexical)
}

func TestDefaultSoftPreferences_HasBothPointerFieldsSet(t *testing.T) {
	p := DefaultSoftPreferences()
	require.NotNil(t, p.DiversityLambda)
	require.NotNil(t, p.MaxSingleSourceRatio)
	assert.Equal(t, 0.6, *p.DiversityLambda)
}

func TestClassifyIntent_ReexportsUnderlyingLogic(t *testing.T) {
	assert.Equal(t, IntentLexical, ClassifyIntent("ERR_CONNECTION_REFUSED"))
	assert.Equal(t, IntentSemantic, ClassifyIntent("how does this work"))
}

func TestExpandKeywords_ReexportsUnderlyingLogic(t *testing.T) {
	expanded := ExpandKeywords([]string{"function"})
	assert.Contains(t, expanded, "func")
}
