package wscompile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyIntent_ErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		intent string
	}{
		{"ERR_ prefix", "ERR_CONNECTION_REFUSED"},
		{"E#### code", "E0001"},
		{"exception keyword", "NullPointerException"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IntentLexical, ClassifyIntent(tt.intent))
		})
	}
}

func TestClassifyIntent_QuotedPhrases(t *testing.T) {
	assert.Equal(t, IntentLexical, ClassifyIntent(`"authentication middleware"`))
	assert.Equal(t, IntentLexical, ClassifyIntent(`'exact phrase match'`))
}

func TestClassifyIntent_FilePaths(t *testing.T) {
	tests := []string{
		"internal/auth/handler.go",
		"src/components/Button.tsx",
		"package.json",
		"README.md",
	}
	for _, intent := range tests {
		assert.Equal(t, IntentLexical, ClassifyIntent(intent), intent)
	}
}

func TestClassifyIntent_TechnicalIdentifiers(t *testing.T) {
	tests := []string{
		"getUserById",
		"SearchEngine",
		"get_user_by_id",
		"MAX_RETRY_COUNT",
	}
	for _, intent := range tests {
		assert.Equal(t, IntentLexical, ClassifyIntent(intent), intent)
	}
}

func TestClassifyIntent_NaturalLanguage(t *testing.T) {
	tests := []string{
		"how does authentication work",
		"what is the purpose of this function",
		"explain the fusion algorithm",
		"find the authentication logic",
	}
	for _, intent := range tests {
		assert.Equal(t, IntentSemantic, ClassifyIntent(intent), intent)
	}
}

func TestClassifyIntent_MultiWordDefaultsToSemantic(t *testing.T) {
	assert.Equal(t, IntentSemantic, ClassifyIntent("database connection pooling"))
	assert.Equal(t, IntentSemantic, ClassifyIntent("error handling best practices"))
}

func TestClassifyIntent_ShortAmbiguousIsMixed(t *testing.T) {
	assert.Equal(t, IntentMixed, ClassifyIntent("useEffect cleanup"))
	assert.Equal(t, IntentMixed, ClassifyIntent("error handling"))
	assert.Equal(t, IntentMixed, ClassifyIntent("   "))
	assert.Equal(t, IntentMixed, ClassifyIntent(""))
}

func TestWeightsForIntentClass_LexicalLeansLexicalAndStructural(t *testing.T) {
	w := WeightsForIntentClass(IntentLexical)
	assert.Greater(t, w.Lexical, DefaultScoreWeights().Lexical)
	assert.Greater(t, w.Lexical, w.Semantic)
}

func TestWeightsForIntentClass_SemanticLeansSemantic(t *testing.T) {
	w := WeightsForIntentClass(IntentSemantic)
	assert.Greater(t, w.Semantic, DefaultScoreWeights().Semantic)
	assert.Greater(t, w.Semantic, w.Lexical)
}

func TestWeightsForIntentClass_MixedIsDefault(t *testing.T) {
	assert.Equal(t, DefaultScoreWeights(), WeightsForIntentClass(IntentMixed))
}

func TestCompile_AutoClassifyWeightsPicksPresetOverDefault(t *testing.T) {
	compiler := New(WithGenerators(NewMockLexicalGen([]CandidateSpan{
		{SpanRef: SpanRef{SpanID: "a", DocVersionID: "d", TokenCost: 10}, Scores: ScoreChannels{Lexical: 1.0}},
	})))

	req := CompileRequest{
		Intent:       "getUserById",
		BudgetTokens: 1000,
		SoftPrefs:    SoftPreferences{AutoClassifyWeights: true},
		Explain:      true,
	}

	resp, err := compiler.Compile(context.Background(), req)
	assert.NoError(t, err)
	assert.NotNil(t, resp)
	// The lone candidate's only non-zero channel is lexical (normalised to
	// 1.0), so its base_score is exactly the lexical weight in effect.
	require.Len(t, resp.Rationale, 1)
	assert.InDelta(t, WeightsForIntentClass(IntentLexical).Lexical, resp.Rationale[0].BaseScore, 1e-9)
	assert.NotEqual(t, DefaultScoreWeights().Lexical, WeightsForIntentClass(IntentLexical).Lexical)
}
