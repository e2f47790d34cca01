package tiebreak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shelfsnap/shelfsnap-go/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	verdict, err := ParseVerdict(`{"back_key": "back.jpg", "rationale": "same barcode"}`)
	require.NoError(t, err)
	require.NotNil(t, verdict.BackKey)
	assert.Equal(t, "back.jpg", *verdict.BackKey)
	assert.Equal(t, "same barcode", verdict.Rationale)
}

func TestParseVerdictNoMatch(t *testing.T) {
	verdict, err := ParseVerdict(`{"back_key": null}`)
	require.NoError(t, err)
	assert.Nil(t, verdict.BackKey)

	// Empty string means the same thing as null
	verdict, err = ParseVerdict(`{"back_key": ""}`)
	require.NoError(t, err)
	assert.Nil(t, verdict.BackKey)
}

func TestParseVerdictCodeFences(t *testing.T) {
	verdict, err := ParseVerdict("```json\n{\"back_key\": \"back.jpg\"}\n```")
	require.NoError(t, err)
	require.NotNil(t, verdict.BackKey)
	assert.Equal(t, "back.jpg", *verdict.BackKey)
}

func TestParseVerdictSurroundingProse(t *testing.T) {
	verdict, err := ParseVerdict(`Looking at the signals, the answer is {"back_key": "b2.jpg"} as noted.`)
	require.NoError(t, err)
	require.NotNil(t, verdict.BackKey)
	assert.Equal(t, "b2.jpg", *verdict.BackKey)
}

func TestParseVerdictRejectsGarbage(t *testing.T) {
	_, err := ParseVerdict("no json here at all")
	assert.Error(t, err)

	_, err = ParseVerdict(`{"back_key": `)
	assert.Error(t, err)
}

func TestNewLLMResolverRequiresAPIKey(t *testing.T) {
	_, err := NewLLMResolver(LLMResolverConfig{})
	assert.Error(t, err)

	resolver, err := NewLLMResolver(LLMResolverConfig{APIKey: "test-key"})
	require.NoError(t, err)
	assert.NotNil(t, resolver)
}

func tieBreakRequest() Request {
	return Request{
		Front: models.Feature{
			ImageInsight: models.ImageInsight{
				ImageKey:       "front.jpg",
				Brand:          "Acme",
				ProductName:    "Vitamin Serum",
				PackagingType:  models.PackagingBottle,
				ColorSignature: []string{"amber"},
			},
		},
		Candidates: []models.Candidate{
			{FrontKey: "front.jpg", BackKey: "b1.jpg", PreScore: 4.2},
			{FrontKey: "front.jpg", BackKey: "b2.jpg", PreScore: 3.9},
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(tieBreakRequest())

	assert.Contains(t, prompt, "key: front.jpg")
	assert.Contains(t, prompt, `brand: "Acme"`)
	assert.Contains(t, prompt, "1. key: b1.jpg (pre-score 4.20)")
	assert.Contains(t, prompt, "2. key: b2.jpg (pre-score 3.90)")
}

func TestLLMResolverResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body chatRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[1].Content, "front.jpg")

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"back_key": "b1.jpg", "rationale": "matching bottle"}`}},
			},
		})
	}))
	defer server.Close()

	resolver, err := NewLLMResolver(LLMResolverConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	})
	require.NoError(t, err)

	verdict, err := resolver.Resolve(context.Background(), tieBreakRequest())
	require.NoError(t, err)
	require.NotNil(t, verdict.BackKey)
	assert.Equal(t, "b1.jpg", *verdict.BackKey)
	assert.Equal(t, "matching bottle", verdict.Rationale)
}

func TestLLMResolverAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	resolver, err := NewLLMResolver(LLMResolverConfig{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), tieBreakRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestLLMResolverEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	resolver, err := NewLLMResolver(LLMResolverConfig{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), tieBreakRequest())
	assert.Error(t, err)
}

func TestStaticResolver(t *testing.T) {
	chosen := "back.jpg"
	resolver := &StaticResolver{Verdicts: map[string]*Verdict{
		"front.jpg": {BackKey: &chosen},
	}}

	verdict, err := resolver.Resolve(context.Background(), tieBreakRequest())
	require.NoError(t, err)
	require.NotNil(t, verdict.BackKey)
	assert.Equal(t, "back.jpg", *verdict.BackKey)

	verdict, err = resolver.Resolve(context.Background(), Request{Front: models.Feature{
		ImageInsight: models.ImageInsight{ImageKey: "unseeded.jpg"},
	}})
	require.NoError(t, err)
	assert.Nil(t, verdict.BackKey)
}
