package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackFeedbackBuckets(t *testing.T) {
	high := FallbackFeedback(8)
	mid := FallbackFeedback(5)
	low := FallbackFeedback(4)

	assert.Equal(t, high, FallbackFeedback(10))
	assert.Equal(t, mid, FallbackFeedback(7))
	assert.Equal(t, low, FallbackFeedback(1))
	assert.NotEqual(t, high, mid)
	assert.NotEqual(t, mid, low)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON(`Вот данные: {"a":1} — готово.`))
	assert.Equal(t, `{"a":{"b":2}}`, extractJSON(`{"a":{"b":2}}`))
	assert.Equal(t, "no json here", extractJSON("no json here"))
}

func newStubAI(t *testing.T, reply string) (*AIService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
	ai := NewAIService("test-key", "test-model")
	ai.BaseURL = server.URL
	return ai, server
}

func TestNarrative(t *testing.T) {
	ai, server := newStubAI(t, "Отличная практика!")
	defer server.Close()

	text, err := ai.Narrative(context.Background(), KindSessionFeedback, map[string]interface{}{
		"duration": 20, "rating": 8, "comment": "спокойно",
	})
	require.NoError(t, err)
	assert.Equal(t, "Отличная практика!", text)
}

func TestNarrativeUnknownKind(t *testing.T) {
	ai, server := newStubAI(t, "x")
	defer server.Close()

	_, err := ai.Narrative(context.Background(), NarrativeKind("bogus"), nil)
	assert.Error(t, err)
}

func TestNarrativeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ai := NewAIService("test-key", "test-model")
	ai.BaseURL = server.URL

	_, err := ai.Narrative(context.Background(), KindSessionFeedback, map[string]interface{}{})
	assert.Error(t, err)
}

func TestParseEntry(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	reply := `{"date": "` + yesterday + `", "time": "08:30", "duration": 25, "rating": 8, "comment": "утром", "confidence": true}`
	ai, server := newStubAI(t, reply)
	defer server.Close()

	candidate, err := ai.ParseEntry(context.Background(), "вчера утром медитировал 25 минут, оценка 8")
	require.NoError(t, err)
	assert.Equal(t, 25, candidate.Duration)
	require.NotNil(t, candidate.Rating)
	assert.Equal(t, 8, *candidate.Rating)
	assert.Equal(t, 8, candidate.StartTime.Hour())
	assert.Equal(t, 30, candidate.StartTime.Minute())
}

func TestParseEntryLowConfidence(t *testing.T) {
	ai, server := newStubAI(t, `{"confidence": false}`)
	defer server.Close()

	_, err := ai.ParseEntry(context.Background(), "что-то непонятное")
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestParseEntryRejectsFuture(t *testing.T) {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	reply := `{"date": "` + tomorrow + `", "time": "10:00", "duration": 20, "rating": null, "comment": "", "confidence": true}`
	ai, server := newStubAI(t, reply)
	defer server.Close()

	_, err := ai.ParseEntry(context.Background(), "завтра помедитирую")
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestParseEntryRejectsBadRating(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	reply := `{"date": "` + yesterday + `", "time": "10:00", "duration": 20, "rating": 15, "comment": "", "confidence": true}`
	ai, server := newStubAI(t, reply)
	defer server.Close()

	_, err := ai.ParseEntry(context.Background(), "медитировал, оценка пятнадцать")
	assert.ErrorIs(t, err, ErrInvalidRating)
}
