package assessment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponsesEncoding(t *testing.T) {
	tests := []struct {
		name string
		in   Responses
		want string
	}{
		{
			name: "structured",
			in:   Structured{Items: []Response{{ID: "q1", Category: CategoryStudyHabits, Question: "When?", Answer: "Evenings"}}},
			want: `{"kind":"structured","items":[{"id":"q1","category":"StudyHabits","question":"When?","answer":"Evenings"}]}`,
		},
		{
			name: "legacy",
			in:   Legacy{StudyHabits: map[string]string{"time": "night"}, Personality: map[string]string{"type": "introvert"}},
			want: `{"kind":"legacy","study_habits":{"time":"night"},"personality":{"type":"introvert"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalResponses(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			back, err := UnmarshalResponses(data)
			require.NoError(t, err)
			assert.Equal(t, tt.in, back)
		})
	}

	t.Run("untagged legacy document", func(t *testing.T) {
		r, err := UnmarshalResponses([]byte(`{"study_habits":{"time":"morning"}}`))
		require.NoError(t, err)
		assert.Equal(t, KindLegacy, r.Kind())
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := UnmarshalResponses([]byte(`{"kind":"survey"}`))
		assert.Error(t, err)
	})
}

func TestAssessmentJSON(t *testing.T) {
	a := Assessment{
		ID:          "a1",
		UserID:      "u1",
		SubmittedAt: time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC),
		Responses:   Legacy{StudyHabits: map[string]string{"place": "library"}},
	}
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"legacy"`)

	var back Assessment
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

func TestSummarize(t *testing.T) {
	structured := Assessment{Responses: Structured{Items: []Response{
		{ID: "1", Category: CategoryStudyHabits, Question: "q", Answer: "a", Label: "planner"},
		{ID: "2", Category: CategoryStudyHabits, Question: "q", Answer: "a", Label: "planner"},
		{ID: "3", Category: CategoryPersonality, Question: "q", Answer: "a"},
	}}}
	sum := Summarize(structured)
	assert.Equal(t, KindStructured, sum.Kind)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, map[Category]int{CategoryStudyHabits: 2, CategoryPersonality: 1}, sum.ByCategory)
	assert.Equal(t, map[string]int{"planner": 2}, sum.Labels)
	assert.Nil(t, sum.StudyHabits)

	legacy := Assessment{Responses: Legacy{
		StudyHabits: map[string]string{"time": "night", "place": "home"},
		Personality: map[string]string{"type": "extrovert"},
	}}
	sum = Summarize(legacy)
	assert.Equal(t, KindLegacy, sum.Kind)
	assert.Equal(t, 3, sum.Total)
	assert.Nil(t, sum.ByCategory)
	assert.Equal(t, "home", sum.StudyHabits["place"])
}
