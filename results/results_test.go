package results

import (
	"testing"

	"github.com/formden/formden/model"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64ptr(n int64) *int64 { return &n }

func choiceForm() model.Form {
	return model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.MultipleChoice, Label: "Pick", Options: []string{"A", "B"}},
		{ID: "q2", Type: model.Checkboxes, Label: "Topics", Options: []string{"go", "sql"}},
		{ID: "q3", Type: model.ShortText, Label: "Name"},
	}}
}

func answer(q string, v model.Value) model.Answer {
	return model.Answer{QuestionID: q, Value: v}
}

func TestAggregateTallies(t *testing.T) {
	form := choiceForm()
	responses := []model.Response{
		{Answers: []model.Answer{
			answer("q1", model.TextValue("A")),
			answer("q2", model.ListValue("go", "sql")),
			answer("q3", model.TextValue("ada")),
		}},
		{Answers: []model.Answer{
			answer("q1", model.TextValue("A")),
			answer("q2", model.ListValue("go")),
		}},
	}

	agg := Aggregate(form, responses)

	require.Contains(t, agg.ChoiceSummary, "q1")
	require.Contains(t, agg.ChoiceSummary, "q2")
	assert.NotContains(t, agg.ChoiceSummary, "q3", "non-choice questions get no bucket")

	n, ok := agg.ChoiceSummary["q1"].Count("A")
	require.True(t, ok)
	assert.EqualValues(t, 2, n)
	n, _ = agg.ChoiceSummary["q1"].Count("B")
	assert.Zero(t, n)

	// a single checkbox answer increments several buckets
	n, _ = agg.ChoiceSummary["q2"].Count("go")
	assert.EqualValues(t, 2, n)
	n, _ = agg.ChoiceSummary["q2"].Count("sql")
	assert.EqualValues(t, 1, n)
}

func TestAggregateToleratesMalformedHistory(t *testing.T) {
	form := choiceForm()
	responses := []model.Response{
		{Answers: []model.Answer{
			answer("deleted", model.TextValue("A")),     // question edited away
			answer("q1", model.TextValue("C")),          // never a declared option
			answer("q1", model.ListValue("A")),          // wrong shape
			answer("q2", model.TextValue("go")),         // wrong shape
			answer("q2", model.ListValue("go", "rust")), // partially stale
			answer("q2", model.NullValue),
		}},
	}

	agg := Aggregate(form, responses)

	n, _ := agg.ChoiceSummary["q1"].Count("A")
	assert.Zero(t, n)
	n, _ = agg.ChoiceSummary["q2"].Count("go")
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 1, agg.Attended)
}

func TestAttendance(t *testing.T) {
	form := model.Form{TotalMembers: int64ptr(50)}
	agg := Aggregate(form, make([]model.Response, 3))
	assert.EqualValues(t, 3, agg.Attended)
	require.NotNil(t, agg.Absent)
	assert.EqualValues(t, 47, *agg.Absent)
}

func TestAbsentNeverNegative(t *testing.T) {
	form := model.Form{TotalMembers: int64ptr(2)}
	agg := Aggregate(form, make([]model.Response, 5))
	require.NotNil(t, agg.Absent)
	assert.Zero(t, *agg.Absent)
}

func TestAbsentNullWithoutMemberTotal(t *testing.T) {
	agg := Aggregate(model.Form{}, make([]model.Response, 3))
	assert.Nil(t, agg.Absent)

	out, err := json.Marshal(agg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"absent":null`)
}

func TestSummaryPreservesOptionOrder(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.Dropdown, Label: "Pick", Options: []string{"z", "a", "m"}},
	}}

	agg := Aggregate(form, nil)
	out, err := json.Marshal(agg.ChoiceSummary["q1"])
	require.NoError(t, err)
	assert.Equal(t, `{"z":0,"a":0,"m":0}`, string(out))
}

func TestDuplicateQuestionIdsLastBucketWins(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.Dropdown, Label: "Old", Options: []string{"x"}},
		{ID: "q1", Type: model.Dropdown, Label: "New", Options: []string{"y"}},
	}}

	agg := Aggregate(form, nil)
	_, ok := agg.ChoiceSummary["q1"].Count("y")
	assert.True(t, ok)
	_, ok = agg.ChoiceSummary["q1"].Count("x")
	assert.False(t, ok)
}
