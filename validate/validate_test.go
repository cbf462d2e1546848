package validate

import (
	"testing"

	"github.com/formden/formden/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestEmptySubmissionFlagsEveryRequiredQuestion(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.ShortText, Label: "Name", Required: true},
		{ID: "q2", Type: model.Paragraph, Label: "Bio"},
		{ID: "q3", Type: model.Checkboxes, Label: "Topics", Required: true, Options: []string{"a"}},
	}}

	violations := Response(form, nil)
	assert.Equal(t, []string{
		"Missing required: Name",
		"Missing required: Topics",
	}, violations)

	form.Questions[0].Required = false
	form.Questions[2].Required = false
	assert.Empty(t, Response(form, nil))
}

func TestRequiredEmptinessIsTypeSensitive(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.ShortText, Label: "Name", Required: true},
		{ID: "q2", Type: model.Checkboxes, Label: "Topics", Required: true, Options: []string{"a"}},
	}}

	violations := Response(form, []model.Answer{
		{QuestionID: "q1", Value: model.TextValue("")},
		{QuestionID: "q2", Value: model.ListValue()},
	})
	assert.Equal(t, []string{
		"Empty required: Name",
		"Empty required (checkboxes): Topics",
	}, violations)

	violations = Response(form, []model.Answer{
		{QuestionID: "q1", Value: model.NullValue},
		{QuestionID: "q2", Value: model.TextValue("a")},
	})
	assert.Contains(t, violations, "Empty required: Name")
	assert.Contains(t, violations, "Empty required (checkboxes): Topics")
}

func TestNumericBounds(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.NumberField, Label: "Age", Min: ptr(18), Max: ptr(99)},
	}}

	check := func(v model.Value) []string {
		return Response(form, []model.Answer{{QuestionID: "q1", Value: v}})
	}

	assert.Empty(t, check(model.NumberValue(18)), "min is inclusive")
	assert.Empty(t, check(model.NumberValue(99)), "max is inclusive")
	assert.Empty(t, check(model.TextValue("50")), "text coerces")

	assert.Equal(t, []string{"Min 18: Age"}, check(model.NumberValue(17)))
	assert.Equal(t, []string{"Max 99: Age"}, check(model.NumberValue(100)))
	assert.Equal(t, []string{"Expected number: Age"}, check(model.TextValue("abc")))
	assert.Equal(t, []string{"Expected number: Age"}, check(model.ListValue("5")))
}

func TestNumericBoundsFireIndependently(t *testing.T) {
	// inverted bounds: any value violates both
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.Rating, Label: "Score", Min: ptr(10), Max: ptr(1)},
	}}

	violations := Response(form, []model.Answer{{QuestionID: "q1", Value: model.NumberValue(5)}})
	assert.Equal(t, []string{"Min 10: Score", "Max 1: Score"}, violations)
}

func TestRatingUsesItsOwnCoercionMessage(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.Rating, Label: "Score"},
	}}

	violations := Response(form, []model.Answer{{QuestionID: "q1", Value: model.ListValue()}})
	assert.Equal(t, []string{"Expected rating number: Score"}, violations)
}

func TestChoiceMembership(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.MultipleChoice, Label: "Pick", Options: []string{"A", "B"}},
	}}

	check := func(v model.Value) []string {
		return Response(form, []model.Answer{{QuestionID: "q1", Value: v}})
	}

	assert.Empty(t, check(model.TextValue("A")))
	assert.Equal(t, []string{"Invalid option for: Pick"}, check(model.TextValue("C")))
	assert.Equal(t, []string{"Invalid option for: Pick"}, check(model.TextValue("a")), "matching is case-sensitive")

	// no declared options means no constraint
	form.Questions[0].Options = nil
	assert.Empty(t, check(model.TextValue("anything")))
}

func TestDropdownBehavesLikeMultipleChoice(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.Dropdown, Label: "Size", Options: []string{"S", "M"}},
	}}

	violations := Response(form, []model.Answer{{QuestionID: "q1", Value: model.TextValue("XL")}})
	assert.Equal(t, []string{"Invalid option for: Size"}, violations)
}

func TestCheckboxes(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.Checkboxes, Label: "Topics", Options: []string{"go", "sql", "http"}},
	}}

	check := func(v model.Value) []string {
		return Response(form, []model.Answer{{QuestionID: "q1", Value: v}})
	}

	assert.Empty(t, check(model.ListValue("go", "http")))
	assert.Equal(t, []string{"Expected array for checkboxes: Topics"}, check(model.TextValue("go")))

	// one bad element fails the whole answer, and is reported once
	violations := check(model.ListValue("go", "rust", "perl"))
	assert.Equal(t, []string{"Invalid checkbox option: Topics"}, violations)
}

func TestUnknownQuestionIdsAreIgnored(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.ShortText, Label: "Name"},
	}}

	violations := Response(form, []model.Answer{
		{QuestionID: "deleted", Value: model.ListValue("x")},
		{QuestionID: "q1", Value: model.TextValue("ok")},
	})
	assert.Empty(t, violations)
}

func TestDuplicateQuestionIds(t *testing.T) {
	// id uniqueness is the caller's responsibility; the required pass takes
	// the first answer, the type pass resolves the last question declared
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.ShortText, Label: "First", Required: true},
		{ID: "q1", Type: model.NumberField, Label: "Second"},
	}}

	violations := Response(form, []model.Answer{
		{QuestionID: "q1", Value: model.TextValue("abc")},
		{QuestionID: "q1", Value: model.TextValue("")},
	})
	assert.Equal(t, []string{"Expected number: Second"}, violations)
}

func TestSpecimenScenario(t *testing.T) {
	form := model.Form{Questions: []model.Question{
		{ID: "q1", Type: model.MultipleChoice, Label: "Attending?", Required: true, Options: []string{"A", "B"}},
	}}

	violations := Response(form, []model.Answer{{QuestionID: "q1", Value: model.TextValue("C")}})
	require.Equal(t, []string{"Invalid option for: Attending?"}, violations)

	assert.Empty(t, Response(form, []model.Answer{{QuestionID: "q1", Value: model.TextValue("A")}}))
}
