// Package validate type-checks submitted answers against the form they
// target. It is pure: violations are returned as messages, never as errors,
// and nothing is persisted or rejected here.
package validate

import (
	"fmt"

	"github.com/formden/formden/model"
)

// Response checks answers against form and returns one message per
// violation. An empty result means the submission is acceptable. Answers
// whose questionId matches no question are ignored.
func Response(form model.Form, answers []model.Answer) []string {
	questions := make(map[string]model.Question, len(form.Questions))
	for _, q := range form.Questions {
		questions[q.ID] = q
	}

	var violations []string

	// required pass: first answer wins when several share a questionId
	for _, q := range form.Questions {
		if !q.Required {
			continue
		}
		a, ok := firstAnswer(answers, q.ID)
		if !ok {
			violations = append(violations, "Missing required: "+q.Label)
			continue
		}
		if q.Type == model.Checkboxes {
			if a.Value.Kind() != model.List || len(a.Value.List()) == 0 {
				violations = append(violations, "Empty required (checkboxes): "+q.Label)
			}
		} else if a.Value.IsEmpty() {
			violations = append(violations, "Empty required: "+q.Label)
		}
	}

	// type-conformance pass
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			continue
		}

		switch q.Type {
		case model.NumberField:
			violations = checkNumeric(violations, q, a.Value, "Expected number: ")
		case model.Rating:
			violations = checkNumeric(violations, q, a.Value, "Expected rating number: ")

		case model.MultipleChoice, model.Dropdown:
			if len(q.Options) > 0 && !isOption(q, a.Value) {
				violations = append(violations, "Invalid option for: "+q.Label)
			}

		case model.Checkboxes:
			if a.Value.Kind() != model.List {
				violations = append(violations, "Expected array for checkboxes: "+q.Label)
				break
			}
			for _, v := range a.Value.List() {
				if !q.HasOption(v) {
					violations = append(violations, "Invalid checkbox option: "+q.Label)
					break
				}
			}
		}
	}

	return violations
}

// checkNumeric accumulates the coercion violation and the bound violations.
// Bounds are inclusive and independent, so an out-of-range value below min
// and above max (possible with inverted bounds) reports both.
func checkNumeric(violations []string, q model.Question, v model.Value, coerceMsg string) []string {
	n, ok := v.AsNumber()
	if !ok {
		return append(violations, coerceMsg+q.Label)
	}
	if q.Min != nil && n < *q.Min {
		violations = append(violations, fmt.Sprintf("Min %v: %s", *q.Min, q.Label))
	}
	if q.Max != nil && n > *q.Max {
		violations = append(violations, fmt.Sprintf("Max %v: %s", *q.Max, q.Label))
	}
	return violations
}

func isOption(q model.Question, v model.Value) bool {
	return v.Kind() == model.TextKind && q.HasOption(v.Text())
}

func firstAnswer(answers []model.Answer, questionID string) (model.Answer, bool) {
	for _, a := range answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return model.Answer{}, false
}
