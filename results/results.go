// Package results tabulates collected responses: per-question option tallies
// and attendance statistics. Aggregation is total over whatever historical
// data exists; stale question ids, unknown options and wrong-shaped values
// are skipped, never an error.
package results

import (
	"github.com/formden/formden/model"
	"github.com/goccy/go-json"
)

// OptionTally counts selections per declared option, preserving the
// declaration order in its JSON form so output is stable across runs.
type OptionTally struct {
	options []string
	counts  map[string]int64
}

func newOptionTally(options []string) *OptionTally {
	t := &OptionTally{
		options: options,
		counts:  make(map[string]int64, len(options)),
	}
	for _, o := range options {
		t.counts[o] = 0
	}
	return t
}

// Count returns the tally for an option, and whether the option is declared.
func (t *OptionTally) Count(option string) (int64, bool) {
	n, ok := t.counts[option]
	return n, ok
}

func (t *OptionTally) add(option string) {
	if _, ok := t.counts[option]; ok {
		t.counts[option]++
	}
}

func (t *OptionTally) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	seen := make(map[string]bool, len(t.options))
	for _, o := range t.options {
		if seen[o] {
			continue
		}
		seen[o] = true
		if len(buf) > 1 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(o)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(t.counts[o])
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

type Results struct {
	ChoiceSummary map[string]*OptionTally `json:"choiceSummary"`
	Attended      int64                   `json:"attended"`
	// Absent is nil when the form declares no member total; it is never
	// negative.
	Absent *int64 `json:"absent"`
}

// Aggregate tallies choice answers and attendance for a form. A summary
// bucket exists for every choice-like question; when several questions share
// an id the last one declared wins the bucket.
func Aggregate(form model.Form, responses []model.Response) Results {
	summary := make(map[string]*OptionTally)
	for _, q := range form.Questions {
		if q.Type.IsChoice() {
			summary[q.ID] = newOptionTally(q.Options)
		}
	}

	for _, r := range responses {
		for _, a := range r.Answers {
			q := form.Question(a.QuestionID)
			if q == nil {
				continue
			}
			tally := summary[q.ID]
			if tally == nil {
				continue
			}
			switch q.Type {
			case model.MultipleChoice, model.Dropdown:
				if s := a.Value.Text(); s != "" {
					tally.add(s)
				}
			case model.Checkboxes:
				for _, v := range a.Value.List() {
					tally.add(v)
				}
			}
		}
	}

	res := Results{
		ChoiceSummary: summary,
		Attended:      int64(len(responses)),
	}
	if form.TotalMembers != nil {
		absent := *form.TotalMembers - res.Attended
		if absent < 0 {
			absent = 0
		}
		res.Absent = &absent
	}
	return res
}
