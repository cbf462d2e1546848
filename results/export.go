package results

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/formden/formden/model"
)

const submittedAtHeader = "Submitted At"

// ExportCSV writes one row per response, one column per question in form
// declaration order, plus a final submission-timestamp column. Callers pass
// responses oldest first.
func ExportCSV(w io.Writer, form model.Form, responses []model.Response) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(form.Questions)+1)
	for _, q := range form.Questions {
		header = append(header, q.Label)
	}
	header = append(header, submittedAtHeader)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, r := range responses {
		for i, q := range form.Questions {
			row[i] = cellValue(r.Answers, q.ID)
		}
		row[len(row)-1] = r.CreatedAt.UTC().Format(time.RFC3339)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func cellValue(answers []model.Answer, questionID string) string {
	for _, a := range answers {
		if a.QuestionID != questionID {
			continue
		}
		switch a.Value.Kind() {
		case model.TextKind:
			return a.Value.Text()
		case model.Number:
			n, _ := a.Value.AsNumber()
			return strconv.FormatFloat(n, 'f', -1, 64)
		case model.List:
			return strings.Join(a.Value.List(), "; ")
		}
		return ""
	}
	return ""
}
