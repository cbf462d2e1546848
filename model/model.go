package model

import "time"

type QuestionType string

const (
	ShortText      QuestionType = "short_text"
	Paragraph      QuestionType = "paragraph"
	MultipleChoice QuestionType = "multiple_choice"
	Checkboxes     QuestionType = "checkboxes"
	Dropdown       QuestionType = "dropdown"
	Date           QuestionType = "date"
	NumberField    QuestionType = "number"
	Rating         QuestionType = "rating"
	File           QuestionType = "file"
)

// IsChoice reports whether answers to this question type select among
// declared options.
func (t QuestionType) IsChoice() bool {
	return t == MultipleChoice || t == Checkboxes || t == Dropdown
}

type Question struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Label    string       `json:"label"`
	Required bool         `json:"required"`
	Options  []string     `json:"options,omitempty"`
	Min      *float64     `json:"min,omitempty"`
	Max      *float64     `json:"max,omitempty"`
	Step     *float64     `json:"step,omitempty"`
}

// HasOption reports whether s matches one of the declared options exactly.
func (q Question) HasOption(s string) bool {
	for _, o := range q.Options {
		if o == s {
			return true
		}
	}
	return false
}

type Form struct {
	ID           int64      `json:"id,omitempty"`
	OwnerID      string     `json:"owner,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Thumbnail    string     `json:"-"`
	TotalMembers *int64     `json:"totalMembers"`
	Questions    []Question `json:"questions"`
	CreatedAt    time.Time  `json:"createdAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt,omitempty"`
}

// Question returns the first question carrying the given id, or nil.
// Id uniqueness within a form is the caller's responsibility; duplicates
// resolve to the first match here.
func (f *Form) Question(id string) *Question {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return &f.Questions[i]
		}
	}
	return nil
}

type Answer struct {
	QuestionID string `json:"questionId"`
	Value      Value  `json:"value"`
}

type Response struct {
	ID        int64     `json:"id"`
	FormID    int64     `json:"formId"`
	Answers   []Answer  `json:"answers"`
	CreatedAt time.Time `json:"createdAt"`
}

type Role string

const (
	RoleUser   Role = "user"
	RoleMaster Role = "master"
)

type Plan string

const (
	PlanFree Plan = "free"
	PlanPaid Plan = "paid"
)

type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Plan      Plan      `json:"plan"`
	CreatedAt time.Time `json:"createdAt"`
}

type ResourceKind string

const (
	ResourceTasks ResourceKind = "tasks"
	ResourceTexts ResourceKind = "texts"
	ResourceDocs  ResourceKind = "docs"
	ResourceForms ResourceKind = "forms"
)

// DefaultFreeLimits are the ceilings seeded into a fresh installation.
var DefaultFreeLimits = FreeLimits{Tasks: 10, Texts: 10, Docs: 5, Forms: 2}

// FreeLimits is the singleton quota table for free-plan accounts, editable
// by masters only.
type FreeLimits struct {
	Tasks int64 `json:"tasks"`
	Texts int64 `json:"texts"`
	Docs  int64 `json:"docs"`
	Forms int64 `json:"forms"`
}

func (l FreeLimits) ForResource(kind ResourceKind) int64 {
	switch kind {
	case ResourceTasks:
		return l.Tasks
	case ResourceTexts:
		return l.Texts
	case ResourceDocs:
		return l.Docs
	case ResourceForms:
		return l.Forms
	}
	return 0
}

type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskCompleted TaskStatus = "completed"
)

type Task struct {
	ID        int64      `json:"id"`
	OwnerID   string     `json:"owner,omitempty"`
	Title     string     `json:"title"`
	Note      string     `json:"note"`
	Status    TaskStatus `json:"status"`
	Date      *time.Time `json:"date"`
	Starred   bool       `json:"starred"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type Text struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner,omitempty"`
	Heading   string    `json:"heading"`
	Body      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SuggestionCategory string

const (
	SuggestionBug     SuggestionCategory = "bug"
	SuggestionFeature SuggestionCategory = "feature"
	SuggestionIdea    SuggestionCategory = "idea"
	SuggestionOther   SuggestionCategory = "other"
)

func (c SuggestionCategory) Valid() bool {
	switch c {
	case SuggestionBug, SuggestionFeature, SuggestionIdea, SuggestionOther:
		return true
	}
	return false
}

// Suggestion is anonymous visitor feedback. Creation is public; reading and
// deleting are master-only, so the request metadata stays in the payload.
type Suggestion struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Subject   string             `json:"subject"`
	Category  SuggestionCategory `json:"category"`
	Message   string             `json:"message"`
	IP        string             `json:"ip"`
	UserAgent string             `json:"userAgent"`
	CreatedAt time.Time          `json:"createdAt"`
}
