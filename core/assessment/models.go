package assessment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tasktrack/core"
)

type Category string

const (
	CategoryStudyHabits Category = "StudyHabits"
	CategoryPersonality Category = "Personality"
)

type Kind string

const (
	KindStructured Kind = "structured"
	KindLegacy     Kind = "legacy"
)

type Response struct {
	ID       string   `json:"id" validate:"required,notblank"`
	Category Category `json:"category" validate:"required,oneof=StudyHabits Personality"`
	Question string   `json:"question" validate:"required,notblank"`
	Answer   string   `json:"answer" validate:"required,notblank"`
	Label    string   `json:"label,omitempty"`
}

// Responses is either Structured or Legacy.
type Responses interface {
	Kind() Kind
}

// Structured holds typed answers.
type Structured struct {
	Items []Response `json:"items"`
}

func (Structured) Kind() Kind { return KindStructured }

// Legacy holds the free form answers of the first questionnaire.
type Legacy struct {
	StudyHabits map[string]string `json:"study_habits"`
	Personality map[string]string `json:"personality"`
}

func (Legacy) Kind() Kind { return KindLegacy }

// Assessment is immutable once submitted. A student submits at most one.
type Assessment struct {
	ID          string
	UserID      string
	SubmittedAt time.Time
	Responses   Responses

	NotificationPending bool // submission notice not stored yet
}

type envelope struct {
	Kind        Kind              `json:"kind"`
	Items       []Response        `json:"items,omitempty"`
	StudyHabits map[string]string `json:"study_habits,omitempty"`
	Personality map[string]string `json:"personality,omitempty"`
}

// MarshalResponses encodes r with its kind tag.
func MarshalResponses(r Responses) ([]byte, error) {
	switch v := r.(type) {
	case Structured:
		return json.Marshal(envelope{Kind: KindStructured, Items: v.Items})
	case Legacy:
		return json.Marshal(envelope{Kind: KindLegacy, StudyHabits: v.StudyHabits, Personality: v.Personality})
	case nil:
		return json.Marshal(envelope{Kind: KindStructured})
	}
	return nil, fmt.Errorf("assessment: unknown responses type %T", r)
}

// UnmarshalResponses decodes responses encoded by MarshalResponses.
// Untagged documents holding study_habits or personality are read as Legacy.
func UnmarshalResponses(data []byte) (Responses, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case KindStructured:
		return Structured{Items: env.Items}, nil
	case KindLegacy:
		return Legacy{StudyHabits: env.StudyHabits, Personality: env.Personality}, nil
	case "":
		if env.StudyHabits != nil || env.Personality != nil {
			return Legacy{StudyHabits: env.StudyHabits, Personality: env.Personality}, nil
		}
		return Structured{Items: env.Items}, nil
	}
	return nil, fmt.Errorf("assessment: unknown responses kind %q", env.Kind)
}

func (a Assessment) MarshalJSON() ([]byte, error) {
	resp, err := MarshalResponses(a.Responses)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		ID          string          `json:"id"`
		UserID      string          `json:"user_id"`
		SubmittedAt time.Time       `json:"submitted_at"`
		Responses   json.RawMessage `json:"responses"`
	}{a.ID, a.UserID, a.SubmittedAt, resp})
}

func (a *Assessment) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string          `json:"id"`
		UserID      string          `json:"user_id"`
		SubmittedAt time.Time       `json:"submitted_at"`
		Responses   json.RawMessage `json:"responses"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.ID, a.UserID, a.SubmittedAt = raw.ID, raw.UserID, raw.SubmittedAt
	a.Responses = Structured{}
	if len(raw.Responses) > 0 && string(raw.Responses) != "null" {
		resp, err := UnmarshalResponses(raw.Responses)
		if err != nil {
			return err
		}
		a.Responses = resp
	}
	return nil
}

// NewAssessment contains the answers of a submission.
// Items makes a Structured submission; otherwise StudyHabits and Personality make a Legacy one.
type NewAssessment struct {
	Items       []Response        `json:"items" validate:"dive"`
	StudyHabits map[string]string `json:"study_habits"`
	Personality map[string]string `json:"personality"`
}

func (na *NewAssessment) Validate(validate *validator.Validate) error {
	for i := range na.Items {
		na.Items[i].ID = core.CleanString(na.Items[i].ID)
		na.Items[i].Question = core.CleanString(na.Items[i].Question)
		na.Items[i].Answer = core.CleanString(na.Items[i].Answer)
		na.Items[i].Label = core.CleanString(na.Items[i].Label)
	}
	if len(na.Items) == 0 && len(na.StudyHabits) == 0 && len(na.Personality) == 0 {
		return core.NewValidationError(ErrNoResponses, core.FieldError{Field: "items", Error: ErrNoResponses.Error()})
	}
	return validate.Struct(na)
}

func (na NewAssessment) responses() Responses {
	if len(na.Items) > 0 {
		return Structured{Items: na.Items}
	}
	return Legacy{StudyHabits: na.StudyHabits, Personality: na.Personality}
}

// Summary is the admin facing digest of an assessment.
type Summary struct {
	Kind        Kind              `json:"kind"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Total       int               `json:"total"`
	ByCategory  map[Category]int  `json:"by_category,omitempty"`
	Labels      map[string]int    `json:"labels,omitempty"`
	StudyHabits map[string]string `json:"study_habits,omitempty"`
	Personality map[string]string `json:"personality,omitempty"`
}

// Summarize digests a: category and label counts for Structured responses, the raw blobs for Legacy ones.
func Summarize(a Assessment) Summary {
	sum := Summary{SubmittedAt: a.SubmittedAt}
	switch r := a.Responses.(type) {
	case Legacy:
		sum.Kind = KindLegacy
		sum.StudyHabits = r.StudyHabits
		sum.Personality = r.Personality
		sum.Total = len(r.StudyHabits) + len(r.Personality)
	case Structured:
		sum.Kind = KindStructured
		sum.Total = len(r.Items)
		sum.ByCategory = make(map[Category]int)
		for _, item := range r.Items {
			sum.ByCategory[item.Category]++
			if item.Label != "" {
				if sum.Labels == nil {
					sum.Labels = make(map[string]int)
				}
				sum.Labels[item.Label]++
			}
		}
	default:
		sum.Kind = KindStructured
	}
	return sum
}
