package domain

import "fmt"

// Canonical input field names. Theories declare their requirements against
// these, and the flow guard collects them stage by stage.
const (
	FieldQuestion      = "question"
	FieldCategory      = "category"
	FieldNumbers       = "numbers"
	FieldCharacter     = "character"
	FieldBirthYear     = "birth_year"
	FieldBirthMonth    = "birth_month"
	FieldBirthDay      = "birth_day"
	FieldBirthHour     = "birth_hour"
	FieldGender        = "gender"
	FieldPersonality   = "personality"
	FieldColor         = "color"
	FieldDirection     = "direction"
	FieldTimeCertainty = "time_certainty"
)

// BirthHourUnknown marks a birth hour the user could not recall. The field
// counts as present but time-dependent theories discount it.
const BirthHourUnknown = -1

// UserInput is the accumulated field map for one session. Fields grow
// monotonically: Set refuses to overwrite, Replace is the explicit
// modify path.
type UserInput map[string]any

func NewUserInput(question string, category QuestionCategory) UserInput {
	return UserInput{
		FieldQuestion: question,
		FieldCategory: string(category),
	}
}

func (in UserInput) Has(field string) bool {
	v, ok := in[field]
	return ok && v != nil
}

// Set records a field value. Setting an already-present field is an error;
// callers that mean to change a value must use Replace.
func (in UserInput) Set(field string, value any) error {
	if in.Has(field) {
		return fmt.Errorf("field %q already set; use modify to change it", field)
	}
	in[field] = value
	return nil
}

// Replace overwrites a field out-of-band (the modify command).
func (in UserInput) Replace(field string, value any) {
	in[field] = value
}

func (in UserInput) Question() string {
	s, _ := in[FieldQuestion].(string)
	return s
}

func (in UserInput) Category() QuestionCategory {
	s, _ := in[FieldCategory].(string)
	return QuestionCategory(s)
}

func (in UserInput) Int(field string) (int, bool) {
	switch v := in[field].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func (in UserInput) String(field string) (string, bool) {
	s, ok := in[field].(string)
	return s, ok
}

func (in UserInput) Ints(field string) ([]int, bool) {
	switch v := in[field].(type) {
	case []int:
		return v, true
	case []any:
		out := make([]int, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// Clone returns a shallow copy. Theory runners receive clones so a modify
// command cannot race with an in-flight calculation.
func (in UserInput) Clone() UserInput {
	out := make(UserInput, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
