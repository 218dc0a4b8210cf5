package flow

import (
	"reflect"
	"testing"

	"github.com/li2092/cyber-mantic/internal/domain"
)

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		question string
		want     domain.QuestionCategory
	}{
		{"Should I take the new job offer?", domain.CategoryCareer},
		{"Will my investment pay off?", domain.CategoryWealth},
		{"Is there romance coming my way?", domain.CategoryLove},
		{"Will the wedding go ahead next spring?", domain.CategoryMarriage},
		{"Why can't I sleep lately?", domain.CategoryHealth},
		{"Will I pass the exam?", domain.CategoryStudy},
		{"When will this deadlock end?", domain.CategoryTiming},
		{"Hmm.", domain.CategoryDecision},
	}
	for _, tt := range tests {
		if got := DetectCategory(tt.question); got != tt.want {
			t.Errorf("DetectCategory(%q) = %s, want %s", tt.question, got, tt.want)
		}
	}
}

func TestParseField_Numbers(t *testing.T) {
	v, err := ParseField(domain.FieldNumbers, "let's say 3, 7 and 5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(v, []int{3, 7, 5}) {
		t.Errorf("numbers = %v, want [3 7 5]", v)
	}

	if _, err := ParseField(domain.FieldNumbers, "just 4 and 9"); err == nil {
		t.Error("expected error for two numbers")
	}
}

func TestParseField_BirthFields(t *testing.T) {
	if v, err := ParseField(domain.FieldBirthYear, "born in 1992"); err != nil || v != 1992 {
		t.Errorf("year = %v, %v; want 1992", v, err)
	}
	if _, err := ParseField(domain.FieldBirthYear, "year 2093"); err == nil {
		t.Error("future year accepted")
	}
	if v, err := ParseField(domain.FieldBirthHour, "around 3pm I think"); err != nil || v != 15 {
		t.Errorf("hour = %v, %v; want 15", v, err)
	}
	if v, err := ParseField(domain.FieldBirthHour, "honestly I don't know"); err != nil || v != domain.BirthHourUnknown {
		t.Errorf("hour = %v, %v; want %d", v, err, domain.BirthHourUnknown)
	}
	if v, err := ParseField(domain.FieldBirthMonth, "April, so 4"); err != nil || v != 4 {
		t.Errorf("month = %v, %v; want 4", v, err)
	}
}

func TestParseField_GenderAndPersonality(t *testing.T) {
	if v, _ := ParseField(domain.FieldGender, "I'm a woman"); v != "female" {
		t.Errorf("gender = %v, want female", v)
	}
	if v, _ := ParseField(domain.FieldGender, "male"); v != "male" {
		t.Errorf("gender = %v, want male", v)
	}
	if v, _ := ParseField(domain.FieldPersonality, "I tested as intj once"); v != "INTJ" {
		t.Errorf("personality = %v, want INTJ", v)
	}
	if _, err := ParseField(domain.FieldPersonality, "ABCD"); err == nil {
		t.Error("invalid type accepted")
	}
}

func TestParseField_Character(t *testing.T) {
	if v, _ := ParseField(domain.FieldCharacter, "the character 缘 feels right"); v != "缘" {
		t.Errorf("character = %v, want 缘", v)
	}
	if v, _ := ParseField(domain.FieldCharacter, "fate"); v != "fate" {
		t.Errorf("character = %v, want fate", v)
	}
}

func TestParseField_DirectionPrefersLongestMatch(t *testing.T) {
	if v, _ := ParseField(domain.FieldDirection, "pulled toward the southeast"); v != "southeast" {
		t.Errorf("direction = %v, want southeast", v)
	}
}

func TestIsSkip(t *testing.T) {
	for _, text := range []string{"I don't know", "no idea honestly", "let's skip that"} {
		if !IsSkip(text) {
			t.Errorf("IsSkip(%q) = false, want true", text)
		}
	}
	if IsSkip("1992") {
		t.Error("IsSkip(1992) = true")
	}
}

func TestDetectModify(t *testing.T) {
	field, raw, ok := DetectModify("actually my birth year is 1993")
	if !ok || field != domain.FieldBirthYear {
		t.Fatalf("modify = %q/%v, want birth_year", field, ok)
	}
	if v, err := ParseField(field, raw); err != nil || v != 1993 {
		t.Errorf("re-parsed value = %v, %v; want 1993", v, err)
	}

	field, _, ok = DetectModify("please change the numbers to 2 4 6")
	if !ok || field != domain.FieldNumbers {
		t.Errorf("modify = %q/%v, want numbers", field, ok)
	}

	if _, _, ok := DetectModify("I was born in 1992"); ok {
		t.Error("plain statement detected as modify")
	}
}
