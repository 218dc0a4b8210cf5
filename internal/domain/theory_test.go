package domain

import "testing"

func weightedDescriptor() *TheoryDescriptor {
	return &TheoryDescriptor{
		Name:           "bazi",
		Tier:           TierBase,
		RequiredFields: []string{FieldQuestion, FieldCategory, FieldBirthYear, FieldBirthMonth, FieldBirthDay},
		OptionalFields: []string{FieldBirthHour, FieldGender},
		FieldWeights: map[string]float64{
			FieldBirthYear: 2.0,
			FieldBirthHour: 0.5,
		},
		MinCompleteness: 0.5,
	}
}

func TestCompletenessRange(t *testing.T) {
	d := weightedDescriptor()

	empty := UserInput{}
	if got := Completeness(empty, d); got != 0 {
		t.Errorf("Completeness(empty) = %f, want 0", got)
	}

	full := NewUserInput("q", CategoryCareer)
	for _, f := range []string{FieldBirthYear, FieldBirthMonth, FieldBirthDay, FieldBirthHour, FieldGender} {
		full.Replace(f, 1)
	}
	if got := Completeness(full, d); got != 1 {
		t.Errorf("Completeness(full) = %f, want 1", got)
	}

	for _, in := range []UserInput{empty, NewUserInput("q", CategoryCareer), full} {
		if got := Completeness(in, d); got < 0 || got > 1 {
			t.Errorf("Completeness = %f, out of [0,1]", got)
		}
	}
}

func TestCompletenessMonotonicUnderFieldAddition(t *testing.T) {
	d := weightedDescriptor()
	in := NewUserInput("q", CategoryCareer)

	prev := Completeness(in, d)
	for _, f := range []string{FieldBirthYear, FieldBirthMonth, FieldBirthDay, FieldBirthHour, FieldGender} {
		if err := in.Set(f, 1); err != nil {
			t.Fatalf("Set(%s): %v", f, err)
		}
		got := Completeness(in, d)
		if got < prev {
			t.Errorf("Completeness dropped from %f to %f after adding %s", prev, got, f)
		}
		prev = got
	}
}

func TestCompletenessIgnoresUnrelatedFields(t *testing.T) {
	d := weightedDescriptor()
	in := NewUserInput("q", CategoryCareer)
	if err := in.Set(FieldBirthYear, 1992); err != nil {
		t.Fatal(err)
	}

	before := Completeness(in, d)
	for _, f := range []string{FieldNumbers, FieldColor, FieldDirection, FieldCharacter} {
		if err := in.Set(f, "x"); err != nil {
			t.Fatal(err)
		}
	}
	if got := Completeness(in, d); got != before {
		t.Errorf("Completeness changed from %f to %f on unrelated fields", before, got)
	}
}

func TestCompletenessDefaultFieldWeight(t *testing.T) {
	// Fields without a declared weight count as 1.0, so a descriptor with
	// no FieldWeights map scores by plain field fraction.
	d := &TheoryDescriptor{
		Name:           "cezi",
		Tier:           TierQuick,
		RequiredFields: []string{FieldQuestion, FieldCharacter},
	}
	in := NewUserInput("q", CategoryDecision)
	if got := Completeness(in, d); got != 0.5 {
		t.Errorf("Completeness = %f, want 0.5", got)
	}
}
