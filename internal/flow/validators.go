package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/li2092/cyber-mantic/internal/domain"
)

// InputValidationError is recovered locally by re-prompting; it never
// aborts the session.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

var (
	numberPattern = regexp.MustCompile(`\b[1-9]\b`)
	yearPattern   = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	mbtiPattern   = regexp.MustCompile(`(?i)\b([EI][NS][TF][JP])\b`)
	// Ordinal suffixes are allowed so "the 18th" reads as 18.
	intPattern  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\b`)
	halfDayTime = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	clockTime   = regexp.MustCompile(`\b(\d{1,2})(?::\d{2})?\s*(?:o'clock|oclock)?\b`)
)

var skipPhrases = []string{
	"don't know", "dont know", "no idea", "not sure", "can't remember",
	"cant remember", "skip", "rather not say", "prefer not", "forget it",
}

// IsSkip reports whether the reply declines to provide the asked field.
func IsSkip(text string) bool {
	t := strings.ToLower(text)
	for _, p := range skipPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

var categoryKeywords = map[domain.QuestionCategory][]string{
	domain.CategoryCareer:       {"job", "career", "work", "promotion", "boss", "company", "resign", "offer"},
	domain.CategoryWealth:       {"money", "wealth", "invest", "salary", "debt", "fortune", "income", "stock"},
	domain.CategoryLove:         {"love", "crush", "date", "dating", "romance", "boyfriend", "girlfriend"},
	domain.CategoryMarriage:     {"marriage", "marry", "wedding", "divorce", "spouse", "husband", "wife"},
	domain.CategoryHealth:       {"health", "sick", "illness", "sleep", "pain", "doctor", "surgery"},
	domain.CategoryStudy:        {"study", "exam", "school", "degree", "grade", "thesis", "university"},
	domain.CategoryRelationship: {"friend", "family", "colleague", "parents", "relationship with", "conflict with"},
	domain.CategoryTiming:       {"when", "timing", "how long", "which month", "what time", "deadline"},
	domain.CategoryDecision:     {"should i", "choose", "decision", "which one", "whether to", "or not"},
	domain.CategoryPersonality:  {"what am i like", "my personality", "my character", "who am i"},
}

// categoryOrder keeps detection deterministic; "should i" style decision
// phrasing loses to more specific domains.
var categoryOrder = []domain.QuestionCategory{
	domain.CategoryMarriage, domain.CategoryLove, domain.CategoryCareer,
	domain.CategoryWealth, domain.CategoryHealth, domain.CategoryStudy,
	domain.CategoryRelationship, domain.CategoryPersonality,
	domain.CategoryTiming, domain.CategoryDecision,
}

// DetectCategory classifies the question text by keyword; decision is the
// catch-all for unmatched questions.
func DetectCategory(question string) domain.QuestionCategory {
	t := strings.ToLower(question)
	for _, c := range categoryOrder {
		for _, kw := range categoryKeywords[c] {
			if strings.Contains(t, kw) {
				return c
			}
		}
	}
	return domain.CategoryDecision
}

// ParseField runs the deterministic validator for one field against a
// free-text reply. The returned value is typed for UserInput.
func ParseField(field, text string) (any, error) {
	switch field {
	case domain.FieldNumbers:
		return parseNumbers(text)
	case domain.FieldCharacter:
		return parseCharacter(text)
	case domain.FieldBirthYear:
		return parseYear(text)
	case domain.FieldBirthMonth:
		return parseMonth(text)
	case domain.FieldBirthDay:
		return parseRange(field, text, 1, 31)
	case domain.FieldBirthHour:
		return parseHour(text)
	case domain.FieldGender:
		return parseGender(text)
	case domain.FieldPersonality:
		return parsePersonality(text)
	case domain.FieldColor:
		return parseChoice(field, text, colors)
	case domain.FieldDirection:
		return parseChoice(field, text, directions)
	case domain.FieldTimeCertainty:
		return parseCertainty(text)
	case domain.FieldCategory:
		return string(DetectCategory(text)), nil
	default:
		return nil, &InputValidationError{Field: field, Reason: "no validator"}
	}
}

func parseNumbers(text string) ([]int, error) {
	matches := numberPattern.FindAllString(text, -1)
	if len(matches) < 3 {
		return nil, &InputValidationError{Field: domain.FieldNumbers, Reason: "need three numbers between 1 and 9"}
	}
	nums := make([]int, 3)
	for i := 0; i < 3; i++ {
		nums[i], _ = strconv.Atoi(matches[i])
	}
	return nums, nil
}

func parseCharacter(text string) (string, error) {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return string(r), nil
		}
	}
	// Fall back to the first standalone word.
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 1 && len([]rune(fields[0])) <= 12 {
		return fields[0], nil
	}
	return "", &InputValidationError{Field: domain.FieldCharacter, Reason: "need a single character or word"}
}

func parseYear(text string) (int, error) {
	m := yearPattern.FindString(text)
	if m == "" {
		return 0, &InputValidationError{Field: domain.FieldBirthYear, Reason: "need a four-digit year"}
	}
	year, _ := strconv.Atoi(m)
	if year > time.Now().Year() {
		return 0, &InputValidationError{Field: domain.FieldBirthYear, Reason: "birth year is in the future"}
	}
	return year, nil
}

func parseRange(field, text string, lo, hi int) (int, error) {
	for _, m := range intPattern.FindAllStringSubmatch(text, -1) {
		n, _ := strconv.Atoi(m[1])
		if n >= lo && n <= hi {
			return n, nil
		}
	}
	return 0, &InputValidationError{Field: field, Reason: fmt.Sprintf("need a number between %d and %d", lo, hi)}
}

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

func parseMonth(text string) (int, error) {
	t := strings.ToLower(text)
	for name, n := range monthNames {
		if strings.Contains(t, name) {
			return n, nil
		}
	}
	return parseRange(domain.FieldBirthMonth, text, 1, 12)
}

// parseHour only commits when the text carries a time cue ("3pm", "14:00",
// "noon"); a bare small integer in a date line is too ambiguous to claim.
func parseHour(text string) (int, error) {
	if IsSkip(text) {
		return domain.BirthHourUnknown, nil
	}
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "noon") || strings.Contains(t, "midday"):
		return 12, nil
	case strings.Contains(t, "midnight"):
		return 0, nil
	}
	if m := halfDayTime.FindStringSubmatch(t); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h >= 1 && h <= 12 {
			if m[2] == "pm" && h != 12 {
				h += 12
			}
			if m[2] == "am" && h == 12 {
				h = 0
			}
			return h, nil
		}
	}
	if strings.Contains(t, "hour") || strings.Contains(t, "clock") || strings.Contains(t, ":") {
		if m := clockTime.FindStringSubmatch(t); m != nil {
			if n, _ := strconv.Atoi(m[1]); n >= 0 && n <= 23 {
				return n, nil
			}
		}
	}
	return 0, &InputValidationError{Field: domain.FieldBirthHour, Reason: "need an hour between 0 and 23, or say you don't know"}
}

func parseGender(text string) (string, error) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "female") || strings.Contains(t, "woman") || strings.Contains(t, "girl"):
		return "female", nil
	case strings.Contains(t, "male") || strings.Contains(t, "man") || strings.Contains(t, "boy"):
		return "male", nil
	}
	return "", &InputValidationError{Field: domain.FieldGender, Reason: "need male or female"}
}

func parsePersonality(text string) (string, error) {
	m := mbtiPattern.FindString(text)
	if m == "" {
		return "", &InputValidationError{Field: domain.FieldPersonality, Reason: "need a four-letter type like INTJ"}
	}
	return strings.ToUpper(m), nil
}

var colors = []string{"red", "orange", "yellow", "green", "blue", "purple", "black", "white", "grey", "gray", "gold", "pink", "brown"}

var directions = []string{"northeast", "northwest", "southeast", "southwest", "north", "south", "east", "west"}

func parseChoice(field, text string, options []string) (string, error) {
	t := strings.ToLower(text)
	// Longer options are listed first so "northeast" wins over "north".
	for _, opt := range options {
		if strings.Contains(t, opt) {
			return opt, nil
		}
	}
	return "", &InputValidationError{Field: field, Reason: "no recognized option"}
}

func parseCertainty(text string) (string, error) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "exact") || strings.Contains(t, "certain") || strings.Contains(t, "sure"):
		return "certain", nil
	case strings.Contains(t, "rough") || strings.Contains(t, "around") || strings.Contains(t, "approx") || strings.Contains(t, "uncertain"):
		return "uncertain", nil
	case IsSkip(t) || strings.Contains(t, "unknown"):
		return "unknown", nil
	}
	return "", &InputValidationError{Field: domain.FieldTimeCertainty, Reason: "say certain, uncertain or unknown"}
}

var modifyPattern = regexp.MustCompile(`(?i)\b(?:change|correct|actually|update|fix)\b.*?\b(birth year|birth month|birth day|birth hour|year|month|day|hour|gender|numbers|character|personality|color|direction)\b(?:\s+(?:is|to|was|should be))?\s*(.*)`)

var modifyFieldNames = map[string]string{
	"birth year":  domain.FieldBirthYear,
	"year":        domain.FieldBirthYear,
	"birth month": domain.FieldBirthMonth,
	"month":       domain.FieldBirthMonth,
	"birth day":   domain.FieldBirthDay,
	"day":         domain.FieldBirthDay,
	"birth hour":  domain.FieldBirthHour,
	"hour":        domain.FieldBirthHour,
	"gender":      domain.FieldGender,
	"numbers":     domain.FieldNumbers,
	"character":   domain.FieldCharacter,
	"personality": domain.FieldPersonality,
	"color":       domain.FieldColor,
	"direction":   domain.FieldDirection,
}

// DetectModify recognizes an explicit out-of-band correction such as
// "actually my birth year is 1993". Returns the canonical field name and
// the remainder of the sentence to re-validate.
func DetectModify(text string) (field, raw string, ok bool) {
	m := modifyPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	field, ok = modifyFieldNames[strings.ToLower(m[1])]
	if !ok {
		return "", "", false
	}
	raw = strings.TrimSpace(m[2])
	if raw == "" {
		raw = text
	}
	return field, raw, true
}
