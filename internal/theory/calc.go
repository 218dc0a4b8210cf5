package theory

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/li2092/cyber-mantic/internal/domain"
)

// The built-in calculations are deterministic reductions of the collected
// fields. They trade astrological completeness for reproducibility: the
// same input always yields the same judgment, which is what the resolver
// and the tests depend on.

// Xiao Liu Ren: sum of the three numbers walked around the six palaces.
var xiaoLiuPalaces = []struct {
	name  string
	level float64
}{
	{"daan", 0.80},
	{"liulian", 0.40},
	{"suxi", 0.90},
	{"chikou", 0.25},
	{"xiaoji", 0.70},
	{"kongwang", 0.10},
}

func runXiaoLiu(input domain.UserInput) (*domain.TheoryResult, error) {
	nums, ok := input.Ints(domain.FieldNumbers)
	if !ok || len(nums) < 3 {
		return nil, fmt.Errorf("need three numbers, have %d", len(nums))
	}
	// Walk palace by palace: start at n1, advance n2 from there, then n3.
	pos := (nums[0] - 1) % 6
	pos = (pos + nums[1] - 1) % 6
	pos = (pos + nums[2] - 1) % 6
	p := xiaoLiuPalaces[pos]
	return &domain.TheoryResult{
		Level:      p.level,
		Confidence: 0.65,
		Calculation: map[string]any{
			"numbers": nums,
			"palace":  p.name,
		},
		Interpretation: fmt.Sprintf("the three counts land on the %s palace", p.name),
	}, nil
}

// Ce Zi reads a single character: stroke weight approximated from the
// rune value, parity picks the leaning and the radical band sets how far.
func runCeZi(input domain.UserInput) (*domain.TheoryResult, error) {
	ch, ok := input.String(domain.FieldCharacter)
	if !ok || ch == "" {
		return nil, fmt.Errorf("no character provided")
	}
	r := []rune(strings.TrimSpace(ch))[0]
	strokes := int(r)%24 + 1
	band := float64(int(r)%5) / 10.0 // 0.0 .. 0.4
	level := 0.3 + band
	if strokes%2 == 0 {
		level += 0.25
	}
	return &domain.TheoryResult{
		Level:      domain.ClampUnit(level),
		Confidence: 0.60,
		Calculation: map[string]any{
			"character": string(r),
			"strokes":   strokes,
			"parity":    strokes % 2,
		},
		Interpretation: fmt.Sprintf("character %q resolves to %d strokes", string(r), strokes),
	}, nil
}

var trigrams = [8]string{"qian", "dui", "li", "zhen", "xun", "kan", "gen", "kun"}

// Mei Hua: upper and lower trigram from the number sums, moving line from
// the total. Color and direction, when present, nudge the reading.
func runMeiHua(input domain.UserInput) (*domain.TheoryResult, error) {
	nums, ok := input.Ints(domain.FieldNumbers)
	if !ok || len(nums) < 3 {
		return nil, fmt.Errorf("need three numbers, have %d", len(nums))
	}
	upper := (nums[0] + nums[1]) % 8
	lower := (nums[1] + nums[2]) % 8
	moving := (nums[0]+nums[1]+nums[2])%6 + 1
	level := 0.5 + 0.05*float64(upper-lower)
	if moving%2 == 1 {
		level += 0.1
	} else {
		level -= 0.1
	}
	if color, ok := input.String(domain.FieldColor); ok {
		switch strings.ToLower(color) {
		case "red", "purple", "gold", "yellow":
			level += 0.05
		case "black", "grey", "gray":
			level -= 0.05
		}
	}
	if dir, ok := input.String(domain.FieldDirection); ok {
		switch strings.ToLower(dir) {
		case "south", "east", "southeast":
			level += 0.05
		case "north", "northwest":
			level -= 0.05
		}
	}
	return &domain.TheoryResult{
		Level:      domain.ClampUnit(level),
		Confidence: 0.70,
		Calculation: map[string]any{
			"upper_trigram": trigrams[upper],
			"lower_trigram": trigrams[lower],
			"moving_line":   moving,
		},
		Interpretation: fmt.Sprintf("%s over %s, moving line %d", trigrams[upper], trigrams[lower], moving),
	}, nil
}

var elements = [5]string{"wood", "fire", "earth", "metal", "water"}

// Ba Zi: four pillars reduced to an element balance. With the hour unknown
// the day pillar carries the reading at reduced confidence.
func runBaZi(input domain.UserInput) (*domain.TheoryResult, error) {
	year, ok := input.Int(domain.FieldBirthYear)
	if !ok {
		return nil, fmt.Errorf("missing birth year")
	}
	month, _ := input.Int(domain.FieldBirthMonth)
	day, _ := input.Int(domain.FieldBirthDay)
	hour, hasHour := input.Int(domain.FieldBirthHour)

	counts := [5]int{}
	counts[year%5]++
	counts[(year+month)%5]++
	counts[(year+month+day)%5]++
	conf := 0.85
	if !hasHour || hour == domain.BirthHourUnknown {
		conf = 0.70
	} else {
		counts[(day+hour/2)%5]++
	}
	dominant, most := 0, -1
	for i, c := range counts {
		if c > most {
			dominant, most = i, c
		}
	}
	// Spread between the strongest and weakest element drives the level:
	// a balanced chart reads near neutral, a lopsided one commits.
	least := counts[0]
	for _, c := range counts[1:] {
		if c < least {
			least = c
		}
	}
	level := 0.5 + 0.12*float64(most-least)
	if dominant%2 == 1 {
		level = 1.0 - level + 0.1
	}
	return &domain.TheoryResult{
		Level:      domain.ClampUnit(level),
		Confidence: conf,
		Calculation: map[string]any{
			"dominant_element": elements[dominant],
			"element_counts":   counts[:],
			"hour_known":       hasHour && hour != domain.BirthHourUnknown,
		},
		Interpretation: fmt.Sprintf("chart dominated by %s", elements[dominant]),
	}, nil
}

var ziweiPalaces = [12]string{
	"ming", "xiongdi", "fuqi", "zinv", "caibo", "jie",
	"qianyi", "nupu", "guanlu", "tianzhai", "fude", "fumu",
}

// Zi Wei: life palace positioned by month and hour branch.
func runZiWei(input domain.UserInput) (*domain.TheoryResult, error) {
	month, ok := input.Int(domain.FieldBirthMonth)
	if !ok {
		return nil, fmt.Errorf("missing birth month")
	}
	year, _ := input.Int(domain.FieldBirthYear)
	hour, hasHour := input.Int(domain.FieldBirthHour)
	branch := 0
	conf := 0.85
	if hasHour && hour != domain.BirthHourUnknown {
		branch = ((hour + 1) / 2) % 12
	} else {
		conf = 0.70
	}
	palace := ((month - 1) + branch + year%12) % 12
	level := 0.15 + 0.07*float64((palace*5)%11)
	return &domain.TheoryResult{
		Level:      domain.ClampUnit(level),
		Confidence: conf,
		Calculation: map[string]any{
			"life_palace": ziweiPalaces[palace],
			"hour_branch": branch,
		},
		Interpretation: fmt.Sprintf("life palace in %s", ziweiPalaces[palace]),
	}, nil
}

// Liu Yao: six lines cast from the numbers, yang count sets the leaning
// and the moving line tempers it.
func runLiuYao(input domain.UserInput) (*domain.TheoryResult, error) {
	nums, ok := input.Ints(domain.FieldNumbers)
	if !ok || len(nums) < 3 {
		return nil, fmt.Errorf("need three numbers, have %d", len(nums))
	}
	seed := nums[0]*100 + nums[1]*10 + nums[2]
	yang := 0
	for i := 0; i < 6; i++ {
		if (seed>>i)&1 == 1 {
			yang++
		}
	}
	moving := seed % 6
	level := float64(yang) / 6.0
	if moving < 3 {
		level = level*0.8 + 0.1
	}
	return &domain.TheoryResult{
		Level:      domain.ClampUnit(level),
		Confidence: 0.75,
		Calculation: map[string]any{
			"yang_lines":  yang,
			"moving_line": moving + 1,
		},
		Interpretation: fmt.Sprintf("%d yang lines, line %d moving", yang, moving+1),
	}, nil
}

var qimenGates = []struct {
	name  string
	level float64
}{
	{"xiu", 0.75},
	{"sheng", 0.90},
	{"shang", 0.15},
	{"du", 0.30},
	{"jing_view", 0.55},
	{"si", 0.05},
	{"jing_fright", 0.40},
	{"kai", 0.85},
}

// Qi Men: the question text itself picks the gate. Deliberately sensitive
// to wording, which is faithful to how the technique is consulted.
func runQiMen(input domain.UserInput) (*domain.TheoryResult, error) {
	q := input.Question()
	if q == "" {
		return nil, fmt.Errorf("missing question")
	}
	h := fnv.New32a()
	h.Write([]byte(q))
	h.Write([]byte(input.Category()))
	g := qimenGates[h.Sum32()%8]
	return &domain.TheoryResult{
		Level:      g.level,
		Confidence: 0.80,
		Calculation: map[string]any{
			"gate": g.name,
		},
		Interpretation: fmt.Sprintf("the %s gate governs this ask", g.name),
	}, nil
}

// Da Liu Ren: twelve courses positioned by the question's character weight,
// anchored on the birth year and seed numbers when available.
func runDaLiuRen(input domain.UserInput) (*domain.TheoryResult, error) {
	q := input.Question()
	if q == "" {
		return nil, fmt.Errorf("missing question")
	}
	weight := 0
	for _, r := range q {
		if !unicode.IsSpace(r) {
			weight += int(r) % 12
		}
	}
	anchor := 0
	if year, ok := input.Int(domain.FieldBirthYear); ok {
		anchor += year % 12
	}
	if nums, ok := input.Ints(domain.FieldNumbers); ok {
		for _, n := range nums {
			anchor += n
		}
	}
	course := (anchor + weight) % 12
	level := 0.1 + 0.08*float64(course)
	if level > 0.95 {
		level = 0.95
	}
	return &domain.TheoryResult{
		Level:      domain.ClampUnit(level),
		Confidence: 0.80,
		Calculation: map[string]any{
			"course":        course + 1,
			"general_index": weight % 12,
		},
		Interpretation: fmt.Sprintf("course %d of twelve", course+1),
	}, nil
}
