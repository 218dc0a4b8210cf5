package theory

import (
	"github.com/li2092/cyber-mantic/internal/domain"
)

// Theory names. Pinyin identifiers of the eight classical arts.
const (
	XiaoLiu  = "xiaoliu"  // small six ren, seed counting
	CeZi     = "cezi"     // glyph analysis
	MeiHua   = "meihua"   // plum blossom numerology
	BaZi     = "bazi"     // four pillars
	ZiWei    = "ziwei"    // purple star chart
	LiuYao   = "liuyao"   // six lines hexagram
	QiMen    = "qimen"    // qimen dunjia
	DaLiuRen = "daliuren" // great six ren
)

type builtin struct {
	descriptor *domain.TheoryDescriptor
	runner     domain.TheoryRunner
}

// builtins returns the eight estimators in registration order: quick
// seed-only theories first, then chart theories, then deep calculations.
// Registration order is also the selection tie-break order.
func builtins() []builtin {
	return []builtin{
		{
			descriptor: &domain.TheoryDescriptor{
				Name:           XiaoLiu,
				Tier:           domain.TierQuick,
				RequiredFields: []string{domain.FieldCategory, domain.FieldNumbers},
				OptionalFields: []string{domain.FieldQuestion},
				FieldWeights: map[string]float64{
					domain.FieldNumbers:  0.6,
					domain.FieldCategory: 0.3,
					domain.FieldQuestion: 0.1,
				},
				MinCompleteness:     0.5,
				Affinity:            domain.AffinityVector{0.8, 0.3, 0.5, 0.7, 0.6, 0.4, 0.5, 0.3},
				PersonalityAffinity: personalityColumn(5),
			},
			runner: runnerFunc(runXiaoLiu),
		},
		{
			descriptor: &domain.TheoryDescriptor{
				Name:           CeZi,
				Tier:           domain.TierQuick,
				RequiredFields: []string{domain.FieldQuestion, domain.FieldCharacter},
				OptionalFields: []string{domain.FieldCategory},
				FieldWeights: map[string]float64{
					domain.FieldCharacter: 0.6,
					domain.FieldQuestion:  0.3,
					domain.FieldCategory:  0.1,
				},
				MinCompleteness:     0.5,
				Affinity:            domain.AffinityVector{0.6, 0.2, 0.9, 0.4, 0.3, 0.3, 0.9, 0.4},
				PersonalityAffinity: personalityColumn(7),
			},
			runner: runnerFunc(runCeZi),
		},
		{
			descriptor: &domain.TheoryDescriptor{
				Name:           MeiHua,
				Tier:           domain.TierQuick,
				RequiredFields: []string{domain.FieldNumbers},
				OptionalFields: []string{domain.FieldColor, domain.FieldDirection, domain.FieldQuestion},
				FieldWeights: map[string]float64{
					domain.FieldNumbers:   0.5,
					domain.FieldColor:     0.15,
					domain.FieldDirection: 0.15,
					domain.FieldQuestion:  0.2,
				},
				MinCompleteness:     0.4,
				Affinity:            domain.AffinityVector{0.7, 0.5, 0.7, 0.6, 0.5, 0.6, 0.8, 0.5},
				PersonalityAffinity: personalityColumn(4),
			},
			runner: runnerFunc(runMeiHua),
		},
		{
			descriptor: &domain.TheoryDescriptor{
				Name:           BaZi,
				Tier:           domain.TierBase,
				RequiredFields: []string{domain.FieldBirthYear, domain.FieldBirthMonth, domain.FieldBirthDay, domain.FieldGender},
				OptionalFields: []string{domain.FieldBirthHour, domain.FieldTimeCertainty},
				FieldWeights: map[string]float64{
					domain.FieldBirthYear:     0.25,
					domain.FieldBirthMonth:    0.2,
					domain.FieldBirthDay:      0.2,
					domain.FieldGender:        0.1,
					domain.FieldBirthHour:     0.2,
					domain.FieldTimeCertainty: 0.05,
				},
				MinCompleteness:     0.6,
				Affinity:            domain.AffinityVector{0.3, 0.1, 0.8, 0.7, 0.9, 0.5, 0.6, 0.9},
				BirthTimeSensitive:  true,
				PersonalityAffinity: personalityColumn(0),
			},
			runner: runnerFunc(runBaZi),
		},
		{
			descriptor: &domain.TheoryDescriptor{
				Name:           ZiWei,
				Tier:           domain.TierBase,
				RequiredFields: []string{domain.FieldBirthYear, domain.FieldBirthMonth, domain.FieldBirthDay, domain.FieldGender},
				OptionalFields: []string{domain.FieldBirthHour},
				FieldWeights: map[string]float64{
					domain.FieldBirthYear:  0.2,
					domain.FieldBirthMonth: 0.2,
					domain.FieldBirthDay:   0.2,
					domain.FieldGender:     0.1,
					domain.FieldBirthHour:  0.3,
				},
				MinCompleteness:     0.7,
				Affinity:            domain.AffinityVector{0.2, 0.1, 0.9, 0.8, 0.9, 0.6, 0.7, 0.9},
				BirthTimeSensitive:  true,
				PersonalityAffinity: personalityColumn(6),
			},
			runner: runnerFunc(runZiWei),
		},
		{
			descriptor: &domain.TheoryDescriptor{
				Name:           LiuYao,
				Tier:           domain.TierDeep,
				RequiredFields: []string{domain.FieldNumbers, domain.FieldQuestion},
				OptionalFields: []string{domain.FieldBirthYear},
				FieldWeights: map[string]float64{
					domain.FieldNumbers:   0.5,
					domain.FieldQuestion:  0.3,
					domain.FieldBirthYear: 0.2,
				},
				MinCompleteness:     0.5,
				Affinity:            domain.AffinityVector{0.5, 0.4, 0.8, 0.9, 0.7, 0.8, 0.7, 0.6},
				PersonalityAffinity: personalityColumn(3),
			},
			runner: runnerFunc(runLiuYao),
		},
		{
			descriptor: &domain.TheoryDescriptor{
				Name:           QiMen,
				Tier:           domain.TierDeep,
				RequiredFields: []string{domain.FieldQuestion, domain.FieldCategory},
				OptionalFields: []string{domain.FieldNumbers, domain.FieldDirection},
				FieldWeights: map[string]float64{
					domain.FieldQuestion:  0.35,
					domain.FieldCategory:  0.25,
					domain.FieldNumbers:   0.2,
					domain.FieldDirection: 0.2,
				},
				MinCompleteness:     0.4,
				Affinity:            domain.AffinityVector{0.9, 0.8, 0.6, 0.85, 0.7, 0.9, 0.4, 0.6},
				PersonalityAffinity: personalityColumn(1),
			},
			runner: runnerFunc(runQiMen),
		},
		{
			descriptor: &domain.TheoryDescriptor{
				Name:           DaLiuRen,
				Tier:           domain.TierDeep,
				RequiredFields: []string{domain.FieldQuestion, domain.FieldCategory},
				OptionalFields: []string{domain.FieldBirthYear, domain.FieldNumbers},
				FieldWeights: map[string]float64{
					domain.FieldQuestion:  0.35,
					domain.FieldCategory:  0.25,
					domain.FieldBirthYear: 0.2,
					domain.FieldNumbers:   0.2,
				},
				MinCompleteness:     0.4,
				Affinity:            domain.AffinityVector{0.8, 0.7, 0.7, 0.7, 0.7, 0.85, 0.5, 0.8},
				PersonalityAffinity: personalityColumn(2),
			},
			runner: runnerFunc(runDaLiuRen),
		},
	}
}

var personalityTypes = []string{
	"INTJ", "INTP", "ENTJ", "ENTP",
	"INFJ", "INFP", "ENFJ", "ENFP",
	"ISTJ", "ISFJ", "ESTJ", "ESFJ",
	"ISTP", "ISFP", "ESTP", "ESFP",
}

// personalityMatrix rows follow personalityTypes; columns are
// bazi, qimen, daliuren, liuyao, meihua, xiaoliu, ziwei, cezi.
var personalityMatrix = [16][8]float64{
	{0.8, 0.9, 0.7, 0.7, 0.7, 0.6, 0.8, 0.5},
	{0.9, 0.7, 0.6, 0.8, 0.8, 0.5, 0.9, 0.6},
	{0.7, 0.9, 0.8, 0.6, 0.6, 0.7, 0.7, 0.4},
	{0.6, 0.8, 0.7, 0.7, 0.9, 0.6, 0.6, 0.7},
	{0.8, 0.6, 0.6, 0.7, 0.9, 0.5, 0.8, 0.9},
	{0.9, 0.5, 0.5, 0.6, 0.8, 0.4, 0.9, 0.9},
	{0.7, 0.7, 0.7, 0.5, 0.7, 0.6, 0.7, 0.8},
	{0.6, 0.6, 0.6, 0.6, 0.9, 0.7, 0.6, 0.9},
	{0.8, 0.8, 0.8, 0.8, 0.5, 0.9, 0.8, 0.4},
	{0.9, 0.6, 0.6, 0.7, 0.6, 0.8, 0.9, 0.7},
	{0.7, 0.9, 0.9, 0.7, 0.5, 0.9, 0.7, 0.3},
	{0.8, 0.7, 0.7, 0.6, 0.6, 0.8, 0.8, 0.8},
	{0.7, 0.8, 0.7, 0.9, 0.7, 0.6, 0.7, 0.5},
	{0.8, 0.5, 0.5, 0.7, 0.8, 0.5, 0.8, 0.9},
	{0.6, 0.9, 0.8, 0.8, 0.6, 0.7, 0.6, 0.4},
	{0.7, 0.6, 0.6, 0.6, 0.8, 0.6, 0.7, 0.9},
}

func personalityColumn(col int) map[string]float64 {
	m := make(map[string]float64, len(personalityTypes))
	for row, pt := range personalityTypes {
		m[pt] = personalityMatrix[row][col]
	}
	return m
}
