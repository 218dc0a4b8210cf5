package domain

// QuestionCategory classifies what the user is asking about.
type QuestionCategory string

const (
	CategoryCareer       QuestionCategory = "career"
	CategoryWealth       QuestionCategory = "wealth"
	CategoryLove         QuestionCategory = "love"
	CategoryMarriage     QuestionCategory = "marriage"
	CategoryHealth       QuestionCategory = "health"
	CategoryStudy        QuestionCategory = "study"
	CategoryRelationship QuestionCategory = "relationship"
	CategoryTiming       QuestionCategory = "timing"
	CategoryDecision     QuestionCategory = "decision"
	CategoryPersonality  QuestionCategory = "personality"
)

func ValidCategory(c string) bool {
	switch QuestionCategory(c) {
	case CategoryCareer, CategoryWealth, CategoryLove, CategoryMarriage,
		CategoryHealth, CategoryStudy, CategoryRelationship, CategoryTiming,
		CategoryDecision, CategoryPersonality:
		return true
	}
	return false
}

// AffinityDims is the size of the category/theory feature space:
// time sensitivity, spatial relevance, interpersonal, financial, health,
// decision weight, emotional intensity, complexity.
const AffinityDims = 8

// AffinityVector is a point in the fixed feature space used to match
// questions against theory strengths.
type AffinityVector [AffinityDims]float64

var categoryAffinity = map[QuestionCategory]AffinityVector{
	CategoryCareer:       {0.7, 0.3, 0.8, 0.9, 0.2, 0.9, 0.5, 0.8},
	CategoryWealth:       {0.6, 0.4, 0.5, 1.0, 0.1, 0.8, 0.4, 0.7},
	CategoryLove:         {0.4, 0.2, 0.9, 0.3, 0.3, 0.6, 1.0, 0.8},
	CategoryMarriage:     {0.3, 0.3, 1.0, 0.5, 0.2, 0.7, 0.9, 0.9},
	CategoryHealth:       {0.9, 0.2, 0.3, 0.4, 1.0, 0.5, 0.7, 0.6},
	CategoryStudy:        {0.5, 0.2, 0.4, 0.3, 0.2, 0.6, 0.5, 0.5},
	CategoryRelationship: {0.3, 0.3, 1.0, 0.2, 0.1, 0.4, 0.8, 0.6},
	CategoryTiming:       {1.0, 0.8, 0.3, 0.5, 0.2, 1.0, 0.3, 0.5},
	CategoryDecision:     {0.7, 0.5, 0.6, 0.7, 0.2, 1.0, 0.5, 0.8},
	CategoryPersonality:  {0.1, 0.1, 0.7, 0.3, 0.4, 0.2, 0.6, 0.7},
}

var neutralAffinity = AffinityVector{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}

// Affinity returns the feature vector for a category. Unknown categories get
// a neutral vector so selection still works on free-form input.
func (c QuestionCategory) Affinity() AffinityVector {
	if v, ok := categoryAffinity[c]; ok {
		return v
	}
	return neutralAffinity
}
