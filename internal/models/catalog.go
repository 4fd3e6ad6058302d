package models

// EntityKind names a catalog list.
type EntityKind string

const (
	KindArea     EntityKind = "area"
	KindProject  EntityKind = "project"
	KindUnitType EntityKind = "unitType"
)

// SlotFor returns the slot an entity kind fills.
func (k EntityKind) SlotFor() SlotName {
	switch k {
	case KindProject:
		return SlotProject
	case KindUnitType:
		return SlotUnitType
	default:
		return SlotArea
	}
}

// KindFor returns the entity kind behind an entity slot.
func KindFor(slot SlotName) EntityKind {
	switch slot {
	case SlotProject:
		return KindProject
	case SlotUnitType:
		return KindUnitType
	default:
		return KindArea
	}
}

// CatalogEntry is one area, project or unit type.
type CatalogEntry struct {
	ID            string `json:"id" db:"id"`
	PrimaryName   string `json:"primaryName" db:"name"`
	SecondaryName string `json:"secondaryName,omitempty" db:"name_ar"`
	ParentID      string `json:"parentId,omitempty" db:"area_id"`
}

// Language is the script detected in a user mention.
type Language string

const (
	LanguageArabic  Language = "ar"
	LanguageEnglish Language = "en"
	LanguageMixed   Language = "mixed"
	LanguageUnknown Language = "unknown"
)

// MatchTier records which resolver tier decided a result.
type MatchTier string

const (
	TierEmpty    MatchTier = "empty"
	TierExact    MatchTier = "exact"
	TierPhonetic MatchTier = "phonetic"
	TierFuzzy    MatchTier = "fuzzy"
	TierSuggest  MatchTier = "suggest"
	TierSemantic MatchTier = "semantic"
	TierFallback MatchTier = "fallback"
)

// MaxAlternatives caps the candidates attached to a MatchResult.
const MaxAlternatives = 10

// MatchResult is the outcome of resolving one mention.
type MatchResult struct {
	Matched          bool      `json:"matched"`
	Value            string    `json:"value,omitempty"`
	ID               string    `json:"id,omitempty"`
	Confidence       float64   `json:"confidence"`
	LanguageDetected Language  `json:"languageDetected"`
	Alternatives     []string  `json:"alternatives"`
	ParentFiltered   bool      `json:"parentFiltered"`
	Tier             MatchTier `json:"tier"`
}

// UnitCriteria filters the units table for counts and price ranges.
type UnitCriteria struct {
	AreaID     string
	ProjectID  string
	UnitTypeID string
	BudgetMin  float64
	BudgetMax  float64
	SizeMin    float64
	SizeMax    float64
	Bedrooms   int
}

// UnitCriteriaFromSlots derives unit filters from the captured requirements.
func UnitCriteriaFromSlots(s Slots) UnitCriteria {
	c := UnitCriteria{
		AreaID:     s.ID(SlotArea),
		ProjectID:  s.ID(SlotProject),
		UnitTypeID: s.ID(SlotUnitType),
	}
	c.BudgetMin, _ = s.Float(SlotBudgetMin)
	c.BudgetMax, _ = s.Float(SlotBudgetMax)
	c.SizeMin, _ = s.Float(SlotSizeMin)
	c.SizeMax, _ = s.Float(SlotSizeMax)
	if b, ok := s.Float(SlotBedrooms); ok {
		c.Bedrooms = int(b)
	}
	return c
}

// PriceRange summarises unit prices matching some criteria.
type PriceRange struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// SearchHit is one ranked result of a semantic catalog search.
type SearchHit struct {
	Kind  EntityKind `json:"kind"`
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Score float64    `json:"score"`
}
