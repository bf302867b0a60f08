package category

// #region category

// Category is the closed set of issue categories the pipeline routes on.
type Category string

const (
	CategoryPlumbing   Category = "plumbing"
	CategoryElectrical Category = "electrical"
	CategoryHVAC       Category = "hvac"
	CategoryAppliance  Category = "appliance"
	CategoryPest       Category = "pest"
	CategoryNoise      Category = "noise"
	CategoryAccess     Category = "access"
	CategoryBilling    Category = "billing"
	CategoryGeneral    Category = "general"
)

// All returns every known category in a stable order.
func All() []Category {
	return []Category{
		CategoryPlumbing, CategoryElectrical, CategoryHVAC,
		CategoryAppliance, CategoryPest, CategoryNoise,
		CategoryAccess, CategoryBilling, CategoryGeneral,
	}
}

// #endregion category

// #region urgency

// Urgency estimates how quickly an issue needs resolution.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Factor maps urgency to the weight used in decision scoring.
// Unknown values fall back to a neutral 0.5.
func (u Urgency) Factor() float64 {
	switch u {
	case UrgencyHigh:
		return 1.0
	case UrgencyMedium:
		return 0.6
	case UrgencyLow:
		return 0.3
	default:
		return 0.5
	}
}

// #endregion urgency

// #region doc-types

// DocTypesFor returns the document types relevant when retrieving context
// for a category. The switch is exhaustive over the closed category set.
func DocTypesFor(c Category) []string {
	switch c {
	case CategoryPlumbing, CategoryElectrical, CategoryHVAC, CategoryAppliance, CategoryPest:
		return []string{"policy", "manual", "procedure", "vendor"}
	case CategoryNoise, CategoryAccess:
		return []string{"policy", "procedure", "lease"}
	case CategoryBilling:
		return []string{"policy", "lease", "fee_schedule"}
	case CategoryGeneral:
		return []string{"policy", "manual", "procedure", "lease", "vendor"}
	default:
		return []string{"policy", "procedure"}
	}
}

// #endregion doc-types
