package category

// #region imports
import (
	"strings"
)

// #endregion

// #region keywords

var plumbingKeywords = []string{
	"leak", "pipe", "faucet", "drain", "toilet", "clog", "water heater",
	"no hot water", "dripping", "flooding", "sewage", "burst",
}

var electricalKeywords = []string{
	"outlet", "breaker", "power out", "no power", "sparking", "wiring",
	"light switch", "fuse", "electrical", "short circuit",
}

var hvacKeywords = []string{
	"heat", "heating", "furnace", "thermostat", "air conditioning",
	"ac ", "a/c", "cooling", "radiator", "no heat", "vent",
}

var applianceKeywords = []string{
	"refrigerator", "fridge", "dishwasher", "washer", "dryer", "oven",
	"stove", "microwave", "garbage disposal", "appliance",
}

var pestKeywords = []string{
	"mice", "mouse", "rat", "roach", "cockroach", "bed bug", "bedbug",
	"ant", "pest", "infestation", "termite", "wasp",
}

var noiseKeywords = []string{
	"noise", "loud", "party", "music", "neighbor", "barking", "stomping",
	"quiet hours", "disturbance",
}

var accessKeywords = []string{
	"locked out", "lockout", "lost key", "key fob", "garage door",
	"intercom", "buzzer", "front door code", "access",
}

var billingKeywords = []string{
	"rent", "invoice", "charge", "late fee", "payment", "deposit",
	"bill", "overcharged", "refund", "statement",
}

// #endregion keywords

// #region escalation-phrases

// escalationPhrases mark reports that explicitly ask for a human.
var escalationPhrases = []string{
	"speak to a human",
	"talk to a human",
	"speak to a person",
	"talk to a person",
	"real person",
	"speak to the manager",
	"talk to the manager",
	"call me",
	"speak to someone",
	"talk to someone",
	"human agent",
	"escalate",
	"i want a manager",
}

// #endregion escalation-phrases

// #region urgent-phrases

var highUrgencyPhrases = []string{
	"emergency", "urgent", "immediately", "right now", "asap",
	"flooding", "burst", "no heat", "no power", "sparking", "gas",
	"sewage", "fire", "smoke", "cannot get in", "locked out",
}

var lowUrgencyPhrases = []string{
	"whenever", "no rush", "not urgent", "when you get a chance",
	"at your convenience", "sometime", "minor",
}

// #endregion urgent-phrases

// #region classification

// Classification is the full classification output for an issue report.
type Classification struct {
	Category            Category
	Urgency             Urgency
	EscalationRequested bool
}

// ClassifyReport classifies a freeform issue report via keyword heuristics.
// No model call; the result only routes retrieval and seeds decision scoring.
func ClassifyReport(report string) Classification {
	lower := strings.ToLower(strings.TrimSpace(report))

	return Classification{
		Category:            classifyCategory(lower),
		Urgency:             classifyUrgency(lower),
		EscalationRequested: wantsHuman(lower),
	}
}

// #endregion classification

// #region classify-category

func classifyCategory(lower string) Category {
	// Ordered checks: physical-system categories before complaint categories,
	// so "water leaking through the ceiling from the neighbor" lands on plumbing.
	checks := []struct {
		cat      Category
		keywords []string
	}{
		{CategoryPlumbing, plumbingKeywords},
		{CategoryElectrical, electricalKeywords},
		{CategoryHVAC, hvacKeywords},
		{CategoryAppliance, applianceKeywords},
		{CategoryPest, pestKeywords},
		{CategoryAccess, accessKeywords},
		{CategoryNoise, noiseKeywords},
		{CategoryBilling, billingKeywords},
	}

	for _, c := range checks {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.cat
			}
		}
	}
	return CategoryGeneral
}

// #endregion classify-category

// #region classify-urgency

func classifyUrgency(lower string) Urgency {
	for _, p := range lowUrgencyPhrases {
		if strings.Contains(lower, p) {
			return UrgencyLow
		}
	}
	for _, p := range highUrgencyPhrases {
		if strings.Contains(lower, p) {
			return UrgencyHigh
		}
	}
	return UrgencyMedium
}

// #endregion classify-urgency

// #region wants-human

func wantsHuman(lower string) bool {
	for _, p := range escalationPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// #endregion wants-human
