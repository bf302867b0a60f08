package decode

// #region imports
import (
	"strings"
)

// #endregion

// #region refusal-patterns

// refusalPatterns mark responses where the generator declined to answer
// instead of producing options.
var refusalPatterns = []string{
	"i cannot help",
	"i can't help",
	"i cannot assist",
	"i can't assist",
	"i'm unable to",
	"i am unable to",
	"i cannot provide",
	"i can't provide",
	"i'm not able to",
	"i am not able to",
	"as an ai",
	"as a language model",
	"i must decline",
	"against my guidelines",
	"i'm sorry, but i",
	"i am sorry, but i",
}

// #endregion refusal-patterns

// #region is-refusal

// IsRefusal reports whether raw generator text is a refusal rather than a
// malformed payload. Text carrying any JSON delimiter is assumed to be an
// answer attempt and is left to the parse path.
func IsRefusal(raw string) bool {
	if strings.ContainsAny(raw, "{[") {
		return false
	}
	lower := strings.ToLower(raw)
	for _, p := range refusalPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// #endregion is-refusal
