package diagnose

import (
	"encoding/json"
	"strings"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
)

// unparseableSuggestion is the fixed suggestion attached to degraded
// verdicts.
const unparseableSuggestion = "Unable to parse structured response"

// parseVerdict extracts a structured verdict from oracle text. Malformed
// output degrades to a raw-text verdict; this function never fails.
func parseVerdict(text string) domain.Verdict {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var verdict domain.Verdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return domain.Verdict{
			Reason:      text,
			Suggestion:  unparseableSuggestion,
			RawResponse: text,
		}
	}
	return verdict
}
