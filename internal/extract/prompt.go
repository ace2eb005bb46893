package extract

import (
	"fmt"
	"strings"

	"github.com/ledgerline/finsight/internal/model"
)

// buildQuery assembles the retrieval query from the field id and its aliases.
func buildQuery(field model.Field) string {
	return fmt.Sprintf("%s %s", field.ID, strings.Join(field.Aliases, " "))
}

// buildContext concatenates passage texts for the prompt.
func buildContext(passages []model.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n\n")
}

// buildPrompt constructs the constrained-output extraction prompt for one field.
func buildPrompt(field model.Field, context string) string {
	return fmt.Sprintf(`You must extract one precise financial value from the provided context.

FIELD TO EXTRACT: %s
EXPECTED TYPE: %s
KNOWN ALIASES: %s

CONTEXT:
%s

INSTRUCTIONS:
1. Look for the exact value of the requested field in the context.
2. If you find the value, respond with this strict JSON object:
   {"value": <value>, "confidence": <0.0-1.0>, "source": "<short excerpt of the supporting text>"}
3. If the value is not in the context: {"value": null, "confidence": 0.0, "source": null}
4. Confidence = 1.0 for an explicit value, 0.7-0.9 if deduced, 0.5-0.6 if ambiguous.
5. For amounts: return only the number (no currency symbols or spaces).
6. Respond ONLY with the JSON object, nothing else.

JSON RESPONSE:`, field.ID, field.Type, strings.Join(field.Aliases, ", "), context)
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
