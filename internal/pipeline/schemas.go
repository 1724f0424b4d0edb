package pipeline

import "encoding/json"

// JSON schemas handed to the model provider to force structured output.

var rankSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"keep": {"type": "boolean"},
		"confidence": {"type": "integer", "minimum": 1, "maximum": 10}
	},
	"required": ["keep", "confidence"],
	"additionalProperties": false
}`)

var factSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"fact": {"type": "string"},
		"bird_name": {"type": "string"}
	},
	"required": ["fact", "bird_name"],
	"additionalProperties": false
}`)

var verifySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"is_species_fact": {"type": "string", "enum": ["yes", "no"]}
	},
	"required": ["is_species_fact"],
	"additionalProperties": false
}`)

// truncateTail trims content so that content plus the system text fits
// the model context, using the 4-chars-per-token heuristic throughout.
// The trailing portion is kept because the assembled source text places
// the highest-confidence website last.
func truncateTail(content, system string, ctxSize int) string {
	if len(content)/4 <= ctxSize-len(system)/4 {
		return content
	}
	allowed := (ctxSize - len(system)/4) * 4
	if allowed <= 0 {
		return ""
	}
	if allowed >= len(content) {
		return content
	}
	return content[len(content)-allowed:]
}
