package decode

// #region imports
import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/havenops/issue-triage/internal/decision"
)

// #endregion

// #region options-schema

// optionsSchemaJSON is the structural contract for a generator option batch.
// Numeric bounds here enforce the non-negative cost/time and [0,1] impact
// invariants before any Go-side conversion runs.
const optionsSchemaJSON = `{
	"type": "object",
	"required": ["options"],
	"properties": {
		"options": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["option_id", "action", "estimated_cost", "estimated_time", "reasoning", "satisfaction_impact"],
				"properties": {
					"option_id": {"type": "string", "minLength": 1},
					"action": {"type": "string", "minLength": 1},
					"estimated_cost": {"type": "number", "minimum": 0},
					"estimated_time": {"type": "number", "minimum": 0},
					"reasoning": {"type": "string"},
					"satisfaction_impact": {"type": "number", "minimum": 0, "maximum": 1},
					"source_doc_ids": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`

// CompileOptionsSchema compiles the option-batch schema.
func CompileOptionsSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://issue-triage.schemas.local/options.schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(optionsSchemaJSON)); err != nil {
		return nil, fmt.Errorf("options schema load: %w", err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("options schema compile: %w", err)
	}
	return schema, nil
}

// #endregion options-schema

// #region to-candidates

// ToCandidates converts a schema-validated option batch into candidate
// options, enforcing the semantic invariants the schema cannot express
// (unique IDs within the batch).
func ToCandidates(obj map[string]any) ([]decision.CandidateOption, error) {
	rawOpts, ok := obj["options"].([]any)
	if !ok {
		return nil, fmt.Errorf("option batch: missing options array")
	}

	seen := make(map[string]bool, len(rawOpts))
	candidates := make([]decision.CandidateOption, 0, len(rawOpts))

	for i, ro := range rawOpts {
		m, ok := ro.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("option %d: not an object", i)
		}

		opt := decision.CandidateOption{
			OptionID:           str(m["option_id"]),
			Action:             str(m["action"]),
			EstimatedCost:      num(m["estimated_cost"]),
			EstimatedTime:      num(m["estimated_time"]),
			Reasoning:          str(m["reasoning"]),
			SatisfactionImpact: num(m["satisfaction_impact"]),
		}
		if ids, ok := m["source_doc_ids"].([]any); ok {
			for _, id := range ids {
				if s := str(id); s != "" {
					opt.SourceDocIDs = append(opt.SourceDocIDs, s)
				}
			}
		}

		if seen[opt.OptionID] {
			return nil, fmt.Errorf("option %d: duplicate option_id %q", i, opt.OptionID)
		}
		seen[opt.OptionID] = true
		candidates = append(candidates, opt)
	}

	return candidates, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}

// #endregion to-candidates
