package remote

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

var (
	topicsSchema = mustSchema(`{
		"type": "object",
		"required": ["topics"],
		"properties": {
			"topics": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["title"],
					"properties": {"title": {"type": "string", "minLength": 1}}
				}
			},
			"isShared": {"type": "boolean"}
		}
	}`)

	saveTopicsSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"alreadyExists": {"type": "boolean"},
			"topics": {"type": "array"}
		}
	}`)

	contentSchema = mustSchema(`{
		"type": "object",
		"required": ["content"],
		"properties": {
			"content": {
				"type": "object",
				"properties": {
					"sections": {"type": "array"},
					"visualElements": {"type": "array"},
					"audioScript": {"type": "string"},
					"summary": {"type": "string"}
				}
			}
		}
	}`)

	quizSchema = mustSchema(`{
		"type": "object",
		"required": ["quiz"],
		"properties": {
			"quiz": {
				"type": "object",
				"required": ["questions"],
				"properties": {
					"questions": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"required": ["question", "correctAnswer"],
							"properties": {
								"question": {"type": "string"},
								"options": {"type": "array", "items": {"type": "string"}},
								"correctAnswer": {"type": "string"}
							}
						}
					},
					"totalPoints": {"type": "number"}
				}
			}
		}
	}`)

	latestSchema = mustSchema(`{
		"type": "object",
		"required": ["result"],
		"properties": {
			"result": {"type": "object", "required": ["score"]},
			"responses": {"type": "array"}
		}
	}`)

	recommendationSchema = mustSchema(`{
		"type": "object",
		"required": ["recommendation"],
		"properties": {
			"recommendation": {
				"type": "object",
				"required": ["recommendedMode"],
				"properties": {
					"recommendedMode": {"enum": ["visual", "audio", "text"]},
					"bestPerformingMode": {"enum": ["visual", "audio", "text", ""]},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1}
				}
			}
		}
	}`)

	checkSchema = mustSchema(`{
		"type": "object",
		"required": ["completedTypes"],
		"properties": {
			"completed": {"type": "boolean"},
			"allScoresZero": {"type": "boolean"},
			"completedTypes": {"type": "array", "items": {"type": "string"}}
		}
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return s
}

func validate(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", learning.ErrValidation, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", learning.ErrValidation, strings.Join(msgs, "; "))
}
