// internal/workers/ai-conversation/extract-requirements/models.go
package extractrequirements

import "leadbot/internal/models"

type Input struct {
	Message string   `json:"message"`
	Context []string `json:"context"`
}

type Output struct {
	Extraction *models.Extraction `json:"extraction"`
}

// extractionSchema mirrors models.Extraction. Unknown keys are tolerated;
// a wrongly typed known key rejects the whole reply.
const extractionSchema = `{
  "type": "object",
  "properties": {
    "customerName": {"type": ["string", "null"]},
    "phone":        {"type": ["string", "null"]},
    "email":        {"type": ["string", "null"]},
    "area":         {"type": ["string", "null"]},
    "project":      {"type": ["string", "null"]},
    "unitType":     {"type": ["string", "null"]},
    "budgetMin":    {"type": ["number", "null"], "minimum": 0},
    "budgetMax":    {"type": ["number", "null"], "minimum": 0},
    "sizeMin":      {"type": ["number", "null"], "minimum": 0},
    "sizeMax":      {"type": ["number", "null"], "minimum": 0},
    "bedrooms":     {"type": ["integer", "null"], "minimum": 0},
    "bathrooms":    {"type": ["integer", "null"], "minimum": 0},
    "notes":        {"type": ["string", "null"]}
  }
}`
