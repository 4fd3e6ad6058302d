package syncleadcrm

import "leadbot/internal/common/validation"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["leadId", "customerName", "phone"],
	"properties": {
		"leadId":       {"type": "string", "minLength": 1, "maxLength": 64},
		"customerName": {"type": "string", "minLength": 1, "maxLength": 100},
		"phone":        {"type": "string", "minLength": 5, "maxLength": 50},
		"email":        {"type": "string", "maxLength": 255},
		"areaName":     {"type": "string", "maxLength": 200},
		"projectName":  {"type": "string", "maxLength": 200},
		"unitTypeName": {"type": "string", "maxLength": 100},
		"budgetMax":    {"type": "number", "minimum": 0},
		"notes":        {"type": "string"}
	}
}`)
