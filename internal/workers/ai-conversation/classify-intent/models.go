// internal/workers/ai-conversation/classify-intent/models.go
package classifyintent

import "leadbot/internal/models"

type Input struct {
	Message string        `json:"message"`
	Hint    string        `json:"hint"`
	History []models.Turn `json:"history"`
}

type Output struct {
	Intent models.Intent `json:"intent"`
}
