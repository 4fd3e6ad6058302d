// internal/workers/ai-conversation/transliterate-name/models.go
package transliteratename

type Input struct {
	Text string `json:"text"`
}

type Output struct {
	Latin  string `json:"latin"`
	Cached bool   `json:"cached"`
}
