package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("llm: response contains no JSON object")

// ExtractJSON returns the span between the first '{' and the last '}'.
// Models often wrap structured output in prose or code fences.
func ExtractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}

// DecodeJSON extracts and unmarshals the JSON object embedded in response.
func DecodeJSON(response string, v any) error {
	raw := ExtractJSON(response)
	if raw == "" {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(raw), v)
}
