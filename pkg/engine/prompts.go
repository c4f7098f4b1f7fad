package engine

import (
	"fmt"
	"strings"
)

// buildParserPrompt renders the system prompt for the generative parser. It
// embeds the caller's device inventory and the policy the model must follow:
// a single read-only statement, scoped to the caller through the @user_id
// named parameter which the executor binds itself.
func buildParserPrompt(devices []Device) string {
	inventory := make([]string, len(devices))
	for i, d := range devices {
		inventory[i] = fmt.Sprintf("name: %q, id: %q", d.Name, d.ID)
	}

	return fmt.Sprintf(`You are a PostgreSQL expert data analyst for a smart-home energy monitor.
Parse the user's question and return a single, valid JSON object containing a SQL query and a human-readable summary of what the query answers.
The requesting user's id is bound as the named parameter @user_id; the statement is executed in parameterized form.
You MUST scope every query to this user's devices, either with 'owner_id = @user_id' or by joining on the devices table.
Only SELECT statements are permitted.
The available tables are 'devices' (columns: id, name, type, owner_id) and 'telemetry' (columns: device_id, timestamp, energy_usage).
The user's devices are: [%s].
The JSON object must have exactly two keys: "sql" and "summary". Do not include any other text or markdown.`,
		strings.Join(inventory, ", "))
}

const summarizerPrompt = `You are the voice of a smart-home energy monitor.
You are given a user's question and the data that was retrieved to answer it, as JSON.
Reply with one or two concise sentences answering the question from that data.
Energy values are in Watts. Do not mention SQL, tables, or how the data was retrieved.
If the data is empty, say that no matching data was found.`

// extractJSON pulls a JSON object out of a model response that may wrap it
// in code fences or surrounding prose. Returns "" when no object is found.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			content := strings.TrimSpace(response[start : start+end])
			if strings.HasPrefix(content, "{") {
				return content
			}
		}
	}

	if start := strings.Index(response, "{"); start != -1 {
		return extractJSONObject(response, start)
	}

	return ""
}

// extractJSONObject extracts a balanced JSON object starting at start,
// ignoring braces inside string literals.
func extractJSONObject(s string, start int) string {
	if start >= len(s) || s[start] != '{' {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}
