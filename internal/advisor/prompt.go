package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/sheetcharts/internal/ai"
	"github.com/KaramelBytes/sheetcharts/internal/chart"
)

const systemPrompt = "You are a data visualization expert. Respond in JSON format only."

// ToolName is the function the model is asked to call with its selection.
const ToolName = "submit_charts"

// chartsSchema describes the {charts: [...]} reply. data rows are keyed by
// sheet headers, so they stay open objects and the tool is not strict.
var chartsSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "charts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "type": {"type": "string", "enum": ["line", "bar", "pie"]},
          "xAxis": {"type": "string"},
          "data": {"type": "array", "items": {"type": "object"}},
          "series": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {"key": {"type": "string"}},
              "required": ["key"]
            }
          }
        },
        "required": ["title", "type", "xAxis", "data", "series"]
      }
    }
  },
  "required": ["charts"]
}`)

// Tool returns the submit_charts function definition.
func Tool() ai.Tool {
	return ai.FunctionTool(ToolName,
		"Submit the selected chart configurations. Pass an empty charts array when none of the candidates fit.",
		chartsSchema)
}

// BuildMessages renders the system and user messages for one request.
func BuildMessages(records []chart.Record, candidates chart.Set, intent string) ([]ai.Message, error) {
	if records == nil {
		records = []chart.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	drafts, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode candidates: %w", err)
	}

	var b strings.Builder
	b.WriteString("I have the following Google Sheet data:\n")
	b.Write(data)
	b.WriteString("\n\nI have prepared the following chart configuration options:\n")
	b.Write(drafts)
	b.WriteString("\n\nBased on the data, please suggest the three to eight most appropriate chart configurations from the candidate options.\n")
	b.WriteString(`If none of the options are appropriate, return an empty array for "charts".`)
	if s := strings.TrimSpace(intent); s != "" {
		b.WriteString(" Here is the prompt provided by the user: ")
		b.WriteString(s)
	}
	b.WriteString("\n\nPlease respond in JSON format only.\n")

	return []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}, nil
}
