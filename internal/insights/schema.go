package insights

import "marketpulse/internal/providers"

const ToolName = "generate_insights"

type SentimentBreakdown struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// Report is the structured answer the model must return through the tool.
type Report struct {
	KeyFindings        []string           `json:"keyFindings"`
	SentimentBreakdown SentimentBreakdown `json:"sentimentBreakdown"`
	Trends             []string           `json:"trends"`
	Anomalies          []string           `json:"anomalies"`
	Recommendations    []string           `json:"recommendations"`
}

func stringList(desc string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": desc,
		"items":       map[string]any{"type": "string"},
	}
}

func percent(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc, "minimum": 0, "maximum": 100}
}

func Tool() *providers.ToolSpec {
	return &providers.ToolSpec{
		Name:        ToolName,
		Description: "Return structured market insights derived from the agent results.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"keyFindings": stringList("Most important findings"),
				"sentimentBreakdown": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"positive": percent("Positive share in percent"),
						"neutral":  percent("Neutral share in percent"),
						"negative": percent("Negative share in percent"),
					},
					"required": []string{"positive", "neutral", "negative"},
				},
				"trends":          stringList("Notable market trends"),
				"anomalies":       stringList("Unexpected or contradictory signals"),
				"recommendations": stringList("Actionable recommendations"),
			},
			"required": []string{"keyFindings", "sentimentBreakdown", "trends", "anomalies", "recommendations"},
		},
	}
}
