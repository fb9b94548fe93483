package embedding

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"marketpulse/internal/agents"
	"marketpulse/internal/models"
)

// DocumentLabels are the field labels BuildDocument writes, in document order.
var DocumentLabels = []string{
	"Overall Score", "Positive", "Negative", "Neutral", "Key Themes", "Sample Reviews",
	"Competitor", "Market Share", "Strengths", "Weaknesses", "Pricing",
	"Trend Score", "Keywords", "Monthly Data",
}

// BuildDocument renders an agent result as a plain text block suitable for
// embedding. Results that do not match their agent's shape, and unknown
// agent types, are flattened key by key.
func BuildDocument(agentType string, result json.RawMessage) string {
	switch models.AgentType(agentType) {
	case models.AgentSentiment:
		var s agents.Sentiment
		if json.Unmarshal(result, &s) == nil {
			return sentimentDocument(s)
		}
	case models.AgentCompetitor:
		if list := agents.ParseCompetitors(string(result)); !list.Fallback {
			return competitorDocument(list.Value)
		}
	case models.AgentTrend:
		var t agents.Trend
		if json.Unmarshal(result, &t) == nil {
			return trendDocument(t)
		}
	}
	var v any
	if err := json.Unmarshal(result, &v); err != nil {
		return strings.TrimSpace(string(result))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s Analysis\n", title(agentType))
	flatten(&b, "", v)
	return strings.TrimSpace(b.String())
}

func sentimentDocument(s agents.Sentiment) string {
	var b strings.Builder
	b.WriteString("Sentiment Analysis\n")
	fmt.Fprintf(&b, "Overall Score: %s\n", num(s.OverallScore))
	fmt.Fprintf(&b, "Positive: %s%%\nNegative: %s%%\nNeutral: %s%%\n", num(s.Positive), num(s.Negative), num(s.Neutral))
	if len(s.Themes) > 0 {
		fmt.Fprintf(&b, "Key Themes: %s\n", strings.Join(s.Themes, ", "))
	}
	if len(s.SampleReviews) > 0 {
		b.WriteString("Sample Reviews:\n")
		for _, r := range s.SampleReviews {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	return strings.TrimSpace(b.String())
}

func competitorDocument(list []agents.Competitor) string {
	var b strings.Builder
	b.WriteString("Competitor Analysis\n")
	for _, c := range list {
		fmt.Fprintf(&b, "Competitor: %s\n", c.Name)
		fmt.Fprintf(&b, "Market Share: %s%%\n", num(c.MarketShare))
		if len(c.Strengths) > 0 {
			fmt.Fprintf(&b, "Strengths: %s\n", strings.Join(c.Strengths, ", "))
		}
		if len(c.Weaknesses) > 0 {
			fmt.Fprintf(&b, "Weaknesses: %s\n", strings.Join(c.Weaknesses, ", "))
		}
		if c.Pricing != "" {
			fmt.Fprintf(&b, "Pricing: %s\n", c.Pricing)
		}
	}
	return strings.TrimSpace(b.String())
}

func trendDocument(t agents.Trend) string {
	var b strings.Builder
	b.WriteString("Trend Analysis\n")
	fmt.Fprintf(&b, "Trend Score: %s\n", num(t.TrendScore))
	if len(t.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(t.Keywords, ", "))
	}
	if len(t.MonthlyData) > 0 {
		parts := make([]string, 0, len(t.MonthlyData))
		for _, m := range t.MonthlyData {
			parts = append(parts, m.Month+": "+num(m.Value))
		}
		fmt.Fprintf(&b, "Monthly Data: %s\n", strings.Join(parts, ", "))
	}
	return strings.TrimSpace(b.String())
}

func flatten(b *strings.Builder, prefix string, v any) {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(b, key, x[k])
		}
	case []any:
		for i, item := range x {
			flatten(b, prefix+"["+strconv.Itoa(i)+"]", item)
		}
	case nil:
	default:
		fmt.Fprintf(b, "%s: %v\n", prefix, x)
	}
}

func num(n agents.Number) string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func title(s string) string {
	if s == "" {
		return "Agent"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
