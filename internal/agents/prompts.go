package agents

import (
	"fmt"
	"strings"

	"marketpulse/internal/models"
)

const systemPrompt = "You are a market research analyst. Reply with JSON only, no prose."

func subject(req AgentRequest) string {
	s := fmt.Sprintf("Product: %s\nCompany: %s", req.ProductName, req.CompanyName)
	if d := strings.TrimSpace(req.Description); d != "" {
		s += "\nContext: " + d
	}
	return s
}

func buildPrompt(t models.AgentType, req AgentRequest) string {
	switch t {
	case models.AgentSentiment:
		return subject(req) + "\n\nAnalyse public customer sentiment. Return " +
			`{"overallScore":0-100,"positive":pct,"negative":pct,"neutral":pct,"themes":[string],"sampleReviews":[string]}`
	case models.AgentCompetitor:
		return subject(req) + "\n\nList the main competitors. Return " +
			`[{"name":string,"marketShare":pct,"strengths":[string],"weaknesses":[string],"pricing":string}]`
	case models.AgentTrend:
		return subject(req) + "\n\nDescribe search and market trends over the last six months. Return " +
			`{"trendScore":0-100,"keywords":[string],"monthlyData":[{"month":string,"value":number}]}`
	default:
		return subject(req)
	}
}
