package agents

// Fixed defaults substituted when a model answer cannot be decoded.

func SentimentFallback() Sentiment {
	return Sentiment{
		OverallScore:  75,
		Positive:      65,
		Negative:      20,
		Neutral:       15,
		Themes:        Labels{"Product quality", "Value for money", "Customer support"},
		SampleReviews: Labels{"Generally positive feedback on core features.", "Some users mention pricing concerns."},
	}
}

func CompetitorFallback() []Competitor {
	return []Competitor{
		{
			Name:        "Market Leader",
			MarketShare: 35,
			Strengths:   Labels{"Brand recognition", "Distribution"},
			Weaknesses:  Labels{"Premium pricing"},
			Pricing:     "premium",
		},
		{
			Name:        "Established Challenger",
			MarketShare: 25,
			Strengths:   Labels{"Feature breadth"},
			Weaknesses:  Labels{"Complex onboarding"},
			Pricing:     "mid-range",
		},
		{
			Name:        "Emerging Entrant",
			MarketShare: 10,
			Strengths:   Labels{"Low price", "Fast iteration"},
			Weaknesses:  Labels{"Limited support"},
			Pricing:     "budget",
		},
	}
}

func TrendFallback() Trend {
	return Trend{
		TrendScore: 70,
		Keywords:   Labels{"innovation", "sustainability", "user experience"},
		MonthlyData: []MonthValue{
			{Month: "Jan", Value: 60},
			{Month: "Feb", Value: 62},
			{Month: "Mar", Value: 65},
			{Month: "Apr", Value: 67},
			{Month: "May", Value: 69},
			{Month: "Jun", Value: 70},
		},
	}
}
