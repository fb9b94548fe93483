package workflows

import "strings"

const (
	DefaultFeedbackThreshold = 3
	detailedSuffix           = " (detailed analysis)"
	detailedRequest          = "Provide more detailed analysis with additional data points, sources and specific examples."
)

// ShouldTriggerFeedback reports whether the one-shot augmented re-run is due:
// the data was judged insufficient and fewer than DefaultFeedbackThreshold
// embeddings exist.
func ShouldTriggerFeedback(needsFeedbackLoop bool, embeddingsCount int) bool {
	return shouldTrigger(needsFeedbackLoop, embeddingsCount, DefaultFeedbackThreshold)
}

func shouldTrigger(needs bool, embeddingsCount, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultFeedbackThreshold
	}
	return needs && embeddingsCount < threshold
}

// DetailedProductName is the product name used by the feedback pass.
func DetailedProductName(product string) string {
	return product + detailedSuffix
}

// DetailedDescription appends the request for more detail to description.
func DetailedDescription(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return detailedRequest
	}
	return description + "\n\n" + detailedRequest
}
