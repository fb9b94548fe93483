package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"marketpulse/internal/models"
)

// Parsed is either a value decoded from a model answer or a fixed default
// substituted because decoding failed.
type Parsed[T any] struct {
	Value    T
	Fallback bool
	Reason   string
}

func Ok[T any](v T) Parsed[T] {
	return Parsed[T]{Value: v}
}

func Fallback[T any](v T, reason string) Parsed[T] {
	return Parsed[T]{Value: v, Fallback: true, Reason: reason}
}

type Sentiment struct {
	OverallScore  Number `json:"overallScore"`
	Positive      Number `json:"positive"`
	Negative      Number `json:"negative"`
	Neutral       Number `json:"neutral"`
	Themes        Labels `json:"themes"`
	SampleReviews Labels `json:"sampleReviews"`
}

type Competitor struct {
	Name        string `json:"name"`
	MarketShare Number `json:"marketShare"`
	Strengths   Labels `json:"strengths"`
	Weaknesses  Labels `json:"weaknesses"`
	Pricing     string `json:"pricing"`
}

type Trend struct {
	TrendScore  Number       `json:"trendScore"`
	Keywords    Labels       `json:"keywords"`
	MonthlyData []MonthValue `json:"monthlyData"`
}

type MonthValue struct {
	Month string `json:"month"`
	Value Number `json:"value"`
}

// Number accepts JSON numbers and numeric strings such as "35%".
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("number %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Labels accepts a list of strings, a list of objects carrying a label-like
// field, or a single string.
type Labels []string

func (l *Labels) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*l = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Labels{s}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Labels, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			out = append(out, strings.TrimSpace(string(item)))
			continue
		}
		out = append(out, labelFromObject(obj, item))
	}
	*l = out
	return nil
}

func labelFromObject(obj map[string]any, raw json.RawMessage) string {
	for _, k := range []string{"name", "theme", "keyword", "text", "title", "review", "label"} {
		if v, ok := obj[k].(string); ok && v != "" {
			return v
		}
	}
	return string(raw)
}

// AgentRequest is the input of one Agent Runner invocation.
type AgentRequest struct {
	ProjectID   string `json:"project_id"`
	RunID       string `json:"run_id"`
	ProductName string `json:"product_name"`
	CompanyName string `json:"company_name"`
	Description string `json:"description,omitempty"`
}

func (r AgentRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.ProjectID) == "":
		return fmt.Errorf("project_id is required")
	case strings.TrimSpace(r.ProductName) == "":
		return fmt.Errorf("product_name is required")
	case strings.TrimSpace(r.CompanyName) == "":
		return fmt.Errorf("company_name is required")
	}
	return nil
}

// AgentOutcome is what one agent left behind: the persisted row's essentials.
type AgentOutcome struct {
	AgentType      models.AgentType    `json:"agentType"`
	ResultID       string              `json:"resultId"`
	Status         models.ResultStatus `json:"status"`
	Result         json.RawMessage     `json:"result"`
	Error          string              `json:"error,omitempty"`
	Fallback       bool                `json:"fallback"`
	FallbackReason string              `json:"fallbackReason,omitempty"`
	Provider       string              `json:"provider"`
	Model          string              `json:"model"`
	LatencyMS      int64               `json:"latencyMs"`
}

type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Fallbacks int `json:"fallbacks"`
}

type RunOutput struct {
	Results []AgentOutcome `json:"results"`
	Summary Summary        `json:"summary"`
}
