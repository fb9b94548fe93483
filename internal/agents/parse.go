package agents

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripCodeFence returns the body of the first Markdown code fence in s, or s
// itself when there is none.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ExtractJSON returns the first balanced, well-formed object or array in s
// whose opening bracket is one of opens. Brackets inside string literals are
// ignored; prose such as "[1]" or "{0-100}" is skipped.
func ExtractJSON(s, opens string) (string, bool) {
	var found string
	ok := eachJSON(s, opens, func(candidate string) bool {
		found = candidate
		return true
	})
	return found, ok
}

// eachJSON calls fn on each well-formed candidate in s, left to right, until
// fn returns true.
func eachJSON(s, opens string, fn func(candidate string) bool) bool {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(opens, s[i]) < 0 {
			continue
		}
		end, ok := balancedEnd(s, i)
		if !ok || !json.Valid([]byte(s[i:end+1])) {
			continue
		}
		if fn(s[i : end+1]) {
			return true
		}
	}
	return false
}

func balancedEnd(s string, start int) (int, bool) {
	stack := make([]byte, 0, 8)
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// decodeFirst decodes the first candidate that fits T, so a citation list
// ahead of the real payload does not hide it.
func decodeFirst[T any](raw, opens string) (T, error) {
	var (
		out     T
		lastErr error
	)
	if eachJSON(stripCodeFence(raw), opens, func(candidate string) bool {
		var v T
		if err := json.Unmarshal([]byte(candidate), &v); err != nil {
			lastErr = err
			return false
		}
		out = v
		return true
	}) {
		return out, nil
	}
	if lastErr == nil {
		return out, fmt.Errorf("no json found in response")
	}
	return out, fmt.Errorf("parse json: %w", lastErr)
}

func ParseSentiment(raw string) Parsed[Sentiment] {
	s, err := decodeFirst[Sentiment](raw, "{")
	if err != nil {
		return Fallback(SentimentFallback(), err.Error())
	}
	return Ok(s)
}

// ParseCompetitors accepts a bare array or an object with a "competitors" array.
func ParseCompetitors(raw string) Parsed[[]Competitor] {
	var (
		list    []Competitor
		lastErr error
		decoded bool
	)
	eachJSON(stripCodeFence(raw), "[{", func(candidate string) bool {
		var got []Competitor
		if strings.HasPrefix(candidate, "{") {
			var wrapped struct {
				Competitors []Competitor `json:"competitors"`
			}
			if err := json.Unmarshal([]byte(candidate), &wrapped); err != nil {
				lastErr = err
				return false
			}
			got = wrapped.Competitors
		} else if err := json.Unmarshal([]byte(candidate), &got); err != nil {
			lastErr = err
			return false
		}
		decoded = true
		list = got
		return len(got) > 0
	})
	switch {
	case len(list) > 0:
		return Ok(list)
	case decoded:
		return Fallback(CompetitorFallback(), "no competitors in response")
	case lastErr != nil:
		return Fallback(CompetitorFallback(), "parse json: "+lastErr.Error())
	default:
		return Fallback(CompetitorFallback(), "no json found in response")
	}
}

func ParseTrend(raw string) Parsed[Trend] {
	t, err := decodeFirst[Trend](raw, "{")
	if err != nil {
		return Fallback(TrendFallback(), err.Error())
	}
	return Ok(t)
}
