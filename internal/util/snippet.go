package util

import (
	"sort"
	"strings"
	"unicode"
)

const defaultSnippetRunes = 280

// Snippet cleans s for display and cuts it at a word boundary so that it
// fits in maxRunes, marking the cut with "...".
func Snippet(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = defaultSnippetRunes
	}
	s = CleanText(s, 0)
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	cut := string(r[:maxRunes])
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}

type fact struct {
	label string
	text  string
	score int
}

// EvidenceSnippet returns the parts of an embedded agent document that best
// answer query. When the chunk carries "Label: value" fields named in labels,
// each field is one candidate and a query term hitting the label counts
// double; otherwise candidates are sentences. The two best candidates with
// a match are joined. A chunk nothing matches is returned whole.
func EvidenceSnippet(chunk, query string, labels []string, maxRunes int) string {
	chunk = CleanText(chunk, 0)
	if chunk == "" {
		return ""
	}
	terms := queryTerms(query)
	if len(terms) == 0 {
		return Snippet(chunk, maxRunes)
	}
	facts := splitFields(chunk, labels)
	if len(facts) < 2 {
		facts = splitSentences(chunk)
	}
	for i := range facts {
		low, lowLabel := strings.ToLower(facts[i].text), strings.ToLower(facts[i].label)
		for _, t := range terms {
			if strings.Contains(low, t) {
				facts[i].score++
			}
			if lowLabel != "" && strings.Contains(lowLabel, t) {
				facts[i].score += 2
			}
		}
	}
	sort.SliceStable(facts, func(i, j int) bool { return facts[i].score > facts[j].score })
	if facts[0].score == 0 {
		return Snippet(chunk, maxRunes)
	}
	out := facts[0].text
	if len(facts) > 1 && facts[1].score > 0 {
		out += "; " + facts[1].text
	}
	return Snippet(out, maxRunes)
}

// splitFields cuts s at every "<label>:" that starts a word. Text before the
// first label (the document heading) is dropped.
func splitFields(s string, labels []string) []fact {
	type mark struct {
		at    int
		label string
	}
	var marks []mark
	seen := map[int]bool{}
	for _, l := range labels {
		needle := l + ":"
		for from := 0; from < len(s); {
			i := strings.Index(s[from:], needle)
			if i < 0 {
				break
			}
			at := from + i
			if (at == 0 || s[at-1] == ' ') && !seen[at] {
				seen[at] = true
				marks = append(marks, mark{at: at, label: l})
			}
			from = at + len(needle)
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].at < marks[j].at })
	out := make([]fact, 0, len(marks))
	for i, m := range marks {
		end := len(s)
		if i+1 < len(marks) {
			end = marks[i+1].at
		}
		out = append(out, fact{label: m.label, text: strings.TrimSpace(s[m.at:end])})
	}
	return out
}

func splitSentences(s string) []fact {
	out := make([]fact, 0, 8)
	start := 0
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			if x := strings.TrimSpace(s[start : i+1]); x != "" {
				out = append(out, fact{text: x})
			}
			start = i + 1
		}
	}
	if x := strings.TrimSpace(s[start:]); x != "" {
		out = append(out, fact{text: x})
	}
	return out
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true, "were": true, "what": true,
	"how": true, "why": true, "which": true, "that": true, "this": true, "with": true, "from": true,
	"about": true, "does": true, "who": true, "our": true, "its": true, "product": true,
}

func queryTerms(q string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range strings.Fields(strings.ToLower(q)) {
		f = strings.Trim(f, ",.;:!?()[]{}\"'`%")
		if len(f) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
