package providers

import "strings"

// ProviderRef is one entry of a "|" separated provider list, e.g.
// "gateway|mock" or "gemini|openai:text-embedding-3-small". Option is the
// provider specific part after ":" (the embedding model for "openai").
type ProviderRef struct {
	Raw    string
	Name   string
	Option string
}

// ParseProviderList returns the entries in failover order. Names are
// lower-cased and repeated entries dropped; an empty list means "mock".
func ParseProviderList(raw string) []ProviderRef {
	seen := map[string]bool{}
	var out []ProviderRef
	for _, p := range strings.Split(raw, "|") {
		p = strings.TrimSpace(p)
		name, option, _ := strings.Cut(p, ":")
		ref := ProviderRef{Raw: p, Name: strings.ToLower(strings.TrimSpace(name)), Option: strings.TrimSpace(option)}
		key := ref.Name + ":" + ref.Option
		if ref.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, ProviderRef{Raw: "mock", Name: "mock"})
	}
	return out
}
