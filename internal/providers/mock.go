package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// MockProvider returns deterministic chat answers and vectors so the whole
// pipeline can run without network access.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 768
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	return deterministicVector(req.Input, dim), ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim)}, nil
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1"}
	if req.Tool != nil {
		args := `{"keyFindings":["Deterministic mock finding."],"sentimentBreakdown":{"positive":60,"neutral":25,"negative":15},` +
			`"trends":["Mock trend"],"anomalies":[],"recommendations":["Replace the mock provider for real analysis."]}`
		return ChatResponse{ToolCalls: []ToolCall{{Name: req.Tool.Name, Arguments: args}}}, info, nil
	}
	op := strings.ToLower(req.Operation)
	text := "Mock response."
	switch {
	case strings.Contains(op, "sentiment"):
		text = "```json\n{\"overallScore\":72,\"positive\":60,\"negative\":18,\"neutral\":22,\"themes\":[\"price\",\"quality\"],\"sampleReviews\":[\"Works as described.\"]}\n```"
	case strings.Contains(op, "competitor"):
		text = `Here is the list: [{"name":"Mock Rival","marketShare":30,"strengths":["brand"],"weaknesses":["price"],"pricing":"premium"}]`
	case strings.Contains(op, "trend"):
		text = `{"trendScore":64,"keywords":["mock"],"monthlyData":[{"month":"Jan","value":50},{"month":"Feb","value":55}]}`
	}
	return ChatResponse{Text: text}, info, nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		vec[i] = float32(u%2000)/1000.0 - 1.0
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
