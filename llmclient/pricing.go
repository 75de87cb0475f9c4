package llmclient

// PricingTable carries per-category USD rates per million tokens, lifted
// to configuration per spec.md §4.6's cost accounting formula
// (Σ tokens_i · rate_i / 10^6).
type PricingTable struct {
	InputPerMillion      float64
	OutputPerMillion     float64
	CacheReadPerMillion  float64
	CacheWritePerMillion float64
}

// DefaultPricingTable approximates OpenAI's gpt-4o-mini rates at the time
// of writing; callers in production should override via WithPricingTable.
func DefaultPricingTable() PricingTable {
	return PricingTable{
		InputPerMillion:      0.150,
		OutputPerMillion:     0.600,
		CacheReadPerMillion:  0.075,
		CacheWritePerMillion: 0.150,
	}
}

// Usage is the token usage block parsed off every LLM response.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
}

// CostUSD computes total spend for u under pricing.
func (u Usage) CostUSD(pricing PricingTable) float64 {
	return float64(u.InputTokens)*pricing.InputPerMillion/1e6 +
		float64(u.OutputTokens)*pricing.OutputPerMillion/1e6 +
		float64(u.CacheReadTokens)*pricing.CacheReadPerMillion/1e6 +
		float64(u.CacheWriteTokens)*pricing.CacheWritePerMillion/1e6
}
