package rebalance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BuildRecommendations distributes an investment amount across a group's
// tags, preferentially toward underweight ones.
//
// Each tag's gap is max(0, target − current). Gaps drive the split; when
// every gap is zero (balanced or all overweight) the split falls back to
// the raw target percentages so money still follows the strategy. When
// the targets are all zero too there is no strategy to follow and every
// amount is zero.
//
// The last tag that receives a share absorbs the rounding remainder, so
// the recommended amounts sum back to the invested amount exactly.
func BuildRecommendations(analysis *RebalancingAnalysis, symbolsByTag map[string][]string, amount decimal.Decimal) ([]InvestmentRecommendation, error) {
	if amount.IsNegative() {
		return nil, NewError(ErrCodeInvalidAmount, "investment amount must be non-negative")
	}

	gaps := make([]decimal.Decimal, len(analysis.Allocations))
	gapSum := decimal.Zero
	targetSum := decimal.Zero
	for i, alloc := range analysis.Allocations {
		gap := alloc.Difference.Decimal
		if gap.IsNegative() {
			gap = decimal.Zero
		}
		gaps[i] = gap
		gapSum = gapSum.Add(gap)
		targetSum = targetSum.Add(alloc.TargetPercent.Decimal)
	}

	weights := make([]decimal.Decimal, len(analysis.Allocations))
	switch {
	case !gapSum.IsZero():
		for i, gap := range gaps {
			weights[i] = gap.Div(gapSum)
		}
	case !targetSum.IsZero():
		for i, alloc := range analysis.Allocations {
			weights[i] = alloc.TargetPercent.Decimal.Div(targetSum)
		}
	default:
		// No gaps and no targets: no informed recommendation to make.
	}

	lastFunded := -1
	for i, w := range weights {
		if !w.IsZero() {
			lastFunded = i
		}
	}

	recommendations := make([]InvestmentRecommendation, 0, len(analysis.Allocations))
	distributed := decimal.Zero
	for i, alloc := range analysis.Allocations {
		var recommended decimal.Decimal
		if i == lastFunded {
			recommended = amount.Sub(distributed)
		} else {
			recommended = amount.Mul(weights[i]).Round(2)
			distributed = distributed.Add(recommended)
		}
		recommendations = append(recommendations, InvestmentRecommendation{
			TagID:            alloc.TagID,
			TagName:          alloc.TagName,
			Amount:           Amount{recommended},
			Percent:          Amount{weights[i].Mul(oneHundred)},
			SuggestedSymbols: symbolsByTag[alloc.TagID],
			BaseCurrency:     analysis.BaseCurrency,
		})
	}
	return recommendations, nil
}

// ComputeInvestmentRecommendation loads the group's snapshot, runs the
// analysis, and distributes the amount across its tags.
func (c *Core) ComputeInvestmentRecommendation(groupID string, amount decimal.Decimal) ([]InvestmentRecommendation, error) {
	if amount.IsNegative() {
		return nil, NewError(ErrCodeInvalidAmount, "investment amount must be non-negative")
	}
	in, err := c.loadAnalysisInput(groupID)
	if err != nil {
		return nil, err
	}
	analysis := BuildAnalysis(*in, timeNow())
	return BuildRecommendations(analysis, suggestedSymbolsByTag(in.Holdings, in.Links), amount)
}

// suggestedSymbolsByTag collects the distinct symbols currently held
// under each tag, sorted for stable output.
func suggestedSymbolsByTag(holdings []Holding, links []HoldingTag) map[string][]string {
	holdingsByID := make(map[int64]Holding, len(holdings))
	for _, h := range holdings {
		holdingsByID[h.ID] = h
	}
	seen := map[string]map[string]bool{}
	result := map[string][]string{}
	for _, link := range links {
		holding, ok := holdingsByID[link.HoldingID]
		if !ok {
			continue
		}
		if seen[link.TagID] == nil {
			seen[link.TagID] = map[string]bool{}
		}
		if seen[link.TagID][holding.Symbol] {
			continue
		}
		seen[link.TagID][holding.Symbol] = true
		result[link.TagID] = append(result[link.TagID], holding.Symbol)
	}
	for tagID := range result {
		sort.Strings(result[tagID])
	}
	return result
}
