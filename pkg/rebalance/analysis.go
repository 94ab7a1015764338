package rebalance

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnalysisInput is the snapshot a rebalancing analysis is computed over.
// The engine is a pure function of this input: no state is held between
// calls, and the caller owns snapshot consistency.
type AnalysisInput struct {
	Group    RebalancingGroup
	Tags     []Tag
	Holdings []Holding
	Links    []HoldingTag
	// Targets is sparse; tags without an entry default to 0.
	Targets map[string]float64
}

// BuildAnalysis aggregates the snapshot into per-tag allocations and
// compares them against the group's targets.
//
// A holding linked to multiple in-group tags contributes its full market
// value to each of them, and totalValue sums the per-tag values. Overlaps
// therefore count more than once; the aggregation is a sum over
// tag-to-holding edges, not over distinct holdings.
func BuildAnalysis(in AnalysisInput, now time.Time) *RebalancingAnalysis {
	tagsByID := make(map[string]Tag, len(in.Tags))
	for _, tag := range in.Tags {
		tagsByID[tag.ID] = tag
	}
	holdingsByID := make(map[int64]Holding, len(in.Holdings))
	for _, h := range in.Holdings {
		holdingsByID[h.ID] = h
	}

	valueByTag := make(map[string]decimal.Decimal, len(in.Group.TagIDs))
	for _, link := range in.Links {
		holding, ok := holdingsByID[link.HoldingID]
		if !ok {
			continue
		}
		valueByTag[link.TagID] = valueByTag[link.TagID].Add(holding.MarketValue.Decimal)
	}

	totalValue := decimal.Zero
	for _, tagID := range in.Group.TagIDs {
		if _, ok := tagsByID[tagID]; !ok {
			continue
		}
		totalValue = totalValue.Add(valueByTag[tagID])
	}

	allocations := make([]TagAllocation, 0, len(in.Group.TagIDs))
	for _, tagID := range in.Group.TagIDs {
		tag, ok := tagsByID[tagID]
		if !ok {
			// Deleted tags are skipped rather than failing the analysis.
			continue
		}
		currentValue := valueByTag[tagID]
		currentPercent := decimal.Zero
		if !totalValue.IsZero() {
			currentPercent = currentValue.Div(totalValue).Mul(oneHundred)
		}
		targetPercent := decimal.NewFromFloat(in.Targets[tagID])
		allocations = append(allocations, TagAllocation{
			TagID:          tag.ID,
			TagName:        tag.Name,
			TagColor:       tag.Color,
			CurrentValue:   Amount{currentValue},
			CurrentPercent: Amount{currentPercent},
			TargetPercent:  Amount{targetPercent},
			Difference:     Amount{targetPercent.Sub(currentPercent)},
		})
	}

	return &RebalancingAnalysis{
		GroupID:      in.Group.ID,
		GroupName:    in.Group.Name,
		TotalValue:   Amount{totalValue},
		BaseCurrency: in.Group.BaseCurrency,
		LastUpdated:  now.UTC().Format(time.RFC3339),
		Allocations:  allocations,
	}
}

// ComputeRebalancingAnalysis loads the group's snapshot and builds its
// analysis. Unknown groups fail with NOT_FOUND.
func (c *Core) ComputeRebalancingAnalysis(groupID string) (*RebalancingAnalysis, error) {
	in, err := c.loadAnalysisInput(groupID)
	if err != nil {
		return nil, err
	}
	return BuildAnalysis(*in, timeNow()), nil
}

func (c *Core) loadAnalysisInput(groupID string) (*AnalysisInput, error) {
	group, err := c.GetGroup(groupID)
	if err != nil {
		return nil, err
	}
	tags, err := c.GetTags()
	if err != nil {
		return nil, err
	}
	holdings, err := c.GetHoldings("")
	if err != nil {
		return nil, err
	}
	links, err := c.getHoldingLinks()
	if err != nil {
		return nil, err
	}
	targets, err := c.GetGroupTargets(groupID)
	if err != nil {
		return nil, err
	}
	return &AnalysisInput{
		Group:    *group,
		Tags:     tags,
		Holdings: holdings,
		Links:    links,
		Targets:  targets,
	}, nil
}
