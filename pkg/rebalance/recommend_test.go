package rebalance

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeInvestmentRecommendationAllToUnderweight(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	group, stocks, bonds := analysisFixture(t, core)

	// Stocks are overweight (75 vs 60), bonds underweight (25 vs 40):
	// every new dollar should flow to bonds.
	recs, err := core.ComputeInvestmentRecommendation(group.ID, decimal.NewFromInt(1000))
	assertNoError(t, err, "ComputeInvestmentRecommendation")

	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].TagID != stocks.ID || recs[1].TagID != bonds.ID {
		t.Fatal("recommendations out of group order")
	}
	assertDecimalEquals(t, recs[0].Amount.Decimal, "0", "stocks amount")
	assertDecimalEquals(t, recs[1].Amount.Decimal, "1000", "bonds amount")
	assertDecimalEquals(t, recs[0].Percent.Decimal, "0", "stocks percent")
	assertDecimalEquals(t, recs[1].Percent.Decimal, "100", "bonds percent")
	if recs[1].BaseCurrency != "USD" {
		t.Errorf("base currency = %q, want USD", recs[1].BaseCurrency)
	}
}

func TestRecommendationConservation(t *testing.T) {
	t.Parallel()

	// Three-way gap split with an awkward amount: rounding must not leak.
	analysis := &RebalancingAnalysis{
		BaseCurrency: "USD",
		Allocations: []TagAllocation{
			{TagID: "a", TagName: "A", Difference: NewAmount(10)},
			{TagID: "b", TagName: "B", Difference: NewAmount(10)},
			{TagID: "c", TagName: "C", Difference: NewAmount(10)},
		},
	}

	amount := decimal.NewFromFloat(100.01)
	recs, err := BuildRecommendations(analysis, nil, amount)
	assertNoError(t, err, "BuildRecommendations")

	total := decimal.Zero
	for _, rec := range recs {
		total = total.Add(rec.Amount.Decimal)
	}
	if !total.Equal(amount) {
		t.Errorf("recommended amounts sum to %s, want %s", total, amount)
	}
}

func TestRecommendationFallbackToTargets(t *testing.T) {
	t.Parallel()

	// Perfectly balanced portfolio: no gaps, so the split follows targets.
	analysis := &RebalancingAnalysis{
		BaseCurrency: "USD",
		Allocations: []TagAllocation{
			{TagID: "a", TagName: "A", TargetPercent: NewAmount(60), Difference: NewAmount(0)},
			{TagID: "b", TagName: "B", TargetPercent: NewAmount(40), Difference: NewAmount(0)},
		},
	}

	recs, err := BuildRecommendations(analysis, nil, decimal.NewFromInt(1000))
	assertNoError(t, err, "BuildRecommendations")

	assertDecimalEquals(t, recs[0].Amount.Decimal, "600", "A amount")
	assertDecimalEquals(t, recs[1].Amount.Decimal, "400", "B amount")
	assertDecimalEquals(t, recs[0].Percent.Decimal, "60", "A percent")
	assertDecimalEquals(t, recs[1].Percent.Decimal, "40", "B percent")
}

func TestRecommendationAllOverweightFallsBackToTargets(t *testing.T) {
	t.Parallel()

	// Negative differences clamp to zero gap; the target fallback applies.
	analysis := &RebalancingAnalysis{
		BaseCurrency: "USD",
		Allocations: []TagAllocation{
			{TagID: "a", TagName: "A", TargetPercent: NewAmount(50), Difference: NewAmount(-10)},
			{TagID: "b", TagName: "B", TargetPercent: NewAmount(50), Difference: NewAmount(-5)},
		},
	}

	recs, err := BuildRecommendations(analysis, nil, decimal.NewFromInt(200))
	assertNoError(t, err, "BuildRecommendations")

	assertDecimalEquals(t, recs[0].Amount.Decimal, "100", "A amount")
	assertDecimalEquals(t, recs[1].Amount.Decimal, "100", "B amount")
}

func TestRecommendationAllZeroTargets(t *testing.T) {
	t.Parallel()

	analysis := &RebalancingAnalysis{
		BaseCurrency: "USD",
		Allocations: []TagAllocation{
			{TagID: "a", TagName: "A"},
			{TagID: "b", TagName: "B"},
		},
	}

	recs, err := BuildRecommendations(analysis, nil, decimal.NewFromInt(500))
	assertNoError(t, err, "BuildRecommendations")

	for _, rec := range recs {
		assertDecimalEquals(t, rec.Amount.Decimal, "0", "amount with no targets")
		assertDecimalEquals(t, rec.Percent.Decimal, "0", "percent with no targets")
	}
}

func TestRecommendationNegativeAmount(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	group, _, _ := analysisFixture(t, core)

	_, err := core.ComputeInvestmentRecommendation(group.ID, decimal.NewFromInt(-1))
	assertErrorCode(t, err, ErrCodeInvalidAmount, "negative amount")

	_, err = BuildRecommendations(&RebalancingAnalysis{}, nil, decimal.NewFromInt(-1))
	assertErrorCode(t, err, ErrCodeInvalidAmount, "negative amount pure")
}

func TestRecommendationZeroAmount(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	group, _, _ := analysisFixture(t, core)

	recs, err := core.ComputeInvestmentRecommendation(group.ID, decimal.Zero)
	assertNoError(t, err, "ComputeInvestmentRecommendation zero amount")
	for _, rec := range recs {
		assertDecimalEquals(t, rec.Amount.Decimal, "0", "zero amount distributes nothing")
	}
}

func TestRecommendationSuggestedSymbols(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testAccount(t, core, "acct-1", "Main")
	testAccount(t, core, "acct-2", "IRA")
	stocks := testTag(t, core, "Stocks")

	// Same symbol in two accounts must appear once; symbols are sorted.
	a1 := testHolding(t, core, "VTI", 1, 100, "acct-1")
	a2 := testHolding(t, core, "VTI", 2, 100, "acct-2")
	a3 := testHolding(t, core, "AAPL", 1, 100, "acct-1")
	for _, id := range []int64{a1, a2, a3} {
		linkHoldingTag(t, core, id, stocks.ID)
	}

	group := testGroup(t, core, "Suggest", stocks.ID)
	assertNoError(t, core.SetGroupTargets(group.ID, []TargetAllocation{
		{TagID: stocks.ID, TargetPercent: 100},
	}), "SetGroupTargets")

	recs, err := core.ComputeInvestmentRecommendation(group.ID, decimal.NewFromInt(100))
	assertNoError(t, err, "ComputeInvestmentRecommendation")

	want := []string{"AAPL", "VTI"}
	if !reflect.DeepEqual(recs[0].SuggestedSymbols, want) {
		t.Errorf("suggested symbols = %v, want %v", recs[0].SuggestedSymbols, want)
	}
}
