package rebalance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

// analysisFixture builds a two-tag group: stocks (AAPL 300 USD) and
// bonds (BND 100 USD) with 60/40 targets.
func analysisFixture(t *testing.T, core *Core) (*RebalancingGroup, *Tag, *Tag) {
	t.Helper()

	testAccount(t, core, "acct-1", "Main")
	stocks := testTag(t, core, "Stocks")
	bonds := testTag(t, core, "Bonds")

	aapl := testHolding(t, core, "AAPL", 2, 150, "acct-1")
	bnd := testHolding(t, core, "BND", 1, 100, "acct-1")
	linkHoldingTag(t, core, aapl, stocks.ID)
	linkHoldingTag(t, core, bnd, bonds.ID)

	group := testGroup(t, core, "Core Portfolio", stocks.ID, bonds.ID)
	err := core.SetGroupTargets(group.ID, []TargetAllocation{
		{TagID: stocks.ID, TargetPercent: 60},
		{TagID: bonds.ID, TargetPercent: 40},
	})
	assertNoError(t, err, "SetGroupTargets")

	return group, stocks, bonds
}

func TestComputeRebalancingAnalysis(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	group, stocks, bonds := analysisFixture(t, core)

	analysis, err := core.ComputeRebalancingAnalysis(group.ID)
	assertNoError(t, err, "ComputeRebalancingAnalysis")

	if analysis.GroupID != group.ID || analysis.GroupName != "Core Portfolio" {
		t.Errorf("unexpected group identity: %q %q", analysis.GroupID, analysis.GroupName)
	}
	if analysis.BaseCurrency != "USD" {
		t.Errorf("base currency = %q, want USD", analysis.BaseCurrency)
	}
	assertDecimalEquals(t, analysis.TotalValue.Decimal, "400", "total value")

	if len(analysis.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(analysis.Allocations))
	}
	// Tag order follows the group's tag order.
	if analysis.Allocations[0].TagID != stocks.ID || analysis.Allocations[1].TagID != bonds.ID {
		t.Fatalf("allocations out of group order")
	}

	assertDecimalEquals(t, analysis.Allocations[0].CurrentValue.Decimal, "300", "stocks value")
	assertDecimalEquals(t, analysis.Allocations[0].CurrentPercent.Decimal, "75", "stocks percent")
	assertDecimalEquals(t, analysis.Allocations[0].TargetPercent.Decimal, "60", "stocks target")
	assertDecimalEquals(t, analysis.Allocations[0].Difference.Decimal, "-15", "stocks difference")

	assertDecimalEquals(t, analysis.Allocations[1].CurrentValue.Decimal, "100", "bonds value")
	assertDecimalEquals(t, analysis.Allocations[1].CurrentPercent.Decimal, "25", "bonds percent")
	assertDecimalEquals(t, analysis.Allocations[1].Difference.Decimal, "15", "bonds difference")
}

func TestAnalysisPercentagesSumToHundred(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testAccount(t, core, "acct-1", "Main")
	tagA := testTag(t, core, "A")
	tagB := testTag(t, core, "B")
	tagC := testTag(t, core, "C")

	// Values that do not divide evenly.
	for _, row := range []struct {
		symbol string
		qty    float64
		price  float64
		tagID  string
	}{
		{"AAA", 1, 33.33, tagA.ID},
		{"BBB", 1, 66.67, tagB.ID},
		{"CCC", 3, 11.11, tagC.ID},
	} {
		id := testHolding(t, core, row.symbol, row.qty, row.price, "acct-1")
		linkHoldingTag(t, core, id, row.tagID)
	}

	group := testGroup(t, core, "Uneven", tagA.ID, tagB.ID, tagC.ID)
	analysis, err := core.ComputeRebalancingAnalysis(group.ID)
	assertNoError(t, err, "ComputeRebalancingAnalysis")

	sum := decimal.Zero
	for _, alloc := range analysis.Allocations {
		sum = sum.Add(alloc.CurrentPercent.Decimal)
	}
	f, _ := sum.Float64()
	if !floatEquals(f, 100, 1e-9) {
		t.Errorf("current percents sum to %s, want 100", sum)
	}
}

func TestAnalysisZeroTotalValue(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	stocks := testTag(t, core, "Stocks")
	group := testGroup(t, core, "Empty", stocks.ID)

	analysis, err := core.ComputeRebalancingAnalysis(group.ID)
	assertNoError(t, err, "ComputeRebalancingAnalysis")

	assertDecimalEquals(t, analysis.TotalValue.Decimal, "0", "total value")
	if len(analysis.Allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(analysis.Allocations))
	}
	// No division by zero: percentages are 0 when nothing is held.
	assertDecimalEquals(t, analysis.Allocations[0].CurrentPercent.Decimal, "0", "current percent")
}

func TestAnalysisOverlappingTagsDoubleCount(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testAccount(t, core, "acct-1", "Main")
	tech := testTag(t, core, "Tech")
	growth := testTag(t, core, "Growth")

	// One 200 USD holding in both tags.
	id := testHolding(t, core, "MSFT", 1, 200, "acct-1")
	linkHoldingTag(t, core, id, tech.ID)
	linkHoldingTag(t, core, id, growth.ID)

	group := testGroup(t, core, "Overlap", tech.ID, growth.ID)
	analysis, err := core.ComputeRebalancingAnalysis(group.ID)
	assertNoError(t, err, "ComputeRebalancingAnalysis")

	// The holding contributes its full value to each tag, so total is 400.
	assertDecimalEquals(t, analysis.TotalValue.Decimal, "400", "total value with overlap")
	assertDecimalEquals(t, analysis.Allocations[0].CurrentValue.Decimal, "200", "tech value")
	assertDecimalEquals(t, analysis.Allocations[1].CurrentValue.Decimal, "200", "growth value")
	assertDecimalEquals(t, analysis.Allocations[0].CurrentPercent.Decimal, "50", "tech percent")
}

func TestAnalysisSkipsDeletedTags(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	group, stocks, bonds := analysisFixture(t, core)

	deleted, err := core.DeleteTag(bonds.ID)
	assertNoError(t, err, "DeleteTag")
	if !deleted {
		t.Fatal("expected tag to be deleted")
	}

	analysis, err := core.ComputeRebalancingAnalysis(group.ID)
	assertNoError(t, err, "ComputeRebalancingAnalysis")

	if len(analysis.Allocations) != 1 {
		t.Fatalf("expected deleted tag to be skipped, got %d allocations", len(analysis.Allocations))
	}
	if analysis.Allocations[0].TagID != stocks.ID {
		t.Errorf("remaining allocation = %q, want stocks", analysis.Allocations[0].TagID)
	}
	assertDecimalEquals(t, analysis.TotalValue.Decimal, "300", "total after tag deletion")
}

func TestAnalysisUnknownGroup(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := core.ComputeRebalancingAnalysis("no-such-group")
	assertErrorCode(t, err, ErrCodeNotFound, "unknown group")
}

func TestAnalysisMissingTargetsDefaultToZero(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testAccount(t, core, "acct-1", "Main")
	stocks := testTag(t, core, "Stocks")
	id := testHolding(t, core, "VT", 1, 500, "acct-1")
	linkHoldingTag(t, core, id, stocks.ID)
	group := testGroup(t, core, "No Targets", stocks.ID)

	analysis, err := core.ComputeRebalancingAnalysis(group.ID)
	assertNoError(t, err, "ComputeRebalancingAnalysis")

	assertDecimalEquals(t, analysis.Allocations[0].TargetPercent.Decimal, "0", "default target")
	assertDecimalEquals(t, analysis.Allocations[0].Difference.Decimal, "-100", "difference with zero target")
}

func TestBuildAnalysisTimestamp(t *testing.T) {
	t.Parallel()

	group := RebalancingGroup{ID: "g", Name: "G", BaseCurrency: "USD"}
	analysis := BuildAnalysis(AnalysisInput{Group: group}, fixedNow())
	if analysis.LastUpdated != "2026-08-01T12:00:00Z" {
		t.Errorf("LastUpdated = %q, want RFC3339 UTC timestamp", analysis.LastUpdated)
	}
}

func TestBuildAnalysisIgnoresDanglingLinks(t *testing.T) {
	t.Parallel()

	tag := Tag{ID: "t1", Name: "Stocks"}
	in := AnalysisInput{
		Group: RebalancingGroup{ID: "g", Name: "G", BaseCurrency: "USD", TagIDs: []string{"t1"}},
		Tags:  []Tag{tag},
		Holdings: []Holding{
			{ID: 1, Symbol: "AAPL", MarketValue: NewAmount(100)},
		},
		Links: []HoldingTag{
			{HoldingID: 1, TagID: "t1"},
			{HoldingID: 999, TagID: "t1"}, // holding no longer exists
		},
	}

	analysis := BuildAnalysis(in, fixedNow())
	assertDecimalEquals(t, analysis.TotalValue.Decimal, "100", "dangling link ignored")
}
