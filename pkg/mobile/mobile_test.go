package mobile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"rebalance/pkg/rebalance"
)

func setupMobileCore(t *testing.T) (*Core, func()) {
	t.Helper()
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "test.db")
	core, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cleanup := func() {
		_ = core.Close()
		_ = os.RemoveAll(tmp)
	}
	return core, cleanup
}

func mustUpsertHolding(t *testing.T, core *Core, symbol, quantity, price string) int64 {
	t.Helper()
	payload := map[string]any{
		"market":        "US",
		"symbol":        symbol,
		"quantity":      quantity,
		"current_price": price,
		"currency":      "USD",
		"account_id":    "acct",
	}
	payloadBytes, _ := json.Marshal(payload)
	resp, err := core.UpsertHoldingJSON(string(payloadBytes))
	if err != nil {
		t.Fatalf("UpsertHoldingJSON: %v", err)
	}
	var addResp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(resp), &addResp); err != nil {
		t.Fatalf("unmarshal upsert response: %v", err)
	}
	if addResp.ID == 0 {
		t.Fatalf("expected id in response, got %s", resp)
	}
	return addResp.ID
}

func TestMobileCoreJSONFlows(t *testing.T) {
	core, cleanup := setupMobileCore(t)
	defer cleanup()

	holdingID := mustUpsertHolding(t, core, "AAPL", "2", "150")

	holdingsJSON, err := core.GetHoldingsJSON("")
	if err != nil {
		t.Fatalf("GetHoldingsJSON: %v", err)
	}
	var holdings []rebalance.Holding
	if err := json.Unmarshal([]byte(holdingsJSON), &holdings); err != nil {
		t.Fatalf("unmarshal holdings: %v", err)
	}
	if len(holdings) != 1 || holdings[0].Symbol != "AAPL" {
		t.Fatalf("unexpected holdings: %s", holdingsJSON)
	}

	tag, err := core.core.AddTag(rebalance.AddTagRequest{Name: "stocks"})
	if err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if err := core.LinkHoldingTag(holdingID, tag.ID); err != nil {
		t.Fatalf("LinkHoldingTag: %v", err)
	}

	tagsJSON, err := core.GetTagsJSON()
	if err != nil {
		t.Fatalf("GetTagsJSON: %v", err)
	}
	var tags []rebalance.Tag
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		t.Fatalf("unmarshal tags: %v", err)
	}
	if len(tags) != 1 {
		t.Fatalf("expected one tag, got %s", tagsJSON)
	}

	group, err := core.core.CreateGroup(rebalance.CreateGroupRequest{
		Name:   "Main",
		TagIDs: []string{tag.ID},
	})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := core.core.SetGroupTargets(group.ID, []rebalance.TargetAllocation{
		{TagID: tag.ID, TargetPercent: 100},
	}); err != nil {
		t.Fatalf("SetGroupTargets: %v", err)
	}

	analysisJSON, err := core.GetAnalysisJSON(group.ID)
	if err != nil {
		t.Fatalf("GetAnalysisJSON: %v", err)
	}
	var analysis rebalance.RebalancingAnalysis
	if err := json.Unmarshal([]byte(analysisJSON), &analysis); err != nil {
		t.Fatalf("unmarshal analysis: %v", err)
	}
	if analysis.TotalValue.String() != "300" {
		t.Fatalf("expected total 300, got %s", analysisJSON)
	}

	recJSON, err := core.GetRecommendationJSON(group.ID, "500")
	if err != nil {
		t.Fatalf("GetRecommendationJSON: %v", err)
	}
	var recs []rebalance.InvestmentRecommendation
	if err := json.Unmarshal([]byte(recJSON), &recs); err != nil {
		t.Fatalf("unmarshal recommendations: %v", err)
	}
	if len(recs) != 1 || recs[0].Amount.String() != "500" {
		t.Fatalf("unexpected recommendations: %s", recJSON)
	}

	removed, err := core.UnlinkHoldingTag(holdingID, tag.ID)
	if err != nil || !removed {
		t.Fatalf("UnlinkHoldingTag: removed=%v err=%v", removed, err)
	}

	deleted, err := core.DeleteHolding(holdingID)
	if err != nil || !deleted {
		t.Fatalf("DeleteHolding: deleted=%v err=%v", deleted, err)
	}
}

func TestMobileCoreRejectsBadJSON(t *testing.T) {
	core, cleanup := setupMobileCore(t)
	defer cleanup()

	if _, err := core.UpsertHoldingJSON("{not json"); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
	if _, err := core.GetRecommendationJSON("missing", "abc"); err == nil {
		t.Fatalf("expected error for bad amount")
	}
}

func TestMobileCoreCloseNil(t *testing.T) {
	var core *Core
	if err := core.Close(); err != nil {
		t.Fatalf("expected nil close on nil core, got %v", err)
	}
}
