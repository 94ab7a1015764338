package rebalance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

// setupTestDB creates a temporary database for testing and returns a Core
// instance. The caller should defer cleanup() to remove the temp file.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "rebalance-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	core, err := Open(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}

	return core, cleanup
}

// testAccount creates a test account with the given ID.
func testAccount(t *testing.T, core *Core, accountID, accountName string) {
	t.Helper()
	_, err := core.AddAccount(Account{
		AccountID:   accountID,
		AccountName: accountName,
	})
	if err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
}

// testHolding creates a holding and returns its id.
func testHolding(t *testing.T, core *Core, symbol string, qty, price float64, accountID string) int64 {
	t.Helper()
	id, err := core.UpsertHolding(UpsertHoldingRequest{
		Market:       "US",
		Symbol:       symbol,
		Quantity:     decimal.NewFromFloat(qty),
		CurrentPrice: decimal.NewFromFloat(price),
		Currency:     "USD",
		AccountID:    accountID,
	})
	if err != nil {
		t.Fatalf("failed to create test holding %s: %v", symbol, err)
	}
	return id
}

// testTag creates a tag and returns it.
func testTag(t *testing.T, core *Core, name string) *Tag {
	t.Helper()
	tag, err := core.AddTag(AddTagRequest{Name: name, Color: "#336699"})
	if err != nil {
		t.Fatalf("failed to create test tag %s: %v", name, err)
	}
	return tag
}

// testGroup creates a rebalancing group over the given tag ids.
func testGroup(t *testing.T, core *Core, name string, tagIDs ...string) *RebalancingGroup {
	t.Helper()
	group, err := core.CreateGroup(CreateGroupRequest{
		Name:         name,
		BaseCurrency: "USD",
		TagIDs:       tagIDs,
	})
	if err != nil {
		t.Fatalf("failed to create test group %s: %v", name, err)
	}
	return group
}

// linkHoldingTag links a holding to a tag, failing the test on error.
func linkHoldingTag(t *testing.T, core *Core, holdingID int64, tagID string) {
	t.Helper()
	if err := core.LinkHoldingTag(holdingID, tagID); err != nil {
		t.Fatalf("failed to link holding %d to tag %s: %v", holdingID, tagID, err)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// assertError fails the test if err is nil.
func assertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error but got nil", msg)
	}
}

// assertErrorCode fails the test if err does not carry the given code.
func assertErrorCode(t *testing.T, err error, code ErrorCode, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error with code %s but got nil", msg, code)
	}
	if !IsErrorCode(err, code) {
		t.Fatalf("%s: expected error code %s, got: %v", msg, code, err)
	}
}

// assertDecimalEquals fails the test if the decimals are not equal.
func assertDecimalEquals(t *testing.T, got decimal.Decimal, want string, msg string) {
	t.Helper()
	wantDec, err := decimal.NewFromString(want)
	if err != nil {
		t.Fatalf("%s: bad expected value %q: %v", msg, want, err)
	}
	if !got.Equal(wantDec) {
		t.Errorf("%s: got %s, want %s", msg, got.String(), want)
	}
}

// floatEquals checks if two floats are approximately equal.
func floatEquals(a, b, epsilon float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}
