package store

import (
	"testing"

	"github.com/lazypower/rote/internal/fsrs"
)

func TestGetOrCreateParamsCreatesDefaults(t *testing.T) {
	db := testDB(t)

	defaults := fsrs.DefaultParams()
	params, err := db.GetOrCreateParams("alice", defaults)
	if err != nil {
		t.Fatalf("GetOrCreateParams: %v", err)
	}
	if params != defaults {
		t.Errorf("params = %+v, want defaults", params)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM scheduler_params").Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestGetOrCreateParamsReturnsStored(t *testing.T) {
	db := testDB(t)

	custom := fsrs.DefaultParams()
	custom.RequestRetention = 0.85
	custom.MaximumInterval = 365
	custom.Weights[0] = 0.5

	if _, err := db.GetOrCreateParams("alice", custom); err != nil {
		t.Fatalf("first GetOrCreateParams: %v", err)
	}

	// Later accesses with different defaults return the stored row.
	got, err := db.GetOrCreateParams("alice", fsrs.DefaultParams())
	if err != nil {
		t.Fatalf("second GetOrCreateParams: %v", err)
	}
	if got != custom {
		t.Errorf("got %+v, want first-created %+v", got, custom)
	}
}

func TestParamsPerUser(t *testing.T) {
	db := testDB(t)

	aliceDefaults := fsrs.DefaultParams()
	aliceDefaults.RequestRetention = 0.8
	if _, err := db.GetOrCreateParams("alice", aliceDefaults); err != nil {
		t.Fatalf("alice params: %v", err)
	}

	bob, err := db.GetOrCreateParams("bob", fsrs.DefaultParams())
	if err != nil {
		t.Fatalf("bob params: %v", err)
	}
	if bob.RequestRetention != 0.9 {
		t.Errorf("bob RequestRetention = %v, want 0.9", bob.RequestRetention)
	}
}
