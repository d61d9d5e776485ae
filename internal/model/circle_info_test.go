package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCircleInfoJSONNilNumbers(t *testing.T) {
	ts := int64(1700000000)
	info := CircleInfo{
		Name:          "family",
		Members:       map[string]string{"0x1111111111111111111111111111111111111111": "100"},
		DepositAmount: "1000000000000000000",
		Timestamp:     &ts,
		CurrentIndex:  nil,
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded["current_index"] != nil {
		t.Fatalf("current_index should be null, got %v", decoded["current_index"])
	}
	if _, ok := decoded["timestamp"].(float64); !ok {
		t.Fatalf("timestamp should be a number")
	}
	members, ok := decoded["members"].(map[string]interface{})
	if !ok {
		t.Fatalf("members should be an object")
	}
	if _, ok := members["0x1111111111111111111111111111111111111111"].(string); !ok {
		t.Fatalf("member balance should be string")
	}
}

func TestSnapshotsFromCircles(t *testing.T) {
	idx := int64(1)
	takenAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("x", 3600))
	circles := []CircleInfo{
		{Name: "a", CircleHash: "0x01", CurrentIndex: &idx, TotalBalance: "1.5"},
		{Name: "b", CircleHash: "0x02"},
	}

	got := SnapshotsFromCircles("0xabc", circles, takenAt)
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].Account != "0xabc" || got[0].CircleHash != "0x01" || *got[0].CurrentIndex != 1 {
		t.Fatalf("snapshot mismatch: %+v", got[0])
	}
	if got[1].TakenAt.Location() != time.UTC {
		t.Fatalf("taken_at should be UTC")
	}
}
