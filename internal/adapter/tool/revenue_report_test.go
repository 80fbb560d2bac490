package tool

import (
	"context"
	"encoding/json"
	"testing"
)

func TestRevenueReport(t *testing.T) {
	tool := NewRevenueReportTool(StaticRevenueBackend{Total: 1234.56, Currency: "EUR"}, testLogger())

	res, err := tool.Execute(context.Background(),
		json.RawMessage(`{"from":"2026-08-01","to":"2026-08-31"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("error result: %s", res.Content)
	}

	var report struct {
		Total    float64 `json:"total"`
		Currency string  `json:"currency"`
	}
	if err := json.Unmarshal([]byte(res.Content), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if report.Total != 1234.56 || report.Currency != "EUR" {
		t.Errorf("report = %+v", report)
	}
}

func TestRevenueReportRejectsBadRanges(t *testing.T) {
	tool := NewRevenueReportTool(StaticRevenueBackend{}, testLogger())

	tests := []string{
		`{"from":"yesterday","to":"2026-08-31"}`,
		`{"from":"2026-08-01","to":"soon"}`,
		`{"from":"2026-08-31","to":"2026-08-01"}`,
	}
	for _, params := range tests {
		res, err := tool.Execute(context.Background(), json.RawMessage(params))
		if err != nil {
			t.Fatalf("Execute(%s): %v", params, err)
		}
		if !res.IsError {
			t.Errorf("params %s accepted", params)
		}
	}
}

func TestRevenueReportIsAnalytics(t *testing.T) {
	tool := NewRevenueReportTool(StaticRevenueBackend{}, testLogger())
	if tool.Category() != "analytics" {
		t.Errorf("category = %q, want analytics", tool.Category())
	}
}
