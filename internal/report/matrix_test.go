package report

import (
	"reflect"
	"testing"
	"time"

	"github.com/core-analytics/retention-etl/internal/dataset"
	"github.com/core-analytics/retention-etl/internal/models"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func fixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Build(
		[]models.PaymentEvent{
			{UserID: "spender", Date: day(t, "2024-03-13"), Region: models.RegionCIS},
			{UserID: "spender", Date: day(t, "2024-03-19"), Region: models.RegionCIS},
		},
		[]models.LoginEvent{
			{UserID: "newbie", AccountCreated: day(t, "2024-03-12"), Date: day(t, "2024-03-13"), Region: models.RegionCIS},
			{UserID: "spender", AccountCreated: day(t, "2024-01-01"), Date: day(t, "2024-03-13"), Region: models.RegionCIS},
		},
	)
	if err != nil {
		t.Fatalf("failed to build dataset: %v", err)
	}
	return ds
}

func TestBuildMatrixShape(t *testing.T) {
	ds := fixture(t)
	rows := BuildMatrix(ds, day(t, "2024-03-15"), models.RegionCIS)

	if len(rows) != len(models.MatrixStates) {
		t.Fatalf("matrix has %d rows, want %d", len(rows), len(models.MatrixStates))
	}

	for i, row := range rows {
		if row.SourceState != models.MatrixStates[i] {
			t.Errorf("row %d source = %s, want %s", i, row.SourceState, models.MatrixStates[i])
		}
		if row.Region != models.RegionCIS {
			t.Errorf("row %d region = %s", i, row.Region)
		}
		if !row.DateState.Equal(day(t, "2024-03-15")) {
			t.Errorf("row %d date = %v", i, row.DateState)
		}
	}
}

func TestBuildMatrixDestinationColumns(t *testing.T) {
	ds := fixture(t)
	rows := BuildMatrix(ds, day(t, "2024-03-15"), models.RegionCIS)

	byState := make(map[models.State]models.MatrixRow, len(rows))
	for _, row := range rows {
		byState[row.SourceState] = row
	}

	// new_ns has a population (newbie), so its non-spender destinations
	// must be populated and its spender destinations empty.
	newNS := byState[models.StateNewNonSpender]
	if newNS.ActiveNS == nil || newNS.ChurnNS == nil || newNS.NewSpenders == nil || newNS.ActiveSpenders == nil {
		t.Error("new_ns row is missing non-spender destination values")
	}
	if newNS.ChurnSpenders != nil || newNS.ActiveUsers != nil {
		t.Error("new_ns row must not carry spender destination values")
	}

	// new_spenders has a population (spender, first payment this week).
	newSp := byState[models.StateNewSpenders]
	if newSp.ChurnSpenders == nil || newSp.ActiveUsers == nil || newSp.ActiveSpenders == nil {
		t.Error("new_spenders row is missing spender destination values")
	}
	if newSp.ActiveNS != nil || newSp.ChurnNS != nil || newSp.NewSpenders != nil {
		t.Error("new_spenders row must not carry non-spender destination values")
	}

	// churn_ns is empty in this fixture; every destination stays nil.
	churnNS := byState[models.StateChurnNonSpender]
	if churnNS.ActiveNS != nil || churnNS.ChurnNS != nil || churnNS.NewSpenders != nil || churnNS.ActiveSpenders != nil {
		t.Error("empty churn_ns population must yield nil percentages")
	}
}

func TestBuildMatrixDeterministic(t *testing.T) {
	ds := fixture(t)
	date := day(t, "2024-03-15")

	first := BuildMatrix(ds, date, models.RegionCIS)
	second := BuildMatrix(ds, date, models.RegionCIS)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("matrix output differs between identical runs")
	}
}

func TestBuildMatrixEmptyRegion(t *testing.T) {
	ds := fixture(t)
	rows := BuildMatrix(ds, day(t, "2024-03-15"), models.RegionLatam)

	if len(rows) != len(models.MatrixStates) {
		t.Fatalf("matrix has %d rows, want %d", len(rows), len(models.MatrixStates))
	}
	for _, row := range rows {
		if row.ActiveNS != nil || row.ChurnNS != nil || row.NewSpenders != nil ||
			row.ActiveSpenders != nil || row.ChurnSpenders != nil || row.ActiveUsers != nil {
			t.Errorf("row %s: expected all-nil percentages for an empty region", row.SourceState)
		}
	}
}
