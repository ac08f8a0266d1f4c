package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundops/internal/domain/records"
)

func TestFromSnapshotOrdersNewestFirst(t *testing.T) {
	d1 := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	snap := &records.Snapshot{
		Evaluations: []records.Evaluation{
			{EmployeeID: "e1", Date: d1, Score: 95, Year: 2023},
			{EmployeeID: "e1", Date: d2, Score: 72, Year: 2024},
			{EmployeeID: "e2", Date: d2, Score: 10},
		},
	}
	data := FromSnapshot(records.Employee{ID: "e1", OverallScore: 80}, snap, d2)

	require.Len(t, data.Evaluations, 2)
	assert.Equal(t, 2024, data.Evaluations[0].Year)
	assert.Equal(t, 72, data.Employee.CurrentScore)
}

func TestEmployeePDF(t *testing.T) {
	hired := time.Date(2018, 3, 4, 0, 0, 0, 0, time.UTC)
	data := Data{
		Employee: records.Employee{ID: "e1", Name: "Zoë Ramos", JobTitle: "Ramp Lead", Department: "Ramp Operations", HireDate: &hired, CurrentScore: 91},
		Evaluations: []records.Evaluation{
			{Year: 2024, Date: hired, Score: 91, Rating: records.RatingExceeds, Summary: "Consistent turnaround times."},
		},
		Leaves: []records.LeaveRecord{
			{Date: hired, Type: records.LeaveVacation, Duration: decimal.RequireFromString("2.5"), Comment: "Summer"},
		},
		Notes:        []records.ManagerNote{{Date: hired, Title: "Safety", Text: "Led the FOD walk.", AuthorName: "Mia"}},
		Observations: []records.Observation{{Date: hired, Status: records.ObservationClosed, Description: "Late once", ActionPlan: "Shift reminder"}},
		GeneratedAt:  hired,
	}

	var buf bytes.Buffer
	require.NoError(t, EmployeePDF(&buf, data))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestEmployeePDFWithNoRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EmployeePDF(&buf, Data{Employee: records.Employee{Name: "New Hire"}, GeneratedAt: time.Now()}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
