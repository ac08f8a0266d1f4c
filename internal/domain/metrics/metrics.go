package metrics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"groundops/internal/domain/access"
	"groundops/internal/domain/records"
)

const (
	ExceedsThreshold = 90
	MeetsThreshold   = 75
)

type Breakdown struct {
	Exceeds int `json:"exceeds"`
	Meets   int `json:"meets"`
	Below   int `json:"below"`
}

func (b Breakdown) Total() int {
	return b.Exceeds + b.Meets + b.Below
}

type DepartmentCount struct {
	Department string `json:"department"`
	Count      int    `json:"count"`
}

type TeamSummary struct {
	Department       string `json:"department"`
	AvgScore         int    `json:"avgScore"`
	TeamSize         int    `json:"teamSize"`
	OpenObservations int    `json:"openObservations"`
}

type DashboardStats struct {
	TotalEmployees         int               `json:"totalEmployees"`
	PerformanceBreakdown   Breakdown         `json:"performanceBreakdown"`
	DepartmentDistribution []DepartmentCount `json:"departmentDistribution"`
	TeamStats              *TeamSummary      `json:"teamStats,omitempty"`
}

// Band maps a score to its performance band.
func Band(score int) records.Rating {
	switch {
	case score >= ExceedsThreshold:
		return records.RatingExceeds
	case score >= MeetsThreshold:
		return records.RatingMeets
	default:
		return records.RatingBelow
	}
}

func PerformanceBreakdown(employees []records.Employee) Breakdown {
	var b Breakdown
	for _, e := range employees {
		switch Band(e.CurrentScore) {
		case records.RatingExceeds:
			b.Exceeds++
		case records.RatingMeets:
			b.Meets++
		default:
			b.Below++
		}
	}
	return b
}

// DepartmentDistribution counts employees per known department, in the
// order departments are listed. Departments without employees are omitted.
func DepartmentDistribution(employees []records.Employee, departments []records.Department) []DepartmentCount {
	counts := make(map[string]int, len(departments))
	for _, e := range employees {
		counts[e.Department]++
	}
	out := []DepartmentCount{}
	seen := make(map[string]bool, len(departments))
	for _, d := range departments {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		if n := counts[d.Name]; n > 0 {
			out = append(out, DepartmentCount{Department: d.Name, Count: n})
		}
	}
	return out
}

// TeamStats is only defined for managers; every other role gets nil.
func TeamStats(actor access.Actor, employees []records.Employee, observations []records.Observation) *TeamSummary {
	if actor.Role != records.RoleManager {
		return nil
	}
	stats := &TeamSummary{Department: actor.Department}
	team := make(map[string]bool)
	total := 0
	for _, e := range employees {
		if e.Department != actor.Department {
			continue
		}
		team[e.ID] = true
		total += e.CurrentScore
		stats.TeamSize++
	}
	if stats.TeamSize > 0 {
		stats.AvgScore = int(math.Round(float64(total) / float64(stats.TeamSize)))
	}
	for _, o := range observations {
		if team[o.EmployeeID] && o.Status == records.ObservationOpen {
			stats.OpenObservations++
		}
	}
	return stats
}

// LatestScore returns the score of the employee's evaluation with the latest
// date, or fallback when there is none. Which evaluation wins a date tie is
// unspecified.
func LatestScore(employeeID string, evaluations []records.Evaluation, fallback int) int {
	var (
		latest time.Time
		score  = fallback
		found  bool
	)
	for _, ev := range evaluations {
		if ev.EmployeeID != employeeID {
			continue
		}
		if !found || ev.Date.After(latest) {
			latest = ev.Date
			score = ev.Score
			found = true
		}
	}
	return score
}

// ApplyCurrentScores returns copies of employees with CurrentScore derived
// from their latest evaluation, falling back to the stored OverallScore.
func ApplyCurrentScores(employees []records.Employee, evaluations []records.Evaluation) []records.Employee {
	type latest struct {
		date  time.Time
		score int
	}
	byEmployee := make(map[string]latest, len(employees))
	for _, ev := range evaluations {
		cur, ok := byEmployee[ev.EmployeeID]
		if !ok || ev.Date.After(cur.date) {
			byEmployee[ev.EmployeeID] = latest{date: ev.Date, score: ev.Score}
		}
	}
	out := make([]records.Employee, len(employees))
	for i, e := range employees {
		e.CurrentScore = e.OverallScore
		if l, ok := byEmployee[e.ID]; ok {
			e.CurrentScore = l.score
		}
		out[i] = e
	}
	return out
}

// LeaveTotals sums leave durations per type. A non-zero year restricts the
// sum to leave taken in that calendar year.
func LeaveTotals(leaves []records.LeaveRecord, year int) map[records.LeaveType]decimal.Decimal {
	totals := make(map[records.LeaveType]decimal.Decimal, len(records.LeaveTypes))
	for _, t := range records.LeaveTypes {
		totals[t] = decimal.Zero
	}
	for _, l := range leaves {
		if year != 0 && l.Date.Year() != year {
			continue
		}
		totals[l.Type] = totals[l.Type].Add(l.Duration)
	}
	return totals
}

// Dashboard computes the summary over the employees visible to the actor.
func Dashboard(actor access.Actor, snap *records.Snapshot) (DashboardStats, error) {
	scored := ApplyCurrentScores(snap.Employees, snap.Evaluations)
	visible, err := access.Visible(actor, scored)
	if err != nil {
		return DashboardStats{DepartmentDistribution: []DepartmentCount{}}, err
	}
	return DashboardStats{
		TotalEmployees:         len(visible),
		PerformanceBreakdown:   PerformanceBreakdown(visible),
		DepartmentDistribution: DepartmentDistribution(visible, snap.Departments),
		TeamStats:              TeamStats(actor, visible, snap.Observations),
	}, nil
}
