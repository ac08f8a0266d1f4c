package insight

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"groundops/internal/domain/metrics"
	"groundops/internal/domain/records"
)

// Bundle is the per-employee data sent to the generator.
type Bundle struct {
	EmployeeID      string                `json:"-"`
	Name            string                `json:"name"`
	Role            string                `json:"role"`
	CurrentScore    int                   `json:"currentScore"`
	WorkIssues      []records.ManagerNote `json:"workIssues"`
	Attendance      []records.LeaveRecord `json:"attendance"`
	BehaviourIssues []records.Observation `json:"behaviourIssues"`
}

// BuildBundle collects the employee's records from snap. Role carries the job
// title, which is what the narrative should talk about.
func BuildBundle(emp records.Employee, snap *records.Snapshot) Bundle {
	role := emp.JobTitle
	if role == "" {
		role = string(emp.Role)
	}
	b := Bundle{
		EmployeeID:      emp.ID,
		Name:            emp.Name,
		Role:            role,
		CurrentScore:    metrics.LatestScore(emp.ID, snap.Evaluations, emp.OverallScore),
		WorkIssues:      snap.NotesFor(emp.ID),
		Attendance:      snap.LeavesFor(emp.ID),
		BehaviourIssues: snap.ObservationsFor(emp.ID),
	}
	if b.WorkIssues == nil {
		b.WorkIssues = []records.ManagerNote{}
	}
	if b.Attendance == nil {
		b.Attendance = []records.LeaveRecord{}
	}
	if b.BehaviourIssues == nil {
		b.BehaviourIssues = []records.Observation{}
	}
	return b
}

// Fingerprint changes whenever any field of the bundle changes.
func (b Bundle) Fingerprint() string {
	raw, _ := json.Marshal(b)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
