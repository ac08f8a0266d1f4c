package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"groundops/internal/domain/metrics"
	"groundops/internal/domain/records"
)

const dateLayout = "2006-01-02"

// Data is everything printed on an employee report.
type Data struct {
	Employee     records.Employee
	Evaluations  []records.Evaluation
	Leaves       []records.LeaveRecord
	Notes        []records.ManagerNote
	Observations []records.Observation
	GeneratedAt  time.Time
}

// FromSnapshot gathers the employee's records, newest first.
func FromSnapshot(emp records.Employee, snap *records.Snapshot, now time.Time) Data {
	emp.CurrentScore = metrics.LatestScore(emp.ID, snap.Evaluations, emp.OverallScore)
	d := Data{
		Employee:     emp,
		Evaluations:  snap.EvaluationsFor(emp.ID),
		Leaves:       snap.LeavesFor(emp.ID),
		Notes:        snap.NotesFor(emp.ID),
		Observations: snap.ObservationsFor(emp.ID),
		GeneratedAt:  now,
	}
	sort.SliceStable(d.Evaluations, func(i, j int) bool { return d.Evaluations[i].Date.After(d.Evaluations[j].Date) })
	sort.SliceStable(d.Leaves, func(i, j int) bool { return d.Leaves[i].Date.After(d.Leaves[j].Date) })
	sort.SliceStable(d.Notes, func(i, j int) bool { return d.Notes[i].Date.After(d.Notes[j].Date) })
	sort.SliceStable(d.Observations, func(i, j int) bool { return d.Observations[i].Date.After(d.Observations[j].Date) })
	return d
}

// EmployeePDF renders the A4 employee report to w.
func EmployeePDF(w io.Writer, data Data) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Employee report: "+data.Employee.Name, true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	emp := data.Employee
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(emp.Name))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s  |  %s", emp.JobTitle, emp.Department)))
	pdf.Ln(6)
	hired := "-"
	if emp.HireDate != nil {
		hired = emp.HireDate.Format(dateLayout)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Hired: %s    Current score: %d (%s)", hired, emp.CurrentScore, metrics.Band(emp.CurrentScore)))
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 5, "Generated "+data.GeneratedAt.UTC().Format(time.RFC1123))
	pdf.Ln(9)

	section(pdf, "Evaluations")
	if len(data.Evaluations) == 0 {
		empty(pdf)
	}
	for _, ev := range data.Evaluations {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("%d  -  %s  -  score %d  -  %s", ev.Year, ev.Rating, ev.Score, ev.Date.Format(dateLayout)))
		pdf.Ln(6)
		if ev.Summary != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(ev.Summary), "", "L", false)
		}
		pdf.Ln(1)
	}

	section(pdf, "Attendance registry")
	totals := metrics.LeaveTotals(data.Leaves, 0)
	pdf.SetFont("Helvetica", "", 10)
	for _, t := range records.LeaveTypes {
		pdf.Cell(60, 6, fmt.Sprintf("%s: %s days", t, totals[t].StringFixed(1)))
	}
	pdf.Ln(7)
	for _, l := range data.Leaves {
		line := fmt.Sprintf("%s  %-8s  %s days", l.Date.Format(dateLayout), l.Type, l.Duration.StringFixed(1))
		if l.Comment != "" {
			line += "  " + l.Comment
		}
		pdf.Cell(0, 5, tr(line))
		pdf.Ln(5)
	}

	section(pdf, "Manager notes")
	if len(data.Notes) == 0 {
		empty(pdf)
	}
	for _, n := range data.Notes {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s  %s  (%s)", n.Date.Format(dateLayout), n.Title, n.AuthorName)))
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(n.Text), "", "L", false)
		pdf.Ln(1)
	}

	section(pdf, "Observations")
	if len(data.Observations) == 0 {
		empty(pdf)
	}
	for _, o := range data.Observations {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("%s  [%s]", o.Date.Format(dateLayout), o.Status))
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(o.Description), "", "L", false)
		if o.ActionPlan != "" {
			pdf.MultiCell(0, 5, tr("Action plan: "+o.ActionPlan), "", "L", false)
		}
		pdf.Ln(1)
	}

	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(0, 8, title, "", 1, "L", true, 0, "")
	pdf.Ln(2)
}

func empty(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, "No records.")
	pdf.Ln(6)
}
