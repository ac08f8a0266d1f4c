package records

import "strings"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

var Roles = []Role{RoleAdmin, RoleManager, RoleEmployee}

type Rating string

const (
	RatingExceeds Rating = "Exceeds"
	RatingMeets   Rating = "Meets"
	RatingBelow   Rating = "Below"
)

var Ratings = []Rating{RatingExceeds, RatingMeets, RatingBelow}

type LeaveType string

const (
	LeaveVacation LeaveType = "vacation"
	LeaveSick     LeaveType = "sick"
	LeaveAbsence  LeaveType = "absence"
)

var LeaveTypes = []LeaveType{LeaveVacation, LeaveSick, LeaveAbsence}

type ObservationStatus string

const (
	ObservationOpen   ObservationStatus = "open"
	ObservationClosed ObservationStatus = "closed"
)

var ObservationStatuses = []ObservationStatus{ObservationOpen, ObservationClosed}

const DefaultScore = 80

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// ParseRole matches case-insensitively and returns the canonical spelling.
func ParseRole(raw string) (Role, bool) {
	return canonical(raw, Roles)
}

func ParseRating(raw string) (Rating, bool) {
	return canonical(raw, Ratings)
}

func ParseLeaveType(raw string) (LeaveType, bool) {
	return canonical(raw, LeaveTypes)
}

func ParseObservationStatus(raw string) (ObservationStatus, bool) {
	return canonical(raw, ObservationStatuses)
}

func canonical[T ~string](raw string, allowed []T) (T, bool) {
	normalized := strings.TrimSpace(raw)
	for _, candidate := range allowed {
		if strings.EqualFold(normalized, string(candidate)) {
			return candidate, true
		}
	}
	var zero T
	return zero, false
}
