package models

// Scope selects which reports a listing covers: every report for
// administrators, or the reports of one submitter.
type Scope struct {
	StudentID string
}

var ScopeAll = Scope{}

func ScopeOwn(studentID string) Scope {
	return Scope{StudentID: studentID}
}

func (s Scope) All() bool {
	return s.StudentID == ""
}

// ScopeFor picks the scope a user is allowed to see. It reports false for a
// user without an id, who has no scope at all.
func ScopeFor(u *User) (Scope, bool) {
	if u.IsAdmin() {
		return ScopeAll, true
	}
	if !u.Valid() {
		return Scope{}, false
	}
	return ScopeOwn(u.ID), true
}
