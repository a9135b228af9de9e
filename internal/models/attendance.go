package models

// ClassGroup identifies a class with active enrollments subject to the
// attendance warning sweep.
type ClassGroup struct {
	ClassID   string `db:"class_id" json:"class_id"`
	ClassName string `db:"class_name" json:"class_name"`
}

// StudentAbsence summarises absence counts for one enrolled student in a class.
type StudentAbsence struct {
	StudentID    string  `db:"student_id" json:"student_id"`
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail *string `db:"student_email" json:"student_email,omitempty"`
	AbsentCount  int     `db:"absent_count" json:"absent_count"`
}
