package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Department is an organisational unit. DeptCode is "D" followed by four digits.
type Department struct {
	bun.BaseModel `bun:"table:departments,alias:d"`

	DeptCode string `bun:"deptcode,pk" json:"deptcode"`
	DeptName string `bun:"deptname,notnull" json:"deptname"`
	Location string `bun:"location" json:"location"`

	// Populated only by listings that join employee counts.
	EmployeeCount int `bun:"employee_count,scanonly" json:"employee_count"`
}

// Job is a job code with its description.
type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	JobCode string `bun:"jobcode,pk" json:"jobcode"`
	JobDesc string `bun:"jobdesc,notnull" json:"jobdesc"`
}

// Employee is a staff record. EmpNo is allocated as max(empno)+1.
type Employee struct {
	bun.BaseModel `bun:"table:employees,alias:e"`

	EmpNo     int64      `bun:"empno,pk" json:"empno"`
	FirstName string     `bun:"firstname,notnull" json:"firstname"`
	LastName  string     `bun:"lastname,notnull" json:"lastname"`
	Gender    string     `bun:"gender" json:"gender"`
	BirthDate *time.Time `bun:"birthdate" json:"birthdate,omitempty"`
	HireDate  time.Time  `bun:"hiredate,notnull" json:"hiredate"`
	SepDate   *time.Time `bun:"sepdate" json:"sepdate,omitempty"`
}

// Active reports whether the employee has not separated as of now.
func (e *Employee) Active(now time.Time) bool {
	return e.SepDate == nil || e.SepDate.After(now)
}

// JobHistory is one entry of an employee's job timeline.
type JobHistory struct {
	bun.BaseModel `bun:"table:job_history,alias:jh"`

	ID       string    `bun:"id,pk,type:uuid" json:"id"`
	EmpNo    int64     `bun:"empno,notnull" json:"empno"`
	JobCode  string    `bun:"jobcode,notnull" json:"jobcode"`
	DeptCode string    `bun:"deptcode,notnull" json:"deptcode"`
	EffDate  time.Time `bun:"effdate,notnull" json:"effdate"`
	Salary   float64   `bun:"salary,notnull,type:double precision" json:"salary"`
}
