package entity

import "time"

// Officer is an assignment target in the approval chain. Workload is never
// stored here; it is derived by counting active assignment-history rows.
type Officer struct {
	ID              int64     `json:"id"`
	EmployeeCode    string    `json:"employee_code"`
	FullName        string    `json:"full_name"`
	Role            string    `json:"role"`
	Specialization  string    `json:"specialization,omitempty"`
	ExperienceYears int       `json:"experience_years"`
	PriorityRank    int       `json:"priority_rank"`
	SkillScore      int       `json:"skill_score"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
