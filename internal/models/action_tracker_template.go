package models

import "time"

type ActionTrackerTemplate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Role        Role      `gorm:"not null;index" json:"role"`
	Title       string    `gorm:"not null" json:"title"`
	Description *string   `json:"description,omitempty"`
	Items       []string  `gorm:"serializer:json;not null" json:"items"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	IsBuiltin   bool      `gorm:"not null;default:false" json:"is_builtin"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

func (template ActionTrackerTemplate) Clone() ActionTrackerTemplate {
	clone := template
	clone.Description = cloneString(template.Description)
	clone.Items = cloneStrings(template.Items)
	return clone
}

type BuiltinTemplate struct {
	Role        Role
	Title       string
	Description string
	Items       []string
}

func DefaultBuiltinTemplates() []BuiltinTemplate {
	return []BuiltinTemplate{
		{
			Role:        RoleCOS,
			Title:       "COS daily checklist",
			Description: "Daily operating rhythm for the chief of staff of a center.",
			Items: []string{
				"Review attendance and staffing for the day",
				"Check open escalations from the previous day",
				"Confirm classroom and lab readiness",
				"Sync with program managers on today's priorities",
				"Update the center status report",
				"Close the day with pending actions logged",
			},
		},
		{
			Role:        RolePM,
			Title:       "PM daily checklist",
			Description: "Daily delivery checklist for program managers.",
			Items: []string{
				"Review the session plan for the day",
				"Verify trainer and mentor availability",
				"Track learner attendance and follow up on absentees",
				"Log blockers and raise escalations",
				"Share the end-of-day update with the COS",
			},
		},
	}
}
