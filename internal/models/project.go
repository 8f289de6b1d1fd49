package models

import "time"

// Project is owned by a manager and shared with a team of members.
type Project struct {
	ID          string    `json:"_id" bson:"_id"`
	ProjectName string    `json:"projectName" bson:"projectName"`
	ClientName  string    `json:"clientName" bson:"clientName"`
	Description string    `json:"description" bson:"description"`
	Manager     string    `json:"manager" bson:"manager"`
	Team        []string  `json:"team" bson:"team"`
	Tasks       []string  `json:"tasks" bson:"tasks"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsManager reports whether userID manages the project.
func (p Project) IsManager(userID string) bool {
	return p.Manager == userID
}

// HasMember reports whether userID belongs to the project's team.
func (p Project) HasMember(userID string) bool {
	for _, id := range p.Team {
		if id == userID {
			return true
		}
	}
	return false
}

// CanRead reports whether userID may see the project.
func (p Project) CanRead(userID string) bool {
	return p.IsManager(userID) || p.HasMember(userID)
}

// ProjectSummary is the projection embedded in task listings.
type ProjectSummary struct {
	ID          string `json:"_id"`
	ProjectName string `json:"projectName"`
	ClientName  string `json:"clientName"`
	Description string `json:"description"`
	Manager     string `json:"manager"`
}

// Summary returns the projection of the project used in task listings.
func (p Project) Summary() ProjectSummary {
	return ProjectSummary{
		ID:          p.ID,
		ProjectName: p.ProjectName,
		ClientName:  p.ClientName,
		Description: p.Description,
		Manager:     p.Manager,
	}
}

// ProjectDetail is a project with its task list populated.
type ProjectDetail struct {
	Project
	Tasks []Task `json:"tasks"`
}
