package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectPlanning  ProjectStatus = "PLANNING"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCancelled ProjectStatus = "CANCELLED"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectPlanning, ProjectCompleted, ProjectOnHold, ProjectCancelled:
		return true
	}
	return false
}

type ProjectMember struct {
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
}

type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Priority    Priority           `bson:"priority" json:"priority"`
	Status      ProjectStatus      `bson:"status" json:"status"`
	StartDate   *time.Time         `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate     *time.Time         `bson:"end_date,omitempty" json:"end_date,omitempty"`
	TeamLead    primitive.ObjectID `bson:"team_lead" json:"team_lead"`
	WorkspaceID primitive.ObjectID `bson:"workspaceId" json:"workspaceId"`
	Progress    int                `bson:"progress" json:"progress"`
	Members     []ProjectMember    `bson:"members" json:"members"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ApplyDefaults fills the enum fields a client may omit.
func (p *Project) ApplyDefaults() {
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if p.Status == "" {
		p.Status = ProjectActive
	}
	if p.Members == nil {
		p.Members = []ProjectMember{}
	}
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return required("name")
	}
	if p.WorkspaceID.IsZero() {
		return required("workspaceId")
	}
	if p.TeamLead.IsZero() {
		return required("team_lead")
	}
	if !p.Priority.Valid() {
		return invalidEnum("priority", p.Priority)
	}
	if !p.Status.Valid() {
		return invalidEnum("status", p.Status)
	}
	if p.Progress < 0 || p.Progress > 100 {
		return &FieldError{Field: "progress", Reason: "must be between 0 and 100"}
	}
	return nil
}

// ProjectUpdate lists the fields a client may change on a project.
// The owning workspace cannot be changed.
type ProjectUpdate struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Priority    *Priority             `json:"priority"`
	Status      *ProjectStatus        `json:"status"`
	StartDate   *time.Time            `json:"start_date"`
	EndDate     *time.Time            `json:"end_date"`
	TeamLead    *primitive.ObjectID   `json:"team_lead"`
	Progress    *int                  `json:"progress"`
	Members     *[]primitive.ObjectID `json:"members"`
}

// SetDocument validates the update and returns the $set body.
func (u ProjectUpdate) SetDocument() (bson.M, error) {
	set := bson.M{}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, required("name")
		}
		set["name"] = name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Priority != nil {
		if !u.Priority.Valid() {
			return nil, invalidEnum("priority", *u.Priority)
		}
		set["priority"] = *u.Priority
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return nil, invalidEnum("status", *u.Status)
		}
		set["status"] = *u.Status
	}
	if u.StartDate != nil {
		set["start_date"] = *u.StartDate
	}
	if u.EndDate != nil {
		set["end_date"] = *u.EndDate
	}
	if u.TeamLead != nil {
		if u.TeamLead.IsZero() {
			return nil, required("team_lead")
		}
		set["team_lead"] = *u.TeamLead
	}
	if u.Progress != nil {
		if *u.Progress < 0 || *u.Progress > 100 {
			return nil, &FieldError{Field: "progress", Reason: "must be between 0 and 100"}
		}
		set["progress"] = *u.Progress
	}
	if u.Members != nil {
		set["members"] = MembersFromIDs(*u.Members)
	}
	set["updatedAt"] = time.Now().UTC()
	return set, nil
}

// MembersFromIDs turns a list of user ids into project membership rows.
func MembersFromIDs(ids []primitive.ObjectID) []ProjectMember {
	members := make([]ProjectMember, 0, len(ids))
	for _, id := range ids {
		members = append(members, ProjectMember{UserID: id})
	}
	return members
}
