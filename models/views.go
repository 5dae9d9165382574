package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserLookup resolves user references when building populated views.
// Unknown ids populate as null, the same way a dangling reference would.
type UserLookup map[primitive.ObjectID]UserSummary

func (l UserLookup) Get(id primitive.ObjectID) *UserSummary {
	if s, ok := l[id]; ok {
		return &s
	}
	return nil
}

// NewUserLookup indexes users by id.
func NewUserLookup(users []User) UserLookup {
	lookup := make(UserLookup, len(users))
	for i := range users {
		lookup[users[i].ID] = users[i].Summary()
	}
	return lookup
}

type CommentView struct {
	ID        primitive.ObjectID `json:"id"`
	User      *UserSummary       `json:"userId"`
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"createdAt"`
}

// TaskView is a task with its assignee and comment authors populated.
type TaskView struct {
	ID          primitive.ObjectID `json:"id"`
	ProjectID   primitive.ObjectID `json:"projectId"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      TaskStatus         `json:"status"`
	Type        TaskType           `json:"type"`
	Priority    Priority           `json:"priority"`
	Assignee    *UserSummary       `json:"assigneeId"`
	StartDate   *time.Time         `json:"start_date,omitempty"`
	DueDate     *time.Time         `json:"due_date,omitempty"`
	Comments    []CommentView      `json:"comments"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type ProjectMemberView struct {
	User *UserSummary `json:"userId"`
}

type ProjectView struct {
	ID          primitive.ObjectID  `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Priority    Priority            `json:"priority"`
	Status      ProjectStatus       `json:"status"`
	StartDate   *time.Time          `json:"start_date,omitempty"`
	EndDate     *time.Time          `json:"end_date,omitempty"`
	TeamLead    *UserSummary        `json:"team_lead"`
	WorkspaceID primitive.ObjectID  `json:"workspaceId"`
	Progress    int                 `json:"progress"`
	Members     []ProjectMemberView `json:"members"`
	Tasks       []TaskView          `json:"tasks"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type WorkspaceMemberView struct {
	User    *UserSummary `json:"userId"`
	Role    Role         `json:"role"`
	Message string       `json:"message"`
}

type WorkspaceView struct {
	ID          primitive.ObjectID     `json:"id"`
	Name        string                 `json:"name"`
	Slug        string                 `json:"slug"`
	Description string                 `json:"description"`
	Settings    map[string]interface{} `json:"settings"`
	Owner       *UserSummary           `json:"ownerId"`
	ImageURL    string                 `json:"image_url"`
	Members     []WorkspaceMemberView  `json:"members"`
	Projects    []ProjectView          `json:"projects"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// UserIDs lists every user referenced by the task.
func (t *Task) UserIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(t.Comments)+1)
	if t.AssigneeID != nil {
		ids = append(ids, *t.AssigneeID)
	}
	for _, c := range t.Comments {
		ids = append(ids, c.UserID)
	}
	return ids
}

func (p *Project) UserIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(p.Members)+1)
	ids = append(ids, p.TeamLead)
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func (w *Workspace) UserIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(w.Members)+1)
	ids = append(ids, w.OwnerID)
	for _, m := range w.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func NewTaskView(t *Task, users UserLookup) TaskView {
	v := TaskView{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Type:        t.Type,
		Priority:    t.Priority,
		StartDate:   t.StartDate,
		DueDate:     t.DueDate,
		Comments:    make([]CommentView, 0, len(t.Comments)),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssigneeID != nil {
		v.Assignee = users.Get(*t.AssigneeID)
	}
	for _, c := range t.Comments {
		v.Comments = append(v.Comments, CommentView{
			ID:        c.ID,
			User:      users.Get(c.UserID),
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
		})
	}
	return v
}

func NewProjectView(p *Project, users UserLookup, tasks []TaskView) ProjectView {
	if tasks == nil {
		tasks = []TaskView{}
	}
	v := ProjectView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Priority:    p.Priority,
		Status:      p.Status,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		TeamLead:    users.Get(p.TeamLead),
		WorkspaceID: p.WorkspaceID,
		Progress:    p.Progress,
		Members:     make([]ProjectMemberView, 0, len(p.Members)),
		Tasks:       tasks,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, m := range p.Members {
		v.Members = append(v.Members, ProjectMemberView{User: users.Get(m.UserID)})
	}
	return v
}

func NewWorkspaceView(w *Workspace, users UserLookup, projects []ProjectView) WorkspaceView {
	if projects == nil {
		projects = []ProjectView{}
	}
	settings := w.Settings
	if settings == nil {
		settings = map[string]interface{}{}
	}
	v := WorkspaceView{
		ID:          w.ID,
		Name:        w.Name,
		Slug:        w.Slug,
		Description: w.Description,
		Settings:    settings,
		Owner:       users.Get(w.OwnerID),
		ImageURL:    w.ImageURL,
		Members:     make([]WorkspaceMemberView, 0, len(w.Members)),
		Projects:    projects,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	for _, m := range w.Members {
		v.Members = append(v.Members, WorkspaceMemberView{
			User:    users.Get(m.UserID),
			Role:    m.Role,
			Message: m.Message,
		})
	}
	return v
}
