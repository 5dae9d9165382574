package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus transitions are unrestricted in every direction.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type TaskType string

const (
	TypeTask        TaskType = "TASK"
	TypeBug         TaskType = "BUG"
	TypeFeature     TaskType = "FEATURE"
	TypeImprovement TaskType = "IMPROVEMENT"
	TypeOther       TaskType = "OTHER"
)

func (t TaskType) Valid() bool {
	switch t {
	case TypeTask, TypeBug, TypeFeature, TypeImprovement, TypeOther:
		return true
	}
	return false
}

// Comment is append-only.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Task belongs to a project; its workspace is only reachable through the project.
type Task struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProjectID   primitive.ObjectID  `bson:"projectId" json:"projectId"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description" json:"description"`
	Status      TaskStatus          `bson:"status" json:"status"`
	Type        TaskType            `bson:"type" json:"type"`
	Priority    Priority            `bson:"priority" json:"priority"`
	AssigneeID  *primitive.ObjectID `bson:"assigneeId,omitempty" json:"assigneeId,omitempty"`
	StartDate   *time.Time          `bson:"start_date,omitempty" json:"start_date,omitempty"`
	DueDate     *time.Time          `bson:"due_date,omitempty" json:"due_date,omitempty"`
	Comments    []Comment           `bson:"comments" json:"comments"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Type == "" {
		t.Type = TypeTask
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Comments == nil {
		t.Comments = []Comment{}
	}
}

func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return required("title")
	}
	if t.ProjectID.IsZero() {
		return required("projectId")
	}
	if !t.Status.Valid() {
		return invalidEnum("status", t.Status)
	}
	if !t.Type.Valid() {
		return invalidEnum("type", t.Type)
	}
	if !t.Priority.Valid() {
		return invalidEnum("priority", t.Priority)
	}
	return nil
}

// NewComment builds a comment authored by userID.
func NewComment(userID primitive.ObjectID, content string) (Comment, error) {
	if strings.TrimSpace(content) == "" {
		return Comment{}, required("content")
	}
	return Comment{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// TaskUpdate lists the fields a client may change on a task. Moving a task
// to another project is not possible through an update.
type TaskUpdate struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Status      *TaskStatus         `json:"status"`
	Type        *TaskType           `json:"type"`
	Priority    *Priority           `json:"priority"`
	AssigneeID  *primitive.ObjectID `json:"assigneeId"`
	StartDate   *time.Time          `json:"start_date"`
	DueDate     *time.Time          `json:"due_date"`
}

// UpdateDocument validates the update and returns the full update document.
// A zero assignee id clears the assignment.
func (u TaskUpdate) UpdateDocument() (bson.M, error) {
	set := bson.M{}
	unset := bson.M{}
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return nil, required("title")
		}
		set["title"] = title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return nil, invalidEnum("status", *u.Status)
		}
		set["status"] = *u.Status
	}
	if u.Type != nil {
		if !u.Type.Valid() {
			return nil, invalidEnum("type", *u.Type)
		}
		set["type"] = *u.Type
	}
	if u.Priority != nil {
		if !u.Priority.Valid() {
			return nil, invalidEnum("priority", *u.Priority)
		}
		set["priority"] = *u.Priority
	}
	if u.AssigneeID != nil {
		if u.AssigneeID.IsZero() {
			unset["assigneeId"] = ""
		} else {
			set["assigneeId"] = *u.AssigneeID
		}
	}
	if u.StartDate != nil {
		set["start_date"] = *u.StartDate
	}
	if u.DueDate != nil {
		set["due_date"] = *u.DueDate
	}
	set["updatedAt"] = time.Now().UTC()

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	return doc, nil
}
