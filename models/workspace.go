package models

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type WorkspaceMember struct {
	UserID  primitive.ObjectID `bson:"userId" json:"userId"`
	Role    Role               `bson:"role" json:"role"`
	Message string             `bson:"message" json:"message"`
}

// Workspace is the top-level tenant. The owner holds full authority whether
// or not it also appears in Members.
type Workspace struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Name        string                 `bson:"name" json:"name"`
	Slug        string                 `bson:"slug" json:"slug"`
	Description string                 `bson:"description" json:"description"`
	Settings    map[string]interface{} `bson:"settings" json:"settings"`
	OwnerID     primitive.ObjectID     `bson:"ownerId" json:"ownerId"`
	ImageURL    string                 `bson:"image_url" json:"image_url"`
	Members     []WorkspaceMember      `bson:"members" json:"members"`
	CreatedAt   time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time              `bson:"updatedAt" json:"updatedAt"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify lowercases a workspace name and replaces whitespace runs with a hyphen.
func Slugify(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// Member returns the membership row for userID, if any.
func (w *Workspace) Member(userID primitive.ObjectID) (*WorkspaceMember, bool) {
	for i := range w.Members {
		if w.Members[i].UserID == userID {
			return &w.Members[i], true
		}
	}
	return nil, false
}

// IsMember reports whether userID may act inside the workspace at all.
func (w *Workspace) IsMember(userID primitive.ObjectID) bool {
	if w.OwnerID == userID {
		return true
	}
	_, ok := w.Member(userID)
	return ok
}

// HasAdminRights is true for the owner and for members holding the ADMIN role.
func HasAdminRights(userID primitive.ObjectID, w *Workspace) bool {
	if w == nil {
		return false
	}
	if w.OwnerID == userID {
		return true
	}
	m, ok := w.Member(userID)
	return ok && m.Role == RoleAdmin
}

// NewWorkspace builds a workspace owned by ownerID, who also becomes its first ADMIN.
func NewWorkspace(name, description, imageURL string, ownerID primitive.ObjectID) (*Workspace, error) {
	name, err := displayName("name", name)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Workspace{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Slug:        Slugify(name),
		Description: description,
		Settings:    map[string]interface{}{},
		OwnerID:     ownerID,
		ImageURL:    imageURL,
		Members:     []WorkspaceMember{{UserID: ownerID, Role: RoleAdmin}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// WorkspaceUpdate lists the fields a client may change on a workspace.
type WorkspaceUpdate struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	ImageURL    *string                `json:"image_url"`
	Settings    map[string]interface{} `json:"settings"`
}

// SetDocument validates the update and returns the $set body.
func (u WorkspaceUpdate) SetDocument() (bson.M, error) {
	set := bson.M{}
	if u.Name != nil {
		name, err := displayName("name", *u.Name)
		if err != nil {
			return nil, err
		}
		set["name"] = name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.ImageURL != nil {
		set["image_url"] = *u.ImageURL
	}
	if u.Settings != nil {
		set["settings"] = u.Settings
	}
	set["updatedAt"] = time.Now().UTC()
	return set, nil
}
