package services

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/realtime"
	"github.com/steve-kings/project-management-system/utils"
)

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID, image string) (*models.User, error)
}

type WorkspaceStore interface {
	Create(ctx context.Context, ws *models.Workspace) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Workspace, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Workspace, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Workspace, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddMember(ctx context.Context, id primitive.ObjectID, member models.WorkspaceMember) error
}

type ProjectStore interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error)
	ListByWorkspaces(ctx context.Context, workspaceIDs []primitive.ObjectID) ([]models.Project, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Project, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Task, error)
	ListByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]models.Task, error)
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Task, error)
	AddComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) (*models.Task, error)
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error)
	DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID string, id gocql.UUID, createdAt time.Time) error
}

// Publisher fans an event out to a workspace room.
type Publisher interface {
	Publish(workspaceID string, kind realtime.EventKind, payload interface{}) int
}

type InvitationSender interface {
	SendInvitation(ctx context.Context, inv utils.Invitation) error
}

type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*utils.GoogleIdentity, error)
}

type SessionTokens interface {
	GenerateToken(userID string) (string, error)
	ValidateToken(token string) (*utils.Claims, error)
}

func parseID(raw, entity string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, newError(ErrValidation, "Invalid %s id", entity)
	}
	return id, nil
}
