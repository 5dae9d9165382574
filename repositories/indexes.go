package repositories

import (
	"context"
	"fmt"

	"github.com/steve-kings/project-management-system/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection      = "users"
	WorkspacesCollection = "workspaces"
	ProjectsCollection   = "projects"
	TasksCollection      = "tasks"
)

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
// Creating an index that already exists is a no-op on the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
		WorkspacesCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "members.userId", Value: 1}}},
		},
		ProjectsCollection: {
			{Keys: bson.D{{Key: "workspaceId", Value: 1}}},
		},
		TasksCollection: {
			{Keys: bson.D{{Key: "projectId", Value: 1}}},
		},
	}

	for _, name := range []string{UsersCollection, WorkspacesCollection, ProjectsCollection, TasksCollection} {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes[name]); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	logging.Logger.Info("Event ID: INDEXES_READY, Description: MongoDB indexes ensured")
	return nil
}
