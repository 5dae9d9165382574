package repositories

import (
	"context"
	"fmt"

	"github.com/steve-kings/project-management-system/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type WorkspaceRepo struct {
	collection *mongo.Collection
}

func NewWorkspaceRepo(collection *mongo.Collection) *WorkspaceRepo {
	return &WorkspaceRepo{collection: collection}
}

// Create inserts the workspace. A taken slug yields ErrDuplicate.
func (r *WorkspaceRepo) Create(ctx context.Context, ws *models.Workspace) error {
	if _, err := r.collection.InsertOne(ctx, ws); err != nil {
		return translate(err)
	}
	return nil
}

func (r *WorkspaceRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ws); err != nil {
		return nil, translate(err)
	}
	return &ws, nil
}

// ListForUser returns every workspace the user owns or belongs to.
func (r *WorkspaceRepo) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Workspace, error) {
	filter := bson.M{"$or": []bson.M{
		{"ownerId": userID},
		{"members.userId": userID},
	}}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find workspaces: %w", err)
	}
	defer cursor.Close(ctx)

	workspaces := []models.Workspace{}
	if err := cursor.All(ctx, &workspaces); err != nil {
		return nil, fmt.Errorf("failed to decode workspaces: %w", err)
	}
	return workspaces, nil
}

func (r *WorkspaceRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Workspace, error) {
	var ws models.Workspace
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ws)
	if err != nil {
		return nil, translate(err)
	}
	return &ws, nil
}

func (r *WorkspaceRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddMember appends a membership row unless the user already has one.
// When nothing matched, the user is already a member and ErrDuplicate is returned.
func (r *WorkspaceRepo) AddMember(ctx context.Context, id primitive.ObjectID, member models.WorkspaceMember) error {
	filter := bson.M{
		"_id":            id,
		"members.userId": bson.M{"$ne": member.UserID},
	}
	update := bson.M{"$push": bson.M{"members": member}}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to add workspace member: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrDuplicate
	}
	return nil
}
