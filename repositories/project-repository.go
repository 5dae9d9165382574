package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/steve-kings/project-management-system/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProjectRepo struct {
	collection *mongo.Collection
}

func NewProjectRepo(collection *mongo.Collection) *ProjectRepo {
	return &ProjectRepo{collection: collection}
}

func (r *ProjectRepo) Create(ctx context.Context, project *models.Project) error {
	now := time.Now().UTC()
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	project.CreatedAt, project.UpdatedAt = now, now

	if _, err := r.collection.InsertOne(ctx, project); err != nil {
		return translate(err)
	}
	return nil
}

func (r *ProjectRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&project); err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// FindByIDs is used to resolve the owning workspace of a batch of tasks.
func (r *ProjectRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error) {
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *ProjectRepo) ListByWorkspaces(ctx context.Context, workspaceIDs []primitive.ObjectID) ([]models.Project, error) {
	return r.find(ctx, bson.M{"workspaceId": bson.M{"$in": workspaceIDs}})
}

func (r *ProjectRepo) find(ctx context.Context, filter bson.M) ([]models.Project, error) {
	projects := []models.Project{}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find projects: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Project, error) {
	var project models.Project
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&project)
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
