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

type TaskRepo struct {
	collection *mongo.Collection
}

func NewTaskRepo(collection *mongo.Collection) *TaskRepo {
	return &TaskRepo{collection: collection}
}

func (r *TaskRepo) Create(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	task.CreatedAt, task.UpdatedAt = now, now

	if _, err := r.collection.InsertOne(ctx, task); err != nil {
		return translate(err)
	}
	return nil
}

func (r *TaskRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *TaskRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Task, error) {
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *TaskRepo) ListByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]models.Task, error) {
	return r.find(ctx, bson.M{"projectId": bson.M{"$in": projectIDs}})
}

func (r *TaskRepo) find(ctx context.Context, filter bson.M) ([]models.Task, error) {
	tasks := []models.Task{}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// Update applies a full update document ($set and optionally $unset).
func (r *TaskRepo) Update(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Task, error) {
	var task models.Task
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&task)
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *TaskRepo) AddComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) (*models.Task, error) {
	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.Update(ctx, id, update)
}

func (r *TaskRepo) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *TaskRepo) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"projectId": projectID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete project tasks: %w", err)
	}
	return res.DeletedCount, nil
}
