package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/steve-kings/project-management-system/models"
)

// populator resolves user references for API responses.
type populator struct {
	users    UserStore
	projects ProjectStore
	tasks    TaskStore
}

func (p populator) lookup(ctx context.Context, ids []primitive.ObjectID) (models.UserLookup, error) {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	unique := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	users, err := p.users.FindByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("populate users: %w", err)
	}
	return models.NewUserLookup(users), nil
}

func (p populator) task(ctx context.Context, t *models.Task) (models.TaskView, error) {
	users, err := p.lookup(ctx, t.UserIDs())
	if err != nil {
		return models.TaskView{}, err
	}
	return models.NewTaskView(t, users), nil
}

func (p populator) project(ctx context.Context, pr *models.Project) (models.ProjectView, error) {
	users, err := p.lookup(ctx, pr.UserIDs())
	if err != nil {
		return models.ProjectView{}, err
	}
	return models.NewProjectView(pr, users, nil), nil
}

func (p populator) workspace(ctx context.Context, ws *models.Workspace) (models.WorkspaceView, error) {
	views, err := p.workspaces(ctx, []models.Workspace{*ws})
	if err != nil {
		return models.WorkspaceView{}, err
	}
	return views[0], nil
}

// workspaces populates owners and members, then nests each workspace's
// projects and their tasks, with a constant number of queries.
func (p populator) workspaces(ctx context.Context, list []models.Workspace) ([]models.WorkspaceView, error) {
	views := make([]models.WorkspaceView, 0, len(list))
	if len(list) == 0 {
		return views, nil
	}

	var userIDs []primitive.ObjectID
	workspaceIDs := make([]primitive.ObjectID, 0, len(list))
	for i := range list {
		workspaceIDs = append(workspaceIDs, list[i].ID)
		userIDs = append(userIDs, list[i].UserIDs()...)
	}

	projects, err := p.projects.ListByWorkspaces(ctx, workspaceIDs)
	if err != nil {
		return nil, err
	}
	projectIDs := make([]primitive.ObjectID, 0, len(projects))
	for i := range projects {
		projectIDs = append(projectIDs, projects[i].ID)
		userIDs = append(userIDs, projects[i].UserIDs()...)
	}

	var tasks []models.Task
	if len(projectIDs) > 0 {
		if tasks, err = p.tasks.ListByProjects(ctx, projectIDs); err != nil {
			return nil, err
		}
	}
	for i := range tasks {
		userIDs = append(userIDs, tasks[i].UserIDs()...)
	}

	users, err := p.lookup(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	tasksByProject := make(map[primitive.ObjectID][]models.TaskView)
	for i := range tasks {
		tasksByProject[tasks[i].ProjectID] = append(tasksByProject[tasks[i].ProjectID], models.NewTaskView(&tasks[i], users))
	}
	projectsByWorkspace := make(map[primitive.ObjectID][]models.ProjectView)
	for i := range projects {
		pv := models.NewProjectView(&projects[i], users, tasksByProject[projects[i].ID])
		projectsByWorkspace[projects[i].WorkspaceID] = append(projectsByWorkspace[projects[i].WorkspaceID], pv)
	}
	for i := range list {
		views = append(views, models.NewWorkspaceView(&list[i], users, projectsByWorkspace[list[i].ID]))
	}
	return views, nil
}
