package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/steve-kings/project-management-system/logging"
	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/realtime"
	"github.com/steve-kings/project-management-system/repositories"
)

// TaskService runs task mutations and broadcasts each successful change to
// the room of the workspace that owns the task's project.
type TaskService struct {
	tasks      TaskStore
	projects   ProjectStore
	workspaces WorkspaceStore
	publisher  Publisher
	populate   populator
}

func NewTaskService(tasks TaskStore, projects ProjectStore, workspaces WorkspaceStore, users UserStore, publisher Publisher) *TaskService {
	return &TaskService{
		tasks:      tasks,
		projects:   projects,
		workspaces: workspaces,
		publisher:  publisher,
		populate:   populator{users: users, projects: projects, tasks: tasks},
	}
}

type CreateTaskInput struct {
	ProjectID   primitive.ObjectID  `json:"projectId"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Type        models.TaskType     `json:"type"`
	Priority    models.Priority     `json:"priority"`
	AssigneeID  *primitive.ObjectID `json:"assigneeId"`
	StartDate   *time.Time          `json:"start_date"`
	DueDate     *time.Time          `json:"due_date"`
}

func (s *TaskService) Create(ctx context.Context, user *models.User, in CreateTaskInput) (*models.TaskView, error) {
	task := &models.Task{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Type:        in.Type,
		Priority:    in.Priority,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
	}
	if in.AssigneeID != nil && !in.AssigneeID.IsZero() {
		task.AssigneeID = in.AssigneeID
	}
	task.ApplyDefaults()
	if err := task.Validate(); err != nil {
		return nil, validationError(err)
	}

	if _, err := s.authorize(ctx, user, task.ProjectID); err != nil {
		return nil, err
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fromStore(err, "Task")
	}

	view, err := s.populate.task(ctx, task)
	if err != nil {
		return nil, err
	}
	s.publishForProject(ctx, task.ProjectID, realtime.TaskCreated, view)
	return &view, nil
}

// Update applies a whitelisted change; the owning project cannot change.
func (s *TaskService) Update(ctx context.Context, user *models.User, rawID string, upd models.TaskUpdate) (*models.TaskView, error) {
	task, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, user, task.ProjectID); err != nil {
		return nil, err
	}

	doc, err := upd.UpdateDocument()
	if err != nil {
		return nil, validationError(err)
	}
	updated, err := s.tasks.Update(ctx, task.ID, doc)
	if err != nil {
		return nil, fromStore(err, "Task")
	}

	view, err := s.populate.task(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.publishForProject(ctx, updated.ProjectID, realtime.TaskUpdated, view)
	return &view, nil
}

// BulkDelete deletes the listed tasks and sends one task-deleted event to
// each affected workspace room, carrying only that room's ids. Tasks whose
// project or workspace no longer exists cannot be authorized and are left
// in place. Unknown ids are ignored.
func (s *TaskService) BulkDelete(ctx context.Context, user *models.User, rawIDs []string) (int64, error) {
	if len(rawIDs) == 0 {
		return 0, newError(ErrValidation, "taskIds must be a non-empty array")
	}
	ids := make([]primitive.ObjectID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := parseID(raw, "task")
		if err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}

	tasks, err := s.tasks.FindByIDs(ctx, ids)
	if err != nil {
		return 0, fromStore(err, "Task")
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	groups, allowed, err := s.groupByWorkspace(ctx, user, tasks)
	if err != nil {
		return 0, err
	}
	if skipped := len(tasks) - len(allowed); skipped > 0 {
		logging.Logger.WithFields(logrus.Fields{"user": user.ID.Hex(), "skipped": skipped}).
			Warn("Event ID: TASKS_DELETE_UNRESOLVED, Description: Skipped tasks without a reachable workspace")
	}
	if len(allowed) == 0 {
		return 0, nil
	}

	deleted, err := s.tasks.DeleteMany(ctx, allowed)
	if err != nil {
		return 0, fromStore(err, "Task")
	}

	for workspaceID, taskIDs := range groups {
		s.publisher.Publish(workspaceID, realtime.TaskDeleted, realtime.TaskDeletedPayload{TaskIDs: taskIDs})
	}
	logging.Logger.WithFields(logrus.Fields{"deleted": deleted, "rooms": len(groups)}).
		Info("Event ID: TASKS_DELETED, Description: Tasks deleted")
	return deleted, nil
}

// groupByWorkspace maps each resolvable task to its workspace room and checks
// the caller belongs to every one of them. It also returns the ids of those
// tasks; tasks without a reachable workspace are left out.
func (s *TaskService) groupByWorkspace(ctx context.Context, user *models.User, tasks []models.Task) (map[string][]string, []primitive.ObjectID, error) {
	projectIDs := make([]primitive.ObjectID, 0, len(tasks))
	seen := map[primitive.ObjectID]bool{}
	for i := range tasks {
		if !seen[tasks[i].ProjectID] {
			seen[tasks[i].ProjectID] = true
			projectIDs = append(projectIDs, tasks[i].ProjectID)
		}
	}
	projects, err := s.projects.FindByIDs(ctx, projectIDs)
	if err != nil {
		return nil, nil, fromStore(err, "Project")
	}
	workspaceOf := make(map[primitive.ObjectID]primitive.ObjectID, len(projects))
	for i := range projects {
		workspaceOf[projects[i].ID] = projects[i].WorkspaceID
	}

	reachable := map[primitive.ObjectID]bool{}
	groups := map[string][]string{}
	allowed := make([]primitive.ObjectID, 0, len(tasks))
	for i := range tasks {
		workspaceID, ok := workspaceOf[tasks[i].ProjectID]
		if !ok {
			continue
		}
		if _, done := reachable[workspaceID]; !done {
			ws, err := s.workspaces.FindByID(ctx, workspaceID)
			if errors.Is(err, repositories.ErrNotFound) {
				reachable[workspaceID] = false
				continue
			}
			if err != nil {
				return nil, nil, fromStore(err, "Workspace")
			}
			if !ws.IsMember(user.ID) {
				return nil, nil, newError(ErrForbidden, "You are not a member of this workspace")
			}
			reachable[workspaceID] = true
		}
		if !reachable[workspaceID] {
			continue
		}
		room := workspaceID.Hex()
		groups[room] = append(groups[room], tasks[i].ID.Hex())
		allowed = append(allowed, tasks[i].ID)
	}
	return groups, allowed, nil
}

// AddComment appends a comment. Comments are not broadcast.
func (s *TaskService) AddComment(ctx context.Context, user *models.User, rawID, content string) (*models.TaskView, error) {
	comment, err := models.NewComment(user.ID, content)
	if err != nil {
		return nil, validationError(err)
	}
	task, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, user, task.ProjectID); err != nil {
		return nil, err
	}

	updated, err := s.tasks.AddComment(ctx, task.ID, comment)
	if err != nil {
		return nil, fromStore(err, "Task")
	}
	view, err := s.populate.task(ctx, updated)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// authorize resolves task -> project -> workspace and requires membership.
func (s *TaskService) authorize(ctx context.Context, user *models.User, projectID primitive.ObjectID) (*models.Workspace, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, fromStore(err, "Project")
	}
	ws, err := s.workspaces.FindByID(ctx, project.WorkspaceID)
	if err != nil {
		return nil, fromStore(err, "Workspace")
	}
	if !ws.IsMember(user.ID) {
		return nil, newError(ErrForbidden, "You are not a member of this workspace")
	}
	return ws, nil
}

// publishForProject looks the project up again at publish time. If it has
// disappeared since the mutation, the event is dropped and logged.
func (s *TaskService) publishForProject(ctx context.Context, projectID primitive.ObjectID, kind realtime.EventKind, payload interface{}) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		logging.Logger.WithFields(logrus.Fields{"project": projectID.Hex(), "event": string(kind)}).
			Warnf("Event ID: TASK_EVENT_DROPPED, Description: Could not resolve workspace for broadcast: %v", err)
		return
	}
	s.publisher.Publish(project.WorkspaceID.Hex(), kind, payload)
}

func (s *TaskService) load(ctx context.Context, rawID string) (*models.Task, error) {
	id, err := parseID(rawID, "task")
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Task")
	}
	return task, nil
}
