package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/steve-kings/project-management-system/logging"
	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/realtime"
)

type ProjectService struct {
	projects   ProjectStore
	tasks      TaskStore
	workspaces WorkspaceStore
	publisher  Publisher
	populate   populator
}

func NewProjectService(projects ProjectStore, tasks TaskStore, workspaces WorkspaceStore, users UserStore, publisher Publisher) *ProjectService {
	return &ProjectService{
		projects:   projects,
		tasks:      tasks,
		workspaces: workspaces,
		publisher:  publisher,
		populate:   populator{users: users, projects: projects, tasks: tasks},
	}
}

type CreateProjectInput struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Priority    models.Priority      `json:"priority"`
	Status      models.ProjectStatus `json:"status"`
	StartDate   *time.Time           `json:"start_date"`
	EndDate     *time.Time           `json:"end_date"`
	TeamLead    *primitive.ObjectID  `json:"team_lead"`
	WorkspaceID primitive.ObjectID   `json:"workspaceId"`
	TeamMembers []primitive.ObjectID `json:"team_members"`
	Progress    int                  `json:"progress"`
}

// Create adds a project to a workspace the caller administers. The team
// lead defaults to the caller.
func (s *ProjectService) Create(ctx context.Context, user *models.User, in CreateProjectInput) (*models.ProjectView, error) {
	if in.WorkspaceID.IsZero() {
		return nil, newError(ErrValidation, "workspaceId is required")
	}
	if _, err := s.authorize(ctx, user, in.WorkspaceID); err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:        in.Name,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		TeamLead:    user.ID,
		WorkspaceID: in.WorkspaceID,
		Progress:    in.Progress,
		Members:     models.MembersFromIDs(in.TeamMembers),
	}
	if in.TeamLead != nil && !in.TeamLead.IsZero() {
		project.TeamLead = *in.TeamLead
	}
	project.ApplyDefaults()
	if err := project.Validate(); err != nil {
		return nil, validationError(err)
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fromStore(err, "Project")
	}
	logging.Logger.WithFields(logrus.Fields{"project": project.ID.Hex(), "workspace": project.WorkspaceID.Hex()}).
		Info("Event ID: PROJECT_CREATED, Description: Project created")

	view, err := s.populate.project(ctx, project)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *ProjectService) Update(ctx context.Context, user *models.User, rawID string, upd models.ProjectUpdate) (*models.ProjectView, error) {
	project, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, user, project.WorkspaceID); err != nil {
		return nil, err
	}

	set, err := upd.SetDocument()
	if err != nil {
		return nil, validationError(err)
	}
	updated, err := s.projects.Update(ctx, project.ID, set)
	if err != nil {
		return nil, fromStore(err, "Project")
	}

	view, err := s.populate.project(ctx, updated)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Delete removes the project's tasks and then the project itself. The
// removed tasks are announced to the workspace room as one task-deleted event.
func (s *ProjectService) Delete(ctx context.Context, user *models.User, rawID string) error {
	project, err := s.load(ctx, rawID)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, user, project.WorkspaceID); err != nil {
		return err
	}

	tasks, err := s.tasks.ListByProjects(ctx, []primitive.ObjectID{project.ID})
	if err != nil {
		return fromStore(err, "Task")
	}
	removed, err := s.tasks.DeleteByProject(ctx, project.ID)
	if err != nil {
		return fromStore(err, "Task")
	}
	if err := s.projects.Delete(ctx, project.ID); err != nil {
		return fromStore(err, "Project")
	}

	if len(tasks) > 0 {
		ids := make([]string, 0, len(tasks))
		for i := range tasks {
			ids = append(ids, tasks[i].ID.Hex())
		}
		s.publisher.Publish(project.WorkspaceID.Hex(), realtime.TaskDeleted, realtime.TaskDeletedPayload{TaskIDs: ids})
	}

	logging.Logger.WithFields(logrus.Fields{"project": project.ID.Hex(), "tasks": removed}).
		Info("Event ID: PROJECT_DELETED, Description: Project and its tasks deleted")
	return nil
}

func (s *ProjectService) authorize(ctx context.Context, user *models.User, workspaceID primitive.ObjectID) (*models.Workspace, error) {
	ws, err := s.workspaces.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, fromStore(err, "Workspace")
	}
	if !models.HasAdminRights(user.ID, ws) {
		return nil, newError(ErrForbidden, "Only workspace owner or admins can manage projects")
	}
	return ws, nil
}

func (s *ProjectService) load(ctx context.Context, rawID string) (*models.Project, error) {
	id, err := parseID(rawID, "project")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Project")
	}
	return project, nil
}
