package services

import (
	"context"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/realtime"
	"github.com/steve-kings/project-management-system/repositories"
	"github.com/steve-kings/project-management-system/utils"
)

// applyUpdate runs $set and $unset against a copy of doc and decodes the
// result into out.
func applyUpdate(doc interface{}, update bson.M, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return err
	}
	if set, ok := update["$set"].(bson.M); ok {
		for k, v := range set {
			m[k] = v
		}
	}
	if unset, ok := update["$unset"].(bson.M); ok {
		for k := range unset {
			delete(m, k)
		}
	}
	if push, ok := update["$push"].(bson.M); ok {
		for k, v := range push {
			arr, _ := m[k].(bson.A)
			m[k] = append(arr, v)
		}
	}
	if raw, err = bson.Marshal(m); err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

type memUsers struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.User
}

func (s *memUsers) find(match func(models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.ID == id })
}

func (s *memUsers) FindByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.GoogleID != "" && u.GoogleID == googleID })
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s *memUsers) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := s.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memUsers) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.byID[user.ID] = *user
	return nil
}

func (s *memUsers) LinkGoogle(_ context.Context, id primitive.ObjectID, googleID, image string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	u.GoogleID = googleID
	if image != "" {
		u.Image = image
	}
	s.byID[id] = u
	return &u, nil
}

type memWorkspaces struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Workspace
}

func (s *memWorkspaces) Create(_ context.Context, ws *models.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.byID {
		if w.Slug == ws.Slug {
			return repositories.ErrDuplicate
		}
	}
	s.byID[ws.ID] = *ws
	return nil
}

func (s *memWorkspaces) FindByID(_ context.Context, id primitive.ObjectID) (*models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &ws, nil
}

func (s *memWorkspaces) ListForUser(_ context.Context, userID primitive.ObjectID) ([]models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Workspace{}
	for _, ws := range s.byID {
		if ws.IsMember(userID) {
			out = append(out, ws)
		}
	}
	return out, nil
}

func (s *memWorkspaces) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	var updated models.Workspace
	if err := applyUpdate(ws, bson.M{"$set": set}, &updated); err != nil {
		return nil, err
	}
	s.byID[id] = updated
	return &updated, nil
}

func (s *memWorkspaces) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memWorkspaces) AddMember(_ context.Context, id primitive.ObjectID, member models.WorkspaceMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.byID[id]
	if !ok {
		return repositories.ErrDuplicate
	}
	if _, exists := ws.Member(member.UserID); exists {
		return repositories.ErrDuplicate
	}
	ws.Members = append(ws.Members, member)
	s.byID[id] = ws
	return nil
}

type memProjects struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Project
}

func (s *memProjects) Create(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.byID[p.ID] = *p
	return nil
}

func (s *memProjects) FindByID(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (s *memProjects) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Project{}
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memProjects) ListByWorkspaces(_ context.Context, workspaceIDs []primitive.ObjectID) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Project{}
	for _, p := range s.byID {
		for _, id := range workspaceIDs {
			if p.WorkspaceID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *memProjects) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	var updated models.Project
	if err := applyUpdate(p, bson.M{"$set": set}, &updated); err != nil {
		return nil, err
	}
	s.byID[id] = updated
	return &updated, nil
}

func (s *memProjects) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

type memTasks struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Task
}

func (s *memTasks) Create(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	s.byID[t.ID] = *t
	return nil
}

func (s *memTasks) FindByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

func (s *memTasks) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Task{}
	for _, id := range ids {
		if t, ok := s.byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTasks) ListByProjects(_ context.Context, projectIDs []primitive.ObjectID) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Task{}
	for _, t := range s.byID {
		for _, id := range projectIDs {
			if t.ProjectID == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (s *memTasks) Update(_ context.Context, id primitive.ObjectID, update bson.M) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	var updated models.Task
	if err := applyUpdate(t, update, &updated); err != nil {
		return nil, err
	}
	s.byID[id] = updated
	return &updated, nil
}

func (s *memTasks) AddComment(_ context.Context, id primitive.ObjectID, c models.Comment) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	t.Comments = append(t.Comments, c)
	s.byID[id] = t
	return &t, nil
}

func (s *memTasks) DeleteMany(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.byID[id]; ok {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func (s *memTasks) DeleteByProject(_ context.Context, projectID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.byID {
		if t.ProjectID == projectID {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

type published struct {
	room    string
	kind    realtime.EventKind
	payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(room string, kind realtime.EventKind, payload interface{}) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{room: room, kind: kind, payload: payload})
	return 1
}

func (p *recordingPublisher) byRoom() map[string][]published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := map[string][]published{}
	for _, e := range p.events {
		out[e.room] = append(out[e.room], e)
	}
	return out
}

type fakeMailer struct {
	err  error
	sent []utils.Invitation
}

func (m *fakeMailer) SendInvitation(_ context.Context, inv utils.Invitation) error {
	m.sent = append(m.sent, inv)
	return m.err
}

type memNotifications struct {
	items []models.Notification
}

func (s *memNotifications) Create(_ context.Context, n *models.Notification) error {
	n.ID = gocql.TimeUUID()
	n.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	s.items = append(s.items, *n)
	return nil
}

func (s *memNotifications) ListByUser(_ context.Context, userID string) ([]models.Notification, error) {
	out := []models.Notification{}
	for _, n := range s.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memNotifications) MarkRead(_ context.Context, userID string, id gocql.UUID, createdAt time.Time) error {
	for i, n := range s.items {
		if n.UserID == userID && n.ID == id && n.CreatedAt.Equal(createdAt) {
			s.items[i].IsRead = true
			return nil
		}
	}
	return repositories.ErrNotFound
}

// fixture is a fully wired set of services over in-memory stores.
type fixture struct {
	users         *memUsers
	workspaces    *memWorkspaces
	projects      *memProjects
	tasks         *memTasks
	notifications *memNotifications
	publisher     *recordingPublisher
	mailer        *fakeMailer

	workspaceSvc *WorkspaceService
	projectSvc   *ProjectService
	taskSvc      *TaskService
}

func newFixture() *fixture {
	f := &fixture{
		users:         &memUsers{byID: map[primitive.ObjectID]models.User{}},
		workspaces:    &memWorkspaces{byID: map[primitive.ObjectID]models.Workspace{}},
		projects:      &memProjects{byID: map[primitive.ObjectID]models.Project{}},
		tasks:         &memTasks{byID: map[primitive.ObjectID]models.Task{}},
		notifications: &memNotifications{},
		publisher:     &recordingPublisher{},
		mailer:        &fakeMailer{},
	}
	f.workspaceSvc = NewWorkspaceService(f.workspaces, f.projects, f.tasks, f.users, f.mailer, f.notifications, "http://localhost:5173")
	f.projectSvc = NewProjectService(f.projects, f.tasks, f.workspaces, f.users, f.publisher)
	f.taskSvc = NewTaskService(f.tasks, f.projects, f.workspaces, f.users, f.publisher)
	return f
}

func (f *fixture) user(name, email string) *models.User {
	u := &models.User{ID: primitive.NewObjectID(), Name: name, Email: email}
	f.users.byID[u.ID] = *u
	return u
}

func (f *fixture) workspace(name string, owner *models.User, members ...models.WorkspaceMember) *models.Workspace {
	ws, _ := models.NewWorkspace(name, "", "", owner.ID)
	ws.Members = append(ws.Members, members...)
	f.workspaces.byID[ws.ID] = *ws
	return ws
}

func (f *fixture) project(name string, ws *models.Workspace, lead *models.User) *models.Project {
	p := &models.Project{ID: primitive.NewObjectID(), Name: name, WorkspaceID: ws.ID, TeamLead: lead.ID}
	p.ApplyDefaults()
	f.projects.byID[p.ID] = *p
	return p
}

func (f *fixture) task(title string, p *models.Project) *models.Task {
	t := &models.Task{ID: primitive.NewObjectID(), Title: title, ProjectID: p.ID}
	t.ApplyDefaults()
	f.tasks.byID[t.ID] = *t
	return t
}
