package services

import (
	"context"
	"errors"
	"testing"

	"github.com/steve-kings/project-management-system/models"
)

func TestWorkspaceService_CreateAndList(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.user("Ana", "ana@x.com")

	view, err := f.workspaceSvc.Create(ctx, owner, CreateWorkspaceInput{Name: "My Team"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Slug != "my-team" {
		t.Errorf("slug = %q, want my-team", view.Slug)
	}
	if view.Owner == nil || view.Owner.Email != "ana@x.com" {
		t.Errorf("owner not populated: %+v", view.Owner)
	}

	if _, err := f.workspaceSvc.Create(ctx, owner, CreateWorkspaceInput{Name: "my team"}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate slug: got %v, want ErrConflict", err)
	}
	if _, err := f.workspaceSvc.Create(ctx, owner, CreateWorkspaceInput{Name: "  "}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank name: got %v, want ErrValidation", err)
	}

	ws := f.workspaces.byID[view.ID]
	p := f.project("Launch", &ws, owner)
	f.task("Write docs", p)

	list, err := f.workspaceSvc.List(ctx, owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || len(list[0].Projects) != 1 || len(list[0].Projects[0].Tasks) != 1 {
		t.Fatalf("unexpected tree: %+v", list)
	}

	stranger := f.user("Bo", "bo@x.com")
	list, err = f.workspaceSvc.List(ctx, stranger)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("stranger sees %d workspaces", len(list))
	}
}

func TestWorkspaceService_UpdateAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.user("Ana", "ana@x.com")
	admin := f.user("Ada", "ada@x.com")
	member := f.user("Max", "max@x.com")
	ws := f.workspace("Acme", owner,
		models.WorkspaceMember{UserID: admin.ID, Role: models.RoleAdmin},
		models.WorkspaceMember{UserID: member.ID, Role: models.RoleMember})
	p := f.project("Launch", ws, owner)

	name := "Acme Corp"
	if _, err := f.workspaceSvc.Update(ctx, member, ws.ID.Hex(), models.WorkspaceUpdate{Name: &name}); !errors.Is(err, ErrForbidden) {
		t.Errorf("member update: got %v, want ErrForbidden", err)
	}
	view, err := f.workspaceSvc.Update(ctx, admin, ws.ID.Hex(), models.WorkspaceUpdate{Name: &name})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if view.Name != "Acme Corp" || view.Slug != "acme" {
		t.Errorf("got name %q slug %q", view.Name, view.Slug)
	}

	if err := f.workspaceSvc.Delete(ctx, admin, ws.ID.Hex()); !errors.Is(err, ErrForbidden) {
		t.Errorf("admin delete: got %v, want ErrForbidden", err)
	}
	if err := f.workspaceSvc.Delete(ctx, owner, ws.ID.Hex()); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, ok := f.projects.byID[p.ID]; !ok {
		t.Error("workspace delete should not cascade to projects")
	}
	if err := f.workspaceSvc.Delete(ctx, owner, ws.ID.Hex()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
	if err := f.workspaceSvc.Delete(ctx, owner, "nope"); !errors.Is(err, ErrValidation) {
		t.Errorf("bad id: got %v, want ErrValidation", err)
	}
}

func TestWorkspaceService_Invite(t *testing.T) {
	type setup struct {
		f       *fixture
		ws      *models.Workspace
		owner   *models.User
		admin   *models.User
		member  *models.User
		outside *models.User
	}
	newSetup := func() setup {
		f := newFixture()
		owner := f.user("Ana", "ana@x.com")
		admin := f.user("Ada", "ada@x.com")
		member := f.user("Max", "max@x.com")
		outside := f.user("Olga", "olga@x.com")
		ws := f.workspace("Acme", owner,
			models.WorkspaceMember{UserID: admin.ID, Role: models.RoleAdmin},
			models.WorkspaceMember{UserID: member.ID, Role: models.RoleMember})
		return setup{f: f, ws: ws, owner: owner, admin: admin, member: member, outside: outside}
	}

	tests := []struct {
		name        string
		inviter     func(s setup) *models.User
		email       string
		role        models.Role
		mailErr     error
		wantErr     error
		wantAdded   bool
		wantMessage string
		wantMails   int
	}{
		{
			name:    "member cannot invite",
			inviter: func(s setup) *models.User { return s.member },
			email:   "olga@x.com", role: models.RoleMember,
			wantErr: ErrForbidden,
		},
		{
			name:    "invalid role",
			inviter: func(s setup) *models.User { return s.owner },
			email:   "olga@x.com", role: "OWNER",
			wantErr: ErrValidation,
		},
		{
			name:    "invalid email",
			inviter: func(s setup) *models.User { return s.owner },
			email:   "not-an-email", role: models.RoleMember,
			wantErr: ErrValidation,
		},
		{
			name:    "owner adds registered user",
			inviter: func(s setup) *models.User { return s.owner },
			email:   "Olga@X.com", role: models.RoleMember,
			wantAdded: true, wantMessage: msgInviteAddedAndSent, wantMails: 1,
		},
		{
			name:    "admin adds registered user",
			inviter: func(s setup) *models.User { return s.admin },
			email:   "olga@x.com", role: models.RoleAdmin,
			wantAdded: true, wantMessage: msgInviteAddedAndSent, wantMails: 1,
		},
		{
			name:    "already a member",
			inviter: func(s setup) *models.User { return s.admin },
			email:   "max@x.com", role: models.RoleMember,
			wantErr: ErrConflict,
		},
		{
			name:    "owner counts as a member",
			inviter: func(s setup) *models.User { return s.admin },
			email:   "ana@x.com", role: models.RoleAdmin,
			wantErr: ErrConflict,
		},
		{
			name:    "unregistered address only gets mail",
			inviter: func(s setup) *models.User { return s.owner },
			email:   "a@x.com", role: models.RoleAdmin,
			wantAdded: false, wantMessage: msgInviteSentPending, wantMails: 1,
		},
		{
			name:    "registered user added even when mail fails",
			inviter: func(s setup) *models.User { return s.owner },
			email:   "olga@x.com", role: models.RoleMember,
			mailErr:   errors.New("smtp down"),
			wantAdded: true, wantMessage: msgInviteAddedNoMail, wantMails: 1,
		},
		{
			name:    "unregistered address and mail fails",
			inviter: func(s setup) *models.User { return s.owner },
			email:   "a@x.com", role: models.RoleMember,
			mailErr: errors.New("smtp down"),
			wantErr: ErrDelivery, wantMails: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSetup()
			s.f.mailer.err = tt.mailErr
			before := len(s.ws.Members)

			res, err := s.f.workspaceSvc.Invite(context.Background(), tt.inviter(s), s.ws.ID.Hex(), tt.email, tt.role)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Invite: %v", err)
				}
				if res.UserAdded != tt.wantAdded || res.Message != tt.wantMessage {
					t.Errorf("got %+v, want added=%v message=%q", res, tt.wantAdded, tt.wantMessage)
				}
			}
			if len(s.f.mailer.sent) != tt.wantMails {
				t.Errorf("mails sent = %d, want %d", len(s.f.mailer.sent), tt.wantMails)
			}

			stored := s.f.workspaces.byID[s.ws.ID]
			after := len(stored.Members)
			if tt.wantAdded {
				m, ok := stored.Member(s.outside.ID)
				if !ok || m.Role != tt.role {
					t.Errorf("membership row = %+v, want role %s", m, tt.role)
				}
				if len(s.f.notifications.items) != 1 || s.f.notifications.items[0].UserID != s.outside.ID.Hex() {
					t.Errorf("expected one feed entry for invited user, got %+v", s.f.notifications.items)
				}
			} else if after != before {
				t.Errorf("members changed from %d to %d", before, after)
			}
		})
	}
}

func TestWorkspaceService_InviteUnknownWorkspace(t *testing.T) {
	f := newFixture()
	owner := f.user("Ana", "ana@x.com")
	ws := f.workspace("Acme", owner)
	delete(f.workspaces.byID, ws.ID)

	_, err := f.workspaceSvc.Invite(context.Background(), owner, ws.ID.Hex(), "a@x.com", models.RoleMember)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Error("no mail expected for a missing workspace")
	}
}

func TestWorkspaceService_InviteMailContent(t *testing.T) {
	f := newFixture()
	owner := f.user("Ana", "ana@x.com")
	ws := f.workspace("Acme", owner)

	if _, err := f.workspaceSvc.Invite(context.Background(), owner, ws.ID.Hex(), "a@x.com", models.RoleAdmin); err != nil {
		t.Fatalf("Invite: %v", err)
	}
	inv := f.mailer.sent[0]
	if inv.RecipientEmail != "a@x.com" || inv.RecipientName != "a" || inv.WorkspaceName != "Acme" ||
		inv.InviterName != "Ana" || inv.Role != "ADMIN" || inv.ClientURL != "http://localhost:5173" {
		t.Errorf("unexpected invitation: %+v", inv)
	}
}

func TestWorkspaceService_CanAccess(t *testing.T) {
	f := newFixture()
	owner := f.user("Ana", "ana@x.com")
	member := f.user("Max", "max@x.com")
	stranger := f.user("Bo", "bo@x.com")
	ws := f.workspace("Acme", owner, models.WorkspaceMember{UserID: member.ID, Role: models.RoleMember})
	ctx := context.Background()

	if err := f.workspaceSvc.CanAccess(ctx, owner.ID.Hex(), ws.ID.Hex()); err != nil {
		t.Errorf("owner: %v", err)
	}
	if err := f.workspaceSvc.CanAccess(ctx, member.ID.Hex(), ws.ID.Hex()); err != nil {
		t.Errorf("member: %v", err)
	}
	if err := f.workspaceSvc.CanAccess(ctx, stranger.ID.Hex(), ws.ID.Hex()); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger: got %v, want ErrForbidden", err)
	}
	if err := f.workspaceSvc.CanAccess(ctx, "", ws.ID.Hex()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous: got %v, want ErrUnauthorized", err)
	}
}
