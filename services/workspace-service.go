package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/steve-kings/project-management-system/logging"
	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/repositories"
	"github.com/steve-kings/project-management-system/utils"
)

const (
	msgInviteAddedAndSent = "User added to workspace and invitation email sent"
	msgInviteSentPending  = "Invitation email sent. User will be added when they sign up"
	msgInviteAddedNoMail  = "User added to workspace, but email failed to send"
	msgInviteMailFailed   = "Failed to send invitation email"
	msgAlreadyMember      = "User is already a member of this workspace"
	msgInviteForbidden    = "Only workspace owner or admins can invite members"
	msgInvalidRole        = "Invalid role. Must be ADMIN or MEMBER"
)

type WorkspaceService struct {
	workspaces    WorkspaceStore
	users         UserStore
	mailer        InvitationSender
	notifications NotificationStore
	clientURL     string
	populate      populator
}

// NewWorkspaceService wires the workspace flows. notifications may be nil,
// in which case invites are not recorded in the notification feed.
func NewWorkspaceService(workspaces WorkspaceStore, projects ProjectStore, tasks TaskStore, users UserStore,
	mailer InvitationSender, notifications NotificationStore, clientURL string) *WorkspaceService {
	return &WorkspaceService{
		workspaces:    workspaces,
		users:         users,
		mailer:        mailer,
		notifications: notifications,
		clientURL:     clientURL,
		populate:      populator{users: users, projects: projects, tasks: tasks},
	}
}

type CreateWorkspaceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// InviteResult is returned whenever the invite did not fail outright.
type InviteResult struct {
	Message   string
	UserAdded bool
}

// List returns every workspace the user owns or belongs to, fully populated.
func (s *WorkspaceService) List(ctx context.Context, user *models.User) ([]models.WorkspaceView, error) {
	list, err := s.workspaces.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, fromStore(err, "Workspace")
	}
	return s.populate.workspaces(ctx, list)
}

func (s *WorkspaceService) Create(ctx context.Context, user *models.User, in CreateWorkspaceInput) (*models.WorkspaceView, error) {
	ws, err := models.NewWorkspace(in.Name, in.Description, in.ImageURL, user.ID)
	if err != nil {
		return nil, validationError(err)
	}

	if err := s.workspaces.Create(ctx, ws); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(ErrConflict, "A workspace with the slug %q already exists", ws.Slug)
		}
		return nil, fromStore(err, "Workspace")
	}

	logging.Logger.WithFields(logrus.Fields{"workspace": ws.ID.Hex(), "owner": user.ID.Hex()}).
		Info("Event ID: WORKSPACE_CREATED, Description: Workspace created")
	view, err := s.populate.workspace(ctx, ws)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Update applies a whitelisted change. The slug keeps its original value.
func (s *WorkspaceService) Update(ctx context.Context, user *models.User, rawID string, upd models.WorkspaceUpdate) (*models.WorkspaceView, error) {
	ws, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !models.HasAdminRights(user.ID, ws) {
		return nil, newError(ErrForbidden, "Only workspace owner or admins can update the workspace")
	}

	set, err := upd.SetDocument()
	if err != nil {
		return nil, validationError(err)
	}
	updated, err := s.workspaces.Update(ctx, ws.ID, set)
	if err != nil {
		return nil, fromStore(err, "Workspace")
	}

	view, err := s.populate.workspace(ctx, updated)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Delete removes the workspace document only; its projects and tasks are
// left in place.
func (s *WorkspaceService) Delete(ctx context.Context, user *models.User, rawID string) error {
	ws, err := s.load(ctx, rawID)
	if err != nil {
		return err
	}
	if ws.OwnerID != user.ID {
		return newError(ErrForbidden, "Only the workspace owner can delete the workspace")
	}
	if err := s.workspaces.Delete(ctx, ws.ID); err != nil {
		return fromStore(err, "Workspace")
	}

	logging.Logger.WithField("workspace", ws.ID.Hex()).
		Warn("Event ID: WORKSPACE_DELETED, Description: Workspace deleted without cascading to projects and tasks")
	return nil
}

// Invite adds an existing user to the workspace with role and mails an
// invitation. Unknown emails only receive the mail. A failed mail never
// undoes a membership change.
func (s *WorkspaceService) Invite(ctx context.Context, inviter *models.User, rawID, rawEmail string, role models.Role) (*InviteResult, error) {
	if !role.Valid() {
		return nil, newError(ErrValidation, msgInvalidRole)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(rawEmail))
	if err != nil {
		return nil, newError(ErrValidation, "A valid email is required")
	}
	email := strings.ToLower(addr.Address)

	ws, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !models.HasAdminRights(inviter.ID, ws) {
		return nil, newError(ErrForbidden, msgInviteForbidden)
	}

	invited, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fromStore(err, "User")
	}

	if invited != nil {
		if ws.IsMember(invited.ID) {
			return nil, newError(ErrConflict, msgAlreadyMember)
		}
		err := s.workspaces.AddMember(ctx, ws.ID, models.WorkspaceMember{UserID: invited.ID, Role: role})
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(ErrConflict, msgAlreadyMember)
		}
		if err != nil {
			return nil, fromStore(err, "Workspace")
		}
		logging.Logger.WithFields(logrus.Fields{"workspace": ws.ID.Hex(), "user": invited.ID.Hex(), "role": string(role)}).
			Info("Event ID: WORKSPACE_MEMBER_ADDED, Description: Member added to workspace")
		s.recordInvite(ctx, inviter, invited, ws, role)
	}

	recipientName := strings.SplitN(email, "@", 2)[0]
	if invited != nil && invited.Name != "" {
		recipientName = invited.Name
	}
	mailErr := s.mailer.SendInvitation(ctx, utils.Invitation{
		RecipientEmail: email,
		RecipientName:  recipientName,
		WorkspaceName:  ws.Name,
		InviterName:    inviter.Name,
		Role:           string(role),
		ClientURL:      s.clientURL,
	})

	switch {
	case mailErr == nil && invited != nil:
		return &InviteResult{Message: msgInviteAddedAndSent, UserAdded: true}, nil
	case mailErr == nil:
		return &InviteResult{Message: msgInviteSentPending, UserAdded: false}, nil
	case invited != nil:
		logging.Logger.Warnf("Event ID: INVITE_EMAIL_FAILED, Description: Member added to %s but mail failed: %v", ws.ID.Hex(), mailErr)
		return &InviteResult{Message: msgInviteAddedNoMail, UserAdded: true}, nil
	}
	logging.Logger.Errorf("Event ID: INVITE_EMAIL_FAILED, Description: Invitation to unregistered address for %s failed: %v", ws.ID.Hex(), mailErr)
	return nil, newError(ErrDelivery, msgInviteMailFailed)
}

// recordInvite writes a feed entry for the invited user. Feed failures are
// logged and otherwise ignored.
func (s *WorkspaceService) recordInvite(ctx context.Context, inviter, invited *models.User, ws *models.Workspace, role models.Role) {
	if s.notifications == nil {
		return
	}
	n := &models.Notification{
		UserID:      invited.ID.Hex(),
		WorkspaceID: ws.ID.Hex(),
		Message:     fmt.Sprintf("%s added you to %s as %s", inviter.Name, ws.Name, role),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		logging.Logger.Warnf("Event ID: NOTIFICATION_CREATE_FAILED, Description: %v", err)
	}
}

// CanAccess reports whether the user may see the workspace's events.
func (s *WorkspaceService) CanAccess(ctx context.Context, userID, workspaceID string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return newError(ErrUnauthorized, "Not authorized")
	}
	ws, err := s.load(ctx, workspaceID)
	if err != nil {
		return err
	}
	if !ws.IsMember(uid) {
		return newError(ErrForbidden, "You are not a member of this workspace")
	}
	return nil
}

func (s *WorkspaceService) load(ctx context.Context, rawID string) (*models.Workspace, error) {
	id, err := parseID(rawID, "workspace")
	if err != nil {
		return nil, err
	}
	ws, err := s.workspaces.FindByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Workspace")
	}
	return ws, nil
}
