package services

import (
	"context"
	"strings"
	"time"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/metrics"
	"freelance-hub/backend/models"
	"freelance-hub/backend/utils"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeamService 管理團隊、成員角色與邀請。
// 所有變更都是 讀取 -> 在 Membership 上套用轉換 -> 以 version 條件寫回。
type TeamService struct {
	teams     TeamStore
	proposals ProposalStore
	now       func() time.Time
}

func NewTeamService(teams TeamStore, proposals ProposalStore) *TeamService {
	return &TeamService{teams: teams, proposals: proposals, now: time.Now}
}

func (s *TeamService) CreateTeam(ctx context.Context, creatorID string, req models.CreateTeamRequest) (*models.Team, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	team := models.NewTeam(req.Name, strings.TrimSpace(req.Description), creatorID, s.now())
	err := s.teams.Insert(ctx, team)
	metrics.TeamOperations.WithLabelValues("create", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, apperror.Internal(err, "failed to create team")
	}
	log.WithFields(log.Fields{"teamId": team.ID.Hex(), "creator": creatorID}).Info("Team created")
	return team, nil
}

func (s *TeamService) ListTeams(ctx context.Context, userID string) ([]models.Team, error) {
	teams, err := s.teams.FindByMember(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list teams")
	}
	return teams, nil
}

// GetTeam 只有成員可以查看
func (s *TeamService) GetTeam(ctx context.Context, teamID, userID string) (*models.Team, error) {
	team, err := s.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.Membership.IsMember(userID) {
		return nil, apperror.Forbidden("only team members can view this team")
	}
	return team, nil
}

func (s *TeamService) UpdateTeam(ctx context.Context, teamID, userID string, req models.UpdateTeamRequest) (*models.Team, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, teamID, "update", func(team *models.Team, _ time.Time) error {
		if !team.Membership.IsAdmin(userID) {
			return apperror.Forbidden("only team admins can update the team")
		}
		if req.Name != nil {
			team.Name = *req.Name
		}
		if req.Description != nil {
			team.Description = strings.TrimSpace(*req.Description)
		}
		return nil
	})
}

// DeleteTeam 刪除團隊，並一併刪除該團隊待審核的投標；已被接受或拒絕的投標保留為歷史
func (s *TeamService) DeleteTeam(ctx context.Context, teamID, userID string) error {
	id, err := utils.ParseObjectID(teamID, "team id")
	if err != nil {
		return err
	}

	err = retryOnConflict(ctx, "teams", func() error {
		team, err := s.loadByID(ctx, id)
		if err != nil {
			return err
		}
		if !team.Membership.IsAdmin(userID) {
			return apperror.Forbidden("only team admins can delete the team")
		}
		if err := s.teams.Delete(ctx, team.ID, team.Version); err != nil {
			return storeErr(err, "failed to delete team")
		}
		return nil
	})
	metrics.TeamOperations.WithLabelValues("delete", metrics.Outcome(err)).Inc()
	if err != nil {
		return err
	}

	removed, err := s.proposals.DeletePendingByTeam(ctx, id)
	if err != nil {
		// 團隊已刪除；殘留的投標不會再被列出
		log.WithFields(log.Fields{"teamId": teamID, "error": err}).Error("Failed to delete pending applications of deleted team")
		return nil
	}
	log.WithFields(log.Fields{"teamId": teamID, "applications": removed}).Info("Team deleted")
	return nil
}

func (s *TeamService) InviteMember(ctx context.Context, teamID, inviterID, inviteeID string) (*models.Team, error) {
	return s.mutate(ctx, teamID, "invite", func(team *models.Team, now time.Time) error {
		return team.Membership.Invite(inviterID, inviteeID, now)
	})
}

func (s *TeamService) AcceptInvitation(ctx context.Context, teamID, userID string) (*models.Team, error) {
	return s.mutate(ctx, teamID, "accept_invitation", func(team *models.Team, now time.Time) error {
		return team.Membership.Accept(userID, now)
	})
}

func (s *TeamService) RejectInvitation(ctx context.Context, teamID, userID string) error {
	_, err := s.mutate(ctx, teamID, "reject_invitation", func(team *models.Team, _ time.Time) error {
		return team.Membership.Reject(userID)
	})
	return err
}

func (s *TeamService) RevokeInvitation(ctx context.Context, teamID, adminID, inviteeID string) (*models.Team, error) {
	return s.mutate(ctx, teamID, "revoke_invitation", func(team *models.Team, _ time.Time) error {
		return team.Membership.Revoke(adminID, inviteeID)
	})
}

// ListInvitations 使用者尚未回覆的邀請
func (s *TeamService) ListInvitations(ctx context.Context, userID string) ([]models.TeamInvitationView, error) {
	teams, err := s.teams.FindByInvitee(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list invitations")
	}
	views := make([]models.TeamInvitationView, 0, len(teams))
	for i := range teams {
		if view, ok := teams[i].InvitationFor(userID); ok {
			views = append(views, view)
		}
	}
	return views, nil
}

// RemoveMember 管理員移除成員；requesterID == targetID 時為自行離開
func (s *TeamService) RemoveMember(ctx context.Context, teamID, requesterID, targetID string) (*models.Team, error) {
	op := "remove_member"
	if requesterID == targetID {
		op = "leave"
	}
	return s.mutate(ctx, teamID, op, func(team *models.Team, _ time.Time) error {
		return team.Membership.Remove(requesterID, targetID)
	})
}

func (s *TeamService) LeaveTeam(ctx context.Context, teamID, userID string) error {
	_, err := s.RemoveMember(ctx, teamID, userID, userID)
	return err
}

func (s *TeamService) UpdateMemberRole(ctx context.Context, teamID, requesterID, targetID string, req models.UpdateRoleRequest) (*models.Team, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, teamID, "update_role", func(team *models.Team, _ time.Time) error {
		return team.Membership.SetRole(requesterID, targetID, req.Role)
	})
}

// mutate 載入團隊、套用 fn 並以 version 條件寫回；版本衝突時重試
func (s *TeamService) mutate(ctx context.Context, teamID, op string, fn func(team *models.Team, now time.Time) error) (*models.Team, error) {
	id, err := utils.ParseObjectID(teamID, "team id")
	if err != nil {
		return nil, err
	}

	var result *models.Team
	err = retryOnConflict(ctx, "teams", func() error {
		team, err := s.loadByID(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		if err := fn(team, now); err != nil {
			return err
		}
		team.UpdatedAt = now
		if err := s.teams.Replace(ctx, team); err != nil {
			return storeErr(err, "failed to save team")
		}
		result = team
		return nil
	})
	metrics.TeamOperations.WithLabelValues(op, metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *TeamService) load(ctx context.Context, teamID string) (*models.Team, error) {
	id, err := utils.ParseObjectID(teamID, "team id")
	if err != nil {
		return nil, err
	}
	return s.loadByID(ctx, id)
}

func (s *TeamService) loadByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	team, err := s.teams.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load team")
	}
	if team == nil {
		return nil, apperror.NotFound("team not found")
	}
	return team, nil
}
