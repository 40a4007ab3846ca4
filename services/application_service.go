package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/database"
	"freelance-hub/backend/metrics"
	"freelance-hub/backend/models"
	"freelance-hub/backend/utils"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplicationService 團隊代表投標 (team application) 的提交、列表與撤回
type ApplicationService struct {
	teams     TeamStore
	proposals ProposalStore
	now       func() time.Time
}

func NewApplicationService(teams TeamStore, proposals ProposalStore) *ApplicationService {
	return &ApplicationService{teams: teams, proposals: proposals, now: time.Now}
}

// Submit 成員代表團隊投標；同一團隊對同一職缺只能有一筆待審核的投標
func (s *ApplicationService) Submit(ctx context.Context, teamID, submitterID string, req models.SubmitApplicationRequest) (*models.Proposal, error) {
	req.JobID = strings.TrimSpace(req.JobID)
	req.Description = strings.TrimSpace(req.Description)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	id, err := utils.ParseObjectID(teamID, "team id")
	if err != nil {
		return nil, err
	}

	team, err := s.teams.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load team")
	}
	if team == nil {
		return nil, apperror.NotFound("team not found")
	}
	if !team.Membership.IsMember(submitterID) {
		return nil, apperror.Forbidden("only team members can apply on behalf of the team")
	}

	proposal := models.NewTeamProposal(team.ID, submitterID, req.JobID, req.Description, s.now())
	err = s.proposals.Insert(ctx, proposal)
	if errors.Is(err, database.ErrDuplicate) {
		err = apperror.Conflict("team already has a pending application for this job")
	} else if err != nil {
		err = apperror.Internal(err, "failed to submit application")
	}
	metrics.TeamOperations.WithLabelValues("submit_application", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"teamId":        teamID,
		"jobId":         req.JobID,
		"applicationId": proposal.ID.Hex(),
	}).Info("Team application submitted")
	return proposal, nil
}

// List 使用者所屬所有團隊的投標，由新到舊
func (s *ApplicationService) List(ctx context.Context, userID string) ([]models.Proposal, error) {
	teams, err := s.teams.FindByMember(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load teams")
	}
	if len(teams) == 0 {
		return []models.Proposal{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(teams))
	for _, team := range teams {
		ids = append(ids, team.ID)
	}
	proposals, err := s.proposals.FindByTeams(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load applications")
	}
	return proposals, nil
}

// Withdraw 投標者本人或團隊管理員可以撤回待審核的投標
func (s *ApplicationService) Withdraw(ctx context.Context, applicationID, requesterID string) error {
	err := s.withdraw(ctx, applicationID, requesterID)
	metrics.TeamOperations.WithLabelValues("withdraw_application", metrics.Outcome(err)).Inc()
	return err
}

func (s *ApplicationService) withdraw(ctx context.Context, applicationID, requesterID string) error {
	id, err := utils.ParseObjectID(applicationID, "application id")
	if err != nil {
		return err
	}
	proposal, err := s.proposals.FindByID(ctx, id)
	if err != nil {
		return apperror.Internal(err, "failed to load application")
	}
	if proposal == nil {
		return apperror.NotFound("application not found")
	}

	switch applicant := proposal.Applicant().(type) {
	case models.TeamApplicant:
		team, err := s.teams.FindByID(ctx, applicant.TeamID)
		if err != nil {
			return apperror.Internal(err, "failed to load team")
		}
		if team == nil {
			return apperror.NotFound("team not found")
		}
		if applicant.Submitter() != requesterID && !team.Membership.IsAdmin(requesterID) {
			return apperror.Forbidden("only the submitter or a team admin can withdraw this application")
		}
	case models.IndividualApplicant:
		if applicant.Submitter() != requesterID {
			return apperror.Forbidden("only the submitter can withdraw this application")
		}
	default:
		return apperror.Internal(nil, "application has unknown kind")
	}

	if proposal.Status != models.ProposalPending {
		return apperror.Conflict("only pending applications can be withdrawn")
	}
	deleted, err := s.proposals.DeletePending(ctx, proposal.ID)
	if err != nil {
		return apperror.Internal(err, "failed to withdraw application")
	}
	if !deleted {
		// 讀取之後被接受/拒絕或已被撤回
		return apperror.Conflict("only pending applications can be withdrawn")
	}

	log.WithFields(log.Fields{"applicationId": applicationID, "by": requesterID}).Info("Team application withdrawn")
	return nil
}
