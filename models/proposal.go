package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// ProposalKind 區分個人投標與團隊投標
type ProposalKind string

const (
	ProposalIndividual ProposalKind = "individual"
	ProposalTeam       ProposalKind = "team"
)

// Proposal 對某個職缺的投標 (gig)。Kind 決定 TeamID 是否有意義，
// 請透過 Applicant() 取得對應的投標者，不要直接判斷 TeamID。
type Proposal struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	JobID       string             `bson:"jobId" json:"jobId"`
	SubmitterID string             `bson:"userId" json:"userId"`
	Description string             `bson:"description" json:"description"`
	Status      ProposalStatus     `bson:"status" json:"status"`
	Kind        ProposalKind       `bson:"kind" json:"kind"`
	TeamID      primitive.ObjectID `bson:"teamId,omitempty" json:"teamId,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Applicant 投標者：IndividualApplicant 或 TeamApplicant
type Applicant interface {
	Submitter() string
	isApplicant()
}

type IndividualApplicant struct {
	SubmitterID string
}

type TeamApplicant struct {
	TeamID      primitive.ObjectID
	SubmitterID string
}

func (a IndividualApplicant) Submitter() string { return a.SubmitterID }
func (a TeamApplicant) Submitter() string       { return a.SubmitterID }

func (IndividualApplicant) isApplicant() {}
func (TeamApplicant) isApplicant()       {}

// Applicant 依 Kind 還原投標者；未知的 Kind 回傳 nil
func (p *Proposal) Applicant() Applicant {
	switch p.Kind {
	case ProposalIndividual:
		return IndividualApplicant{SubmitterID: p.SubmitterID}
	case ProposalTeam:
		return TeamApplicant{TeamID: p.TeamID, SubmitterID: p.SubmitterID}
	default:
		return nil
	}
}

// NewTeamProposal 團隊成員代表團隊投標
func NewTeamProposal(teamID primitive.ObjectID, submitterID, jobID, description string, at time.Time) *Proposal {
	return &Proposal{
		JobID:       jobID,
		SubmitterID: submitterID,
		Description: description,
		Status:      ProposalPending,
		Kind:        ProposalTeam,
		TeamID:      teamID,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}
