package models

import (
	"encoding/json"
	"time"

	"freelance-hub/backend/apperror"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeamRole 成員在團隊中的角色
type TeamRole string

const (
	TeamRoleAdmin  TeamRole = "admin"
	TeamRoleMember TeamRole = "member"
)

func (r TeamRole) Valid() bool {
	return r == TeamRoleAdmin || r == TeamRoleMember
}

type TeamStatus string

const TeamStatusActive TeamStatus = "active"

// Member 團隊成員與其角色，兩者永遠一起儲存
type Member struct {
	UserID   string    `bson:"userId" json:"userId"`
	Role     TeamRole  `bson:"role" json:"role"`
	JoinedAt time.Time `bson:"joinedAt" json:"joinedAt"`
}

// Invitation 尚未回覆的邀請
type Invitation struct {
	UserID    string    `bson:"userId" json:"userId"`
	InvitedBy string    `bson:"invitedBy" json:"invitedBy"`
	InvitedAt time.Time `bson:"invitedAt" json:"invitedAt"`
}

// Membership 擁有團隊的成員、角色與邀請。
// 一個使用者在任何時候只會處於 非成員 / 受邀 / 成員 / 管理員 其中一種狀態，
// 且只要有成員就至少有一位管理員。
type Membership struct {
	members     []Member
	invitations []Invitation
}

type membershipDoc struct {
	Members     []Member     `bson:"members"`
	Invitations []Invitation `bson:"invitations"`
}

func (m Membership) MarshalBSON() ([]byte, error) {
	doc := membershipDoc{Members: m.members, Invitations: m.invitations}
	if doc.Members == nil {
		doc.Members = []Member{}
	}
	if doc.Invitations == nil {
		doc.Invitations = []Invitation{}
	}
	return bson.Marshal(doc)
}

func (m *Membership) UnmarshalBSON(data []byte) error {
	var doc membershipDoc
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	m.members = doc.Members
	m.invitations = doc.Invitations
	return nil
}

func (m *Membership) memberIndex(userID string) int {
	for i, mem := range m.members {
		if mem.UserID == userID {
			return i
		}
	}
	return -1
}

func (m *Membership) invitationIndex(userID string) int {
	for i, inv := range m.invitations {
		if inv.UserID == userID {
			return i
		}
	}
	return -1
}

func (m *Membership) IsMember(userID string) bool {
	return m.memberIndex(userID) >= 0
}

func (m *Membership) IsInvited(userID string) bool {
	return m.invitationIndex(userID) >= 0
}

func (m *Membership) IsAdmin(userID string) bool {
	role, ok := m.RoleOf(userID)
	return ok && role == TeamRoleAdmin
}

func (m *Membership) RoleOf(userID string) (TeamRole, bool) {
	if i := m.memberIndex(userID); i >= 0 {
		return m.members[i].Role, true
	}
	return "", false
}

func (m *Membership) AdminCount() int {
	n := 0
	for _, mem := range m.members {
		if mem.Role == TeamRoleAdmin {
			n++
		}
	}
	return n
}

func (m *Membership) Size() int { return len(m.members) }

// Members 回傳成員的副本
func (m *Membership) Members() []Member {
	return append([]Member(nil), m.members...)
}

func (m *Membership) MemberIDs() []string {
	ids := make([]string, 0, len(m.members))
	for _, mem := range m.members {
		ids = append(ids, mem.UserID)
	}
	return ids
}

func (m *Membership) Roles() map[string]TeamRole {
	roles := make(map[string]TeamRole, len(m.members))
	for _, mem := range m.members {
		roles[mem.UserID] = mem.Role
	}
	return roles
}

func (m *Membership) Invitations() []Invitation {
	return append([]Invitation(nil), m.invitations...)
}

func (m *Membership) InviteeIDs() []string {
	ids := make([]string, 0, len(m.invitations))
	for _, inv := range m.invitations {
		ids = append(ids, inv.UserID)
	}
	return ids
}

// Invite 管理員邀請非成員
func (m *Membership) Invite(inviterID, inviteeID string, at time.Time) error {
	if inviteeID == "" {
		return apperror.Validation("invitee id is required")
	}
	if !m.IsAdmin(inviterID) {
		return apperror.Forbidden("only team admins can invite members")
	}
	if m.IsMember(inviteeID) {
		return apperror.Conflict("user is already a member of this team")
	}
	if m.IsInvited(inviteeID) {
		return apperror.Conflict("user already has a pending invitation")
	}
	m.invitations = append(m.invitations, Invitation{UserID: inviteeID, InvitedBy: inviterID, InvitedAt: at})
	return nil
}

// Accept 受邀者接受邀請，成為一般成員
func (m *Membership) Accept(userID string, at time.Time) error {
	i := m.invitationIndex(userID)
	if i < 0 {
		return apperror.NotFound("no pending invitation for this team")
	}
	m.invitations = append(m.invitations[:i], m.invitations[i+1:]...)
	m.members = append(m.members, Member{UserID: userID, Role: TeamRoleMember, JoinedAt: at})
	return nil
}

// Reject 受邀者拒絕邀請
func (m *Membership) Reject(userID string) error {
	i := m.invitationIndex(userID)
	if i < 0 {
		return apperror.NotFound("no pending invitation for this team")
	}
	m.invitations = append(m.invitations[:i], m.invitations[i+1:]...)
	return nil
}

// Revoke 管理員撤回邀請，效果與拒絕相同
func (m *Membership) Revoke(adminID, inviteeID string) error {
	if !m.IsAdmin(adminID) {
		return apperror.Forbidden("only team admins can revoke invitations")
	}
	return m.Reject(inviteeID)
}

// Remove 管理員移除成員，或成員自行離開 (requesterID == targetID)。
// 最後一位管理員不能被移除。
func (m *Membership) Remove(requesterID, targetID string) error {
	if requesterID == targetID {
		if !m.IsMember(requesterID) {
			return apperror.Forbidden("not a member of this team")
		}
	} else if !m.IsAdmin(requesterID) {
		return apperror.Forbidden("only team admins can remove members")
	}

	i := m.memberIndex(targetID)
	if i < 0 {
		return apperror.NotFound("member not found in this team")
	}
	if m.members[i].Role == TeamRoleAdmin && m.AdminCount() == 1 {
		return apperror.Conflict("team must keep at least one admin; promote another member first")
	}
	m.members = append(m.members[:i], m.members[i+1:]...)
	return nil
}

// SetRole 管理員變更成員角色；不能讓團隊沒有管理員
func (m *Membership) SetRole(requesterID, targetID string, role TeamRole) error {
	if !role.Valid() {
		return apperror.Validation("role must be one of: admin, member")
	}
	if !m.IsAdmin(requesterID) {
		return apperror.Forbidden("only team admins can change roles")
	}
	i := m.memberIndex(targetID)
	if i < 0 {
		return apperror.NotFound("member not found in this team")
	}
	current := m.members[i].Role
	if current == role {
		return nil
	}
	if current == TeamRoleAdmin && m.AdminCount() == 1 {
		return apperror.Conflict("team must keep at least one admin; promote another member first")
	}
	m.members[i].Role = role
	return nil
}

// Team 由自由工作者組成的團隊
type Team struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Status      TeamStatus         `bson:"status" json:"status"`
	Membership  Membership         `bson:"membership" json:"-"`
	CreatedBy   string             `bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
	Version     int64              `bson:"version" json:"-"`
}

// NewTeam 建立者成為唯一的管理員
func NewTeam(name, description, creatorID string, at time.Time) *Team {
	return &Team{
		Name:        name,
		Description: description,
		Status:      TeamStatusActive,
		Membership: Membership{
			members: []Member{{UserID: creatorID, Role: TeamRoleAdmin, JoinedAt: at}},
		},
		CreatedBy: creatorID,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func (t Team) MarshalJSON() ([]byte, error) {
	type alias Team
	return json.Marshal(struct {
		alias
		Members     []string            `json:"members"`
		Roles       map[string]TeamRole `json:"roles"`
		Invitations []string            `json:"invitations"`
	}{
		alias:       alias(t),
		Members:     t.Membership.MemberIDs(),
		Roles:       t.Membership.Roles(),
		Invitations: t.Membership.InviteeIDs(),
	})
}

// TeamInvitationView 使用者收到的邀請，附上團隊基本資料
type TeamInvitationView struct {
	TeamID      primitive.ObjectID `json:"teamId"`
	TeamName    string             `json:"teamName"`
	Description string             `json:"description"`
	InvitedBy   string             `json:"invitedBy"`
	InvitedAt   time.Time          `json:"invitedAt"`
}

func (t *Team) InvitationFor(userID string) (TeamInvitationView, bool) {
	i := t.Membership.invitationIndex(userID)
	if i < 0 {
		return TeamInvitationView{}, false
	}
	inv := t.Membership.invitations[i]
	return TeamInvitationView{
		TeamID:      t.ID,
		TeamName:    t.Name,
		Description: t.Description,
		InvitedBy:   inv.InvitedBy,
		InvitedAt:   inv.InvitedAt,
	}, true
}
