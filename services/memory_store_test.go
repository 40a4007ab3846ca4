package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"freelance-hub/backend/database"
	"freelance-hub/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 測試用的記憶體儲存層，行為與 database 套件的 repository 相同：
// 回傳副本、以 version 做 compare-and-swap、重複的進行中會議回傳 ErrDuplicate。

func clone[T any](v *T) *T {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

type memoryMeetings struct {
	mu   sync.Mutex
	docs []*models.Meeting
}

func (s *memoryMeetings) FindActive(_ context.Context, meetingID string) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.docs {
		if m.MeetingID == meetingID && m.IsActive {
			return clone(m), nil
		}
	}
	return nil, nil
}

func (s *memoryMeetings) Insert(_ context.Context, meeting *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.docs {
		if m.MeetingID == meeting.MeetingID && m.IsActive && meeting.IsActive {
			return database.ErrDuplicate
		}
	}
	meeting.ID = primitive.NewObjectID()
	meeting.Version = 1
	s.docs = append(s.docs, clone(meeting))
	return nil
}

func (s *memoryMeetings) Replace(_ context.Context, meeting *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.docs {
		if m.ID != meeting.ID {
			continue
		}
		if m.Version != meeting.Version {
			return database.ErrVersionConflict
		}
		meeting.Version++
		s.docs[i] = clone(meeting)
		return nil
	}
	return database.ErrVersionConflict
}

func (s *memoryMeetings) FindByParticipant(_ context.Context, userID string) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Meeting{}
	for _, m := range s.docs {
		for _, p := range m.Participants {
			if p.UserID == userID {
				out = append(out, *clone(m))
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (s *memoryMeetings) FindLatest(_ context.Context, meetingID string) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.Meeting
	for _, m := range s.docs {
		if m.MeetingID != meetingID {
			continue
		}
		switch {
		case best == nil:
			best = m
		case m.IsActive != best.IsActive:
			if m.IsActive {
				best = m
			}
		case m.StartTime.After(best.StartTime):
			best = m
		}
	}
	if best == nil {
		return nil, nil
	}
	return clone(best), nil
}

func (s *memoryMeetings) SetTitle(_ context.Context, id primitive.ObjectID, title string, at time.Time) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.docs {
		if m.ID == id {
			m.Title = title
			m.UpdatedAt = at
			m.Version++
			return clone(m), nil
		}
	}
	return nil, nil
}

type memoryTeams struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.Team
}

func newMemoryTeams() *memoryTeams {
	return &memoryTeams{docs: map[primitive.ObjectID]*models.Team{}}
}

func (s *memoryTeams) Insert(_ context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	team.ID = primitive.NewObjectID()
	team.Version = 1
	s.docs[team.ID] = clone(team)
	return nil
}

func (s *memoryTeams) FindByID(_ context.Context, id primitive.ObjectID) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.docs[id]; ok {
		return clone(t), nil
	}
	return nil, nil
}

func (s *memoryTeams) FindByMember(_ context.Context, userID string) ([]models.Team, error) {
	return s.filter(func(t *models.Team) bool { return t.Membership.IsMember(userID) }), nil
}

func (s *memoryTeams) FindByInvitee(_ context.Context, userID string) ([]models.Team, error) {
	return s.filter(func(t *models.Team) bool { return t.Membership.IsInvited(userID) }), nil
}

func (s *memoryTeams) filter(keep func(*models.Team) bool) []models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Team{}
	for _, t := range s.docs {
		if keep(t) {
			out = append(out, *clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memoryTeams) Replace(_ context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.docs[team.ID]
	if !ok || current.Version != team.Version {
		return database.ErrVersionConflict
	}
	team.Version++
	s.docs[team.ID] = clone(team)
	return nil
}

func (s *memoryTeams) Delete(_ context.Context, id primitive.ObjectID, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.docs[id]
	if !ok || current.Version != version {
		return database.ErrVersionConflict
	}
	delete(s.docs, id)
	return nil
}

type memoryProposals struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.Proposal
}

func newMemoryProposals() *memoryProposals {
	return &memoryProposals{docs: map[primitive.ObjectID]*models.Proposal{}}
}

func (s *memoryProposals) Insert(_ context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Kind == models.ProposalTeam && p.Status == models.ProposalPending {
		for _, existing := range s.docs {
			if existing.Kind == models.ProposalTeam && existing.Status == models.ProposalPending &&
				existing.TeamID == p.TeamID && existing.JobID == p.JobID {
				return database.ErrDuplicate
			}
		}
	}
	p.ID = primitive.NewObjectID()
	s.docs[p.ID] = clone(p)
	return nil
}

func (s *memoryProposals) FindByID(_ context.Context, id primitive.ObjectID) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.docs[id]; ok {
		return clone(p), nil
	}
	return nil, nil
}

func (s *memoryProposals) FindByTeams(_ context.Context, teamIDs []primitive.ObjectID) ([]models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[primitive.ObjectID]bool{}
	for _, id := range teamIDs {
		wanted[id] = true
	}
	out := []models.Proposal{}
	for _, p := range s.docs {
		if p.Kind == models.ProposalTeam && wanted[p.TeamID] {
			out = append(out, *clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryProposals) DeletePending(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.docs[id]
	if !ok || p.Status != models.ProposalPending {
		return false, nil
	}
	delete(s.docs, id)
	return true, nil
}

func (s *memoryProposals) DeletePendingByTeam(_ context.Context, teamID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.docs {
		if p.Kind == models.ProposalTeam && p.TeamID == teamID && p.Status == models.ProposalPending {
			delete(s.docs, id)
			n++
		}
	}
	return n, nil
}

// recorder 收集發佈的事件
type recorder struct {
	mu     sync.Mutex
	events []models.MeetingEvent
}

func (r *recorder) Publish(event models.MeetingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// fixedClock 每次呼叫前進一秒
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
