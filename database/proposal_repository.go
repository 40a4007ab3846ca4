package database

import (
	"context"
	"errors"

	"freelance-hub/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProposalRepository struct {
	col *mongo.Collection
}

func NewProposalRepository(db *mongo.Database) *ProposalRepository {
	return &ProposalRepository{col: db.Collection(ProposalsCollection)}
}

// Insert 同一團隊對同一職缺已有待審核投標時回傳 ErrDuplicate
func (r *ProposalRepository) Insert(ctx context.Context, proposal *models.Proposal) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	proposal.ID = primitive.NewObjectID()
	if _, err := r.col.InsertOne(ctx, proposal); err != nil {
		proposal.ID = primitive.NilObjectID
		return translateWriteErr(err)
	}
	return nil
}

func (r *ProposalRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Proposal, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var proposal models.Proposal
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&proposal)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// FindByTeams 多個團隊的團隊投標，由新到舊
func (r *ProposalRepository) FindByTeams(ctx context.Context, teamIDs []primitive.ObjectID) ([]models.Proposal, error) {
	proposals := []models.Proposal{}
	if len(teamIDs) == 0 {
		return proposals, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"kind":   models.ProposalTeam,
		"teamId": bson.M{"$in": teamIDs},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}

// DeletePending 只刪除仍在待審核狀態的投標，回傳是否有刪除
func (r *ProposalRepository) DeletePending(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "status": models.ProposalPending})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeletePendingByTeam 刪除團隊所有待審核的投標
func (r *ProposalRepository) DeletePendingByTeam(ctx context.Context, teamID primitive.ObjectID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{
		"kind":   models.ProposalTeam,
		"teamId": teamID,
		"status": models.ProposalPending,
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
