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

type TeamRepository struct {
	col *mongo.Collection
}

func NewTeamRepository(db *mongo.Database) *TeamRepository {
	return &TeamRepository{col: db.Collection(TeamsCollection)}
}

func (r *TeamRepository) Insert(ctx context.Context, team *models.Team) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	team.ID = primitive.NewObjectID()
	team.Version = 1
	if _, err := r.col.InsertOne(ctx, team); err != nil {
		team.ID = primitive.NilObjectID
		team.Version = 0
		return translateWriteErr(err)
	}
	return nil
}

// FindByID 找不到時回傳 nil, nil
func (r *TeamRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var team models.Team
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&team)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *TeamRepository) FindByMember(ctx context.Context, userID string) ([]models.Team, error) {
	return r.find(ctx, bson.M{"membership.members.userId": userID})
}

func (r *TeamRepository) FindByInvitee(ctx context.Context, userID string) ([]models.Team, error) {
	return r.find(ctx, bson.M{"membership.invitations.userId": userID})
}

func (r *TeamRepository) find(ctx context.Context, filter bson.M) ([]models.Team, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	teams := []models.Team{}
	if err = cursor.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// Replace 以 version 做 compare-and-swap，確保兩個並行的管理操作不會同時通過「最後一位管理員」檢查
func (r *TeamRepository) Replace(ctx context.Context, team *models.Team) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	expected := team.Version
	next := *team
	next.Version = expected + 1

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": team.ID, "version": expected}, next)
	if err != nil {
		return translateWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	team.Version = next.Version
	return nil
}

// Delete 只在版本相符時刪除
func (r *TeamRepository) Delete(ctx context.Context, id primitive.ObjectID, version int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "version": version})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}
