package database

import (
	"context"
	"errors"
	"time"

	"freelance-hub/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MeetingRepository struct {
	col *mongo.Collection
}

func NewMeetingRepository(db *mongo.Database) *MeetingRepository {
	return &MeetingRepository{col: db.Collection(MeetingsCollection)}
}

// FindActive 找不到時回傳 nil, nil
func (r *MeetingRepository) FindActive(ctx context.Context, meetingID string) (*models.Meeting, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var meeting models.Meeting
	err := r.col.FindOne(ctx, bson.M{"meetingId": meetingID, "isActive": true}).Decode(&meeting)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

// Insert 建立新會議；同一 meetingId 已有進行中的會議時回傳 ErrDuplicate
func (r *MeetingRepository) Insert(ctx context.Context, meeting *models.Meeting) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	meeting.ID = primitive.NewObjectID()
	meeting.Version = 1
	if _, err := r.col.InsertOne(ctx, meeting); err != nil {
		meeting.ID = primitive.NilObjectID
		meeting.Version = 0
		return translateWriteErr(err)
	}
	return nil
}

// Replace 以 version 做 compare-and-swap；版本不符時回傳 ErrVersionConflict
func (r *MeetingRepository) Replace(ctx context.Context, meeting *models.Meeting) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	expected := meeting.Version
	next := *meeting
	next.Version = expected + 1

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": meeting.ID, "version": expected}, next)
	if err != nil {
		return translateWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	meeting.Version = next.Version
	return nil
}

// FindByParticipant 使用者參與過的所有會議，依 startTime 由新到舊
func (r *MeetingRepository) FindByParticipant(ctx context.Context, userID string) ([]models.Meeting, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "startTime", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"participants.userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	meetings := []models.Meeting{}
	if err = cursor.All(ctx, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// FindLatest 同一 meetingId 可能有多筆歷史紀錄：優先回傳進行中的，
// 否則回傳 startTime 最新的一筆
func (r *MeetingRepository) FindLatest(ctx context.Context, meetingID string) (*models.Meeting, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	findOptions := options.FindOne().SetSort(bson.D{
		{Key: "isActive", Value: -1},
		{Key: "startTime", Value: -1},
	})
	var meeting models.Meeting
	err := r.col.FindOne(ctx, bson.M{"meetingId": meetingID}, findOptions).Decode(&meeting)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

// SetTitle 更新標題並回傳更新後的文件
func (r *MeetingRepository) SetTitle(ctx context.Context, id primitive.ObjectID, title string, at time.Time) (*models.Meeting, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"title": title, "updatedAt": at},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var meeting models.Meeting
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&meeting)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}
