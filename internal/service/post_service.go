package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	PostTypeText     = "text"
	PostTypeSingle   = "single"
	PostTypeMultiple = "multiple"
)

type PostService interface {
	CreatePost(ctx context.Context, siteID, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	List(ctx context.Context, siteID int64) ([]*models.Post, error)
	PostStatus(ctx context.Context, siteID, postID int64) (*transfer.PostStatusResponse, error)
	Remove(ctx context.Context, siteID, postID int64) error
}

type postService struct {
	db       *sql.DB
	posts    repository.PostRepository
	attempts repository.PublishAttemptRepository
	accounts repository.PlatformAccountRepository
	media    repository.MediaAssetRepository
	pm       repository.PostMediaRepository
	r2       *R2Service
}

func NewPostService(
	db *sql.DB,
	posts repository.PostRepository,
	attempts repository.PublishAttemptRepository,
	accounts repository.PlatformAccountRepository,
	media repository.MediaAssetRepository,
	pm repository.PostMediaRepository,
	r2 *R2Service) PostService {
	return &postService{
		db:       db,
		posts:    posts,
		attempts: attempts,
		accounts: accounts,
		media:    media,
		pm:       pm,
		r2:       r2,
	}
}

// CreatePost stores the post, its target rows and its media in one
// transaction and returns how long until it is due. The caller enqueues the
// publish task with that delay.
func (s *postService) CreatePost(ctx context.Context, siteID, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if pc.Caption == "" && len(files) == 0 {
		err := errors.New("post needs a caption or media")
		slog.Info(err.Error())
		return 0, 0, err
	}

	scheduledTime, err := time.Parse("2006-01-02T15:04", pc.ScheduledTime)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}

	var targetAccounts []int64
	if err := json.Unmarshal([]byte(pc.TargetAccounts), &targetAccounts); err != nil {
		err = fmt.Errorf("invalid target accounts format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}
	if len(targetAccounts) == 0 {
		err := errors.New("no platform accounts targeted")
		slog.Error(err.Error())
		return 0, 0, err
	}

	postType := PostTypeText
	if len(files) == 1 {
		postType = PostTypeSingle
	} else if len(files) > 1 {
		postType = PostTypeMultiple
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		SiteID:        siteID,
		UserID:        userID,
		PostType:      postType,
		Caption:       pc.Caption,
		Title:         pc.Title,
		ScheduledTime: scheduledTime,
		Status:        models.PostStatusScheduled,
	}

	postID, err := s.posts.Create(ctx, tx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.saveTargets(ctx, tx, siteID, postID, targetAccounts); err != nil {
		return 0, 0, fmt.Errorf("error processing target accounts: %w", err)
	}

	if err = s.processFiles(ctx, tx, userID, postID, files); err != nil {
		return 0, 0, fmt.Errorf("error processing files: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	delay := time.Until(scheduledTime)
	if delay < 0 {
		delay = 0
	}

	return postID, delay, nil
}

// saveTargets creates one pending publish attempt per targeted account. Each
// row is the target's whole state machine from here on.
func (s *postService) saveTargets(ctx context.Context, tx *sql.Tx, siteID, postID int64, accountIDs []int64) error {
	for _, accountID := range accountIDs {
		exists, err := s.accounts.CheckBySiteID(ctx, accountID, siteID)
		if err != nil {
			return fmt.Errorf("error checking platform account %d: %w", accountID, err)
		}
		if !exists {
			return fmt.Errorf("platform account %d does not exist", accountID)
		}

		attempt := models.PublishAttempt{
			PostID:    postID,
			AccountID: accountID,
			Status:    models.AttemptStatusPending,
		}
		if _, err := s.attempts.Create(ctx, tx, &attempt); err != nil {
			return fmt.Errorf("error saving target account %d: %w", accountID, err)
		}
	}
	return nil
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, userID, postID int64, files []*multipart.FileHeader) error {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {}, "gif": {}, "webp": {},
	}

	for i, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer fileContent.Close()

		fileBytes, err := io.ReadAll(fileContent)
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		assetID, err := s.saveFile(ctx, tx, userID, fileType.MIME.Value, fileBytes)
		if err != nil {
			return fmt.Errorf("error uploading file: %w", err)
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err := s.pm.Create(ctx, tx, &postMedia); err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
	}
	return nil
}

func (s *postService) saveFile(ctx context.Context, tx *sql.Tx, userID int64, fileType string, file []byte) (int64, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	if err := s.r2.UploadToR2(ctx, id, file, fileType); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	ma := models.MediaAsset{
		UserID:   userID,
		FileName: id,
		FileType: fileType,
		FileSize: int64(len(file)),
		FileURL:  s.r2.PublicURL(id),
	}

	assetID, err := s.media.Create(ctx, tx, &ma)
	if err != nil {
		return 0, err
	}

	return assetID, nil
}

func (s *postService) List(ctx context.Context, siteID int64) ([]*models.Post, error) {
	posts, err := s.posts.ListBySiteID(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}
	return posts, nil
}

// PostStatus returns the aggregate status with the per-target breakdown.
func (s *postService) PostStatus(ctx context.Context, siteID, postID int64) (*transfer.PostStatusResponse, error) {
	isValid, err := s.posts.CheckBySiteID(ctx, postID, siteID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, errors.New("post doesn't exist")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil || post == nil {
		return nil, errors.New("error getting post info")
	}

	targets, err := s.attempts.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	res := &transfer.PostStatusResponse{
		PostID: post.ID,
		Status: post.Status,
	}
	for _, t := range targets {
		res.Targets = append(res.Targets, transfer.PostTargetStatus{
			AccountID:         t.AccountID,
			Status:            t.Status,
			AttemptCount:      t.AttemptCount,
			PlatformContentID: t.PlatformContentID.String,
			LastError:         t.LastError.String,
		})
	}

	return res, nil
}

func (s *postService) Remove(ctx context.Context, siteID, postID int64) error {
	isValid, err := s.posts.CheckBySiteID(ctx, postID, siteID)
	if err != nil {
		return err
	}
	if !isValid {
		return errors.New("post doesn't exist")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post != nil && post.Status == models.PostStatusPublishing {
		return errors.New("post is currently publishing")
	}

	if err := s.pm.RemoveByPostID(ctx, postID); err != nil {
		return err
	}
	if err := s.posts.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post")
	}

	return nil
}
