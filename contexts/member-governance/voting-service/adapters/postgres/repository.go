package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quorum/contexts/member-governance/voting-service/domain/entities"
	domainerrors "quorum/contexts/member-governance/voting-service/domain/errors"
	"quorum/contexts/member-governance/voting-service/ports"
	"quorum/internal/shared/outbox"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	constraintTopicTitle      = "topics_title_unique"
	constraintSessionOpenSlot = "sessions_topic_open_unique"
	constraintBallotIdentity  = "ballots_session_member_unique"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateTopic(ctx context.Context, topic entities.Topic) error {
	row := topicModelFromEntity(topic)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) && constraintName(err) == constraintTopicTitle {
			return domainerrors.ErrDuplicateTitle
		}
		return r.logError("voting_repo_create_topic_failed", err, "topic_id", topic.TopicID)
	}
	return nil
}

func (r *Repository) GetTopic(ctx context.Context, topicID string) (entities.Topic, error) {
	var row topicModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(topicID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Topic{}, domainerrors.ErrTopicNotFound
		}
		return entities.Topic{}, r.logError("voting_repo_get_topic_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListTopics(ctx context.Context) ([]entities.Topic, error) {
	var rows []topicModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_topics_failed", err)
	}
	items := make([]entities.Topic, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) TitleExists(ctx context.Context, title string, excludeTopicID string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&topicModel{}).
		Where("LOWER(title) = LOWER(?)", strings.TrimSpace(title))
	if strings.TrimSpace(excludeTopicID) != "" {
		tx = tx.Where("id <> ?", strings.TrimSpace(excludeTopicID))
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, r.logError("voting_repo_title_exists_failed", err, "title", strings.TrimSpace(title))
	}
	return count > 0, nil
}

func (r *Repository) UpdateTopic(ctx context.Context, topic entities.Topic) error {
	result := r.db.WithContext(ctx).Model(&topicModel{}).
		Where("id = ?", strings.TrimSpace(topic.TopicID)).
		Updates(map[string]any{
			"title":       strings.TrimSpace(topic.Title),
			"description": strings.TrimSpace(topic.Description),
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domainerrors.ErrDuplicateTitle
		}
		return r.logError("voting_repo_update_topic_failed", result.Error, "topic_id", topic.TopicID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrTopicNotFound
	}
	return nil
}

func (r *Repository) DeleteTopic(ctx context.Context, topicID string) error {
	topicID = strings.TrimSpace(topicID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessionIDs := tx.Model(&sessionModel{}).Select("id").Where("topic_id = ?", topicID)
		if err := tx.Where("session_id IN (?)", sessionIDs).Delete(&ballotModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("topic_id = ?", topicID).Delete(&sessionModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", topicID).Delete(&topicModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrTopicNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrTopicNotFound) {
			return err
		}
		return r.logError("voting_repo_delete_topic_failed", err, "topic_id", topicID)
	}
	return nil
}

func (r *Repository) CreateOpenSession(ctx context.Context, session entities.Session) error {
	row := sessionModelFromEntity(session)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) && constraintName(err) == constraintSessionOpenSlot {
			return domainerrors.ErrSessionAlreadyOpen
		}
		return r.logError("voting_repo_create_session_failed", err,
			"session_id", session.SessionID,
			"topic_id", session.TopicID,
		)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (entities.Session, error) {
	var row sessionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(sessionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Session{}, domainerrors.ErrSessionNotFound
		}
		return entities.Session{}, r.logError("voting_repo_get_session_failed", err, "session_id", strings.TrimSpace(sessionID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListSessionsByTopic(ctx context.Context, topicID string) ([]entities.Session, error) {
	var rows []sessionModel
	if err := r.db.WithContext(ctx).
		Where("topic_id = ?", strings.TrimSpace(topicID)).
		Order("starts_at DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_sessions_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	return toSessionEntities(rows), nil
}

func (r *Repository) GetOpenSessionByTopic(ctx context.Context, topicID string) (entities.Session, bool, error) {
	var row sessionModel
	err := r.db.WithContext(ctx).
		Where("topic_id = ? AND status = ?", strings.TrimSpace(topicID), string(entities.SessionStatusOpen)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Session{}, false, nil
		}
		return entities.Session{}, false, r.logError("voting_repo_get_open_session_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	return row.toEntity(), true, nil
}

func (r *Repository) HasOpenSession(ctx context.Context, topicID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("topic_id = ? AND status = ?", strings.TrimSpace(topicID), string(entities.SessionStatusOpen)).
		Count(&count).
		Error
	if err != nil {
		return false, r.logError("voting_repo_has_open_session_failed", err, "topic_id", strings.TrimSpace(topicID))
	}
	return count > 0, nil
}

func (r *Repository) ListExpiredOpenSessions(ctx context.Context, now time.Time) ([]entities.Session, error) {
	var rows []sessionModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at <= ?", string(entities.SessionStatusOpen), now.UTC()).
		Order("ends_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_expired_sessions_failed", err)
	}
	return toSessionEntities(rows), nil
}

func (r *Repository) CloseSession(ctx context.Context, sessionID string, closedAt time.Time) (bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	result := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ? AND status = ?", sessionID, string(entities.SessionStatusOpen)).
		Updates(map[string]any{
			"status":     string(entities.SessionStatusClosed),
			"updated_at": closedAt.UTC(),
		})
	if result.Error != nil {
		return false, r.logError("voting_repo_close_session_failed", result.Error, "session_id", sessionID)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// No row flipped: either the session is gone or another writer already
	// closed it. Distinguish the two for the caller.
	var count int64
	if err := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ?", sessionID).
		Count(&count).Error; err != nil {
		return false, r.logError("voting_repo_close_session_lookup_failed", err, "session_id", sessionID)
	}
	if count == 0 {
		return false, domainerrors.ErrSessionNotFound
	}
	return false, nil
}

func (r *Repository) CloseSessionsBatch(ctx context.Context, sessionIDs []string, closedAt time.Time) (int, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id IN ? AND status = ?", sessionIDs, string(entities.SessionStatusOpen)).
		Updates(map[string]any{
			"status":     string(entities.SessionStatusClosed),
			"updated_at": closedAt.UTC(),
		})
	if result.Error != nil {
		return 0, r.logError("voting_repo_close_sessions_batch_failed", result.Error, "session_count", len(sessionIDs))
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) CreateBallot(ctx context.Context, ballot entities.Ballot) error {
	row := ballotModelFromEntity(ballot)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) && constraintName(err) == constraintBallotIdentity {
			return domainerrors.ErrAlreadyVoted
		}
		return r.logError("voting_repo_create_ballot_failed", err,
			"ballot_id", ballot.BallotID,
			"session_id", ballot.SessionID,
			"member_id", ballot.MemberID,
		)
	}
	return nil
}

func (r *Repository) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	var row ballotModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(ballotID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, domainerrors.ErrBallotNotFound
		}
		return entities.Ballot{}, r.logError("voting_repo_get_ballot_failed", err, "ballot_id", strings.TrimSpace(ballotID))
	}
	return row.toEntity(), nil
}

func (r *Repository) HasBallot(ctx context.Context, sessionID string, memberID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ballotModel{}).
		Where("session_id = ? AND member_id = ?", strings.TrimSpace(sessionID), strings.TrimSpace(memberID)).
		Count(&count).
		Error
	if err != nil {
		return false, r.logError("voting_repo_has_ballot_failed", err,
			"session_id", strings.TrimSpace(sessionID),
			"member_id", strings.TrimSpace(memberID),
		)
	}
	return count > 0, nil
}

func (r *Repository) ListBallotsBySession(ctx context.Context, sessionID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Order("cast_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_ballots_by_session_failed", err, "session_id", strings.TrimSpace(sessionID))
	}
	return toBallotEntities(rows), nil
}

func (r *Repository) ListBallotsByMember(ctx context.Context, memberID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		Order("cast_at DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_ballots_by_member_failed", err, "member_id", strings.TrimSpace(memberID))
	}
	return toBallotEntities(rows), nil
}

func (r *Repository) CountBallotsByChoice(ctx context.Context, sessionID string, choice entities.VoteChoice) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ballotModel{}).
		Where("session_id = ? AND choice = ?", strings.TrimSpace(sessionID), string(choice)).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("voting_repo_count_ballots_failed", err, "session_id", strings.TrimSpace(sessionID))
	}
	return int(count), nil
}

func (r *Repository) AppendOutbox(ctx context.Context, message ports.OutboxMessage) error {
	row := outboxModel{
		OutboxID:     message.OutboxID,
		EventType:    message.EventType,
		PartitionKey: message.PartitionKey,
		Payload:      message.Payload,
		Status:       outbox.StatusPending,
		CreatedAt:    message.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("voting_repo_append_outbox_failed", err, "outbox_id", message.OutboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_pending_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", outboxID).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		}).Error
	if err != nil {
		return r.logError("voting_repo_mark_outbox_published_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "member-governance/voting-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("voting repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

var _ ports.TopicRepository = (*Repository)(nil)
var _ ports.SessionRepository = (*Repository)(nil)
var _ ports.BallotRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
