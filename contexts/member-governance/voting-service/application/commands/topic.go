package commands

import (
	"context"
	"log/slog"
	"strings"

	"quorum/contexts/member-governance/voting-service/application"
	"quorum/contexts/member-governance/voting-service/domain/entities"
	domainerrors "quorum/contexts/member-governance/voting-service/domain/errors"
	"quorum/contexts/member-governance/voting-service/ports"
)

const (
	titleMinLength       = 3
	titleMaxLength       = 200
	descriptionMaxLength = 1000
)

// CreateTopicCommand is the write-model input for topic creation.
type CreateTopicCommand struct {
	Title       string
	Description string
}

// UpdateTopicCommand changes a topic's title and/or description.
type UpdateTopicCommand struct {
	TopicID     string
	Title       string
	Description string
}

// TopicUseCase orchestrates agenda topic writes: creation with
// case-insensitive title uniqueness, updates, and cascading deletion.
type TopicUseCase struct {
	Topics ports.TopicRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc TopicUseCase) CreateTopic(ctx context.Context, cmd CreateTopicCommand) (entities.Topic, error) {
	logger := application.ResolveLogger(uc.Logger)
	title := strings.TrimSpace(cmd.Title)
	description := strings.TrimSpace(cmd.Description)
	if err := validateTopicInput(title, description); err != nil {
		logger.Warn("topic create validation failed",
			"event", "voting_topic_create_validation_failed",
			"module", "member-governance/voting-service",
			"layer", "application",
			"title", title,
		)
		return entities.Topic{}, err
	}

	exists, err := uc.Topics.TitleExists(ctx, title, "")
	if err != nil {
		return entities.Topic{}, err
	}
	if exists {
		return entities.Topic{}, domainerrors.ErrDuplicateTitle
	}

	topicID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Topic{}, err
	}
	topic := entities.Topic{
		TopicID:     topicID,
		Title:       title,
		Description: description,
		CreatedAt:   uc.Clock.Now().UTC(),
	}
	if err := uc.Topics.CreateTopic(ctx, topic); err != nil {
		return entities.Topic{}, err
	}

	logger.Info("topic created",
		"event", "voting_topic_created",
		"module", "member-governance/voting-service",
		"layer", "application",
		"topic_id", topic.TopicID,
		"title", topic.Title,
	)
	return topic, nil
}

func (uc TopicUseCase) UpdateTopic(ctx context.Context, cmd UpdateTopicCommand) (entities.Topic, error) {
	logger := application.ResolveLogger(uc.Logger)
	title := strings.TrimSpace(cmd.Title)
	description := strings.TrimSpace(cmd.Description)
	if err := validateTopicInput(title, description); err != nil {
		return entities.Topic{}, err
	}

	topic, err := uc.Topics.GetTopic(ctx, strings.TrimSpace(cmd.TopicID))
	if err != nil {
		return entities.Topic{}, err
	}

	if !strings.EqualFold(topic.Title, title) {
		exists, err := uc.Topics.TitleExists(ctx, title, topic.TopicID)
		if err != nil {
			return entities.Topic{}, err
		}
		if exists {
			return entities.Topic{}, domainerrors.ErrDuplicateTitle
		}
	}

	topic.Title = title
	topic.Description = description
	if err := uc.Topics.UpdateTopic(ctx, topic); err != nil {
		return entities.Topic{}, err
	}

	logger.Info("topic updated",
		"event", "voting_topic_updated",
		"module", "member-governance/voting-service",
		"layer", "application",
		"topic_id", topic.TopicID,
	)
	return topic, nil
}

// DeleteTopic removes a topic and, by cascade, its sessions and their ballots.
func (uc TopicUseCase) DeleteTopic(ctx context.Context, topicID string) error {
	logger := application.ResolveLogger(uc.Logger)
	topic, err := uc.Topics.GetTopic(ctx, strings.TrimSpace(topicID))
	if err != nil {
		return err
	}
	if err := uc.Topics.DeleteTopic(ctx, topic.TopicID); err != nil {
		return err
	}

	logger.Info("topic deleted",
		"event", "voting_topic_deleted",
		"module", "member-governance/voting-service",
		"layer", "application",
		"topic_id", topic.TopicID,
	)
	return nil
}

func validateTopicInput(title string, description string) error {
	if len(title) < titleMinLength || len(title) > titleMaxLength {
		return domainerrors.ErrInvalidTopicInput
	}
	if len(description) > descriptionMaxLength {
		return domainerrors.ErrInvalidTopicInput
	}
	return nil
}
