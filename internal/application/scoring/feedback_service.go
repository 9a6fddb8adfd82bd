package scoring

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// FeedbackService records outcome reports against past decisions.
type FeedbackService struct {
	decisionRepo scoring.DecisionRepository
	feedbackRepo scoring.FeedbackRepository
	logger       *zap.Logger
}

// NewFeedbackService creates a feedback service.
func NewFeedbackService(
	decisionRepo scoring.DecisionRepository,
	feedbackRepo scoring.FeedbackRepository,
	logger *zap.Logger,
) *FeedbackService {
	return &FeedbackService{
		decisionRepo: decisionRepo,
		feedbackRepo: feedbackRepo,
		logger:       logger,
	}
}

// SubmitFeedback validates the decision reference and persists the
// outcome. Repeated feedback for the same decision is accepted.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, decisionID uuid.UUID, positive bool, outcomeType string, value *float64, notes string) (*scoring.Feedback, error) {
	decision, err := s.decisionRepo.FindByID(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if decision == nil {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("decision %s not found", decisionID))
	}

	feedback := scoring.NewFeedback(decisionID, positive, outcomeType, value, notes)
	if err := s.feedbackRepo.Save(ctx, feedback); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	s.logger.Info("feedback recorded",
		zap.String("decision_id", decisionID.String()),
		zap.String("tool", decision.ToolName),
		zap.Bool("positive", positive))

	return feedback, nil
}

// ListByDecision returns all feedback recorded for a decision.
func (s *FeedbackService) ListByDecision(ctx context.Context, decisionID uuid.UUID) ([]*scoring.Feedback, error) {
	return s.feedbackRepo.ListByDecision(ctx, decisionID)
}
