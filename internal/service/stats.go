package service

import (
	appErrors "github.com/ingressos/disparador-backend/internal/errors"
	"github.com/ingressos/disparador-backend/internal/model"
)

// Stats recomputes the aggregate figures for a campaign by scanning its
// ledger rows. Scheduled and in-flight rows count as pending: they represent
// work not yet resolved.
func (s *CampaignService) Stats(campaignID string) (*model.CampaignStats, error) {
	counts, err := s.SendRepo.CountByStatus(campaignID)
	if err != nil {
		return nil, appErrors.NewDataAccess("count sends", err)
	}
	sentToday, err := s.SendRepo.CountSentToday(campaignID)
	if err != nil {
		return nil, appErrors.NewDataAccess("count sends today", err)
	}

	stats := &model.CampaignStats{
		Sent:      counts[model.SendSent],
		Pending:   counts[model.SendScheduled] + counts[model.SendPending] + counts[model.SendSending],
		Failed:    counts[model.SendFailed],
		SentToday: sentToday,
	}
	stats.Total = stats.Sent + stats.Pending + stats.Failed
	return stats, nil
}

// CheckCompletion applies the completion predicate and, on a match, moves the
// campaign to dispatched. The transition is conditional on the current
// status, so redundant calls are harmless. Reports whether the campaign is
// complete (whether or not this call performed the transition).
//
// Failed rows with exhausted attempts are terminal: the retry pass will never
// pick them up, so they must not keep a campaign dispatching forever.
func (s *CampaignService) CheckCompletion(campaignID string) (bool, error) {
	stats, err := s.Stats(campaignID)
	if err != nil {
		return false, err
	}
	retryable, err := s.SendRepo.CountRetryableFailed(campaignID, s.MaxAttempts)
	if err != nil {
		return false, appErrors.NewDataAccess("count retryable sends", err)
	}

	complete := stats.Sent >= s.RecipientCap ||
		(stats.Pending == 0 && retryable == 0) ||
		(stats.Total > 0 && stats.Sent == stats.Total)
	if !complete {
		return false, nil
	}

	moved, err := s.CampaignRepo.TransitionStatus(campaignID,
		[]string{model.StatusDispatching, model.StatusPaused},
		model.StatusDispatched,
	)
	if err != nil {
		return false, appErrors.NewDataAccess("complete campaign", err)
	}
	if moved {
		s.Log.Info().Str("campaign_id", campaignID).Int("sent", stats.Sent).Int("failed", stats.Failed).Msg("campaign dispatched")
	}
	return true, nil
}
