package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ingressos/disparador-backend/internal/distlock"
	"github.com/ingressos/disparador-backend/internal/messaging"
	"github.com/ingressos/disparador-backend/internal/model"
	"github.com/ingressos/disparador-backend/internal/queue"
	"github.com/ingressos/disparador-backend/internal/repository"
	"github.com/ingressos/disparador-backend/internal/whatsapp"
)

// Dispatcher performs one scheduler invocation at a time. It keeps no state
// between invocations: all scheduling state lives in the campaign and send
// rows, so dispatch survives the triggering process going away. An external
// scheduler fires RunOnce on a fixed cadence (HTTP trigger or AMQP tick);
// the cadence between messages is entirely the trigger interval, because each
// invocation delivers at most one unit of work per dispatching campaign.
type Dispatcher struct {
	CampaignRepo repository.CampaignRepositoryInterface
	SendRepo     repository.SendRepositoryInterface
	HistoryRepo  repository.HistoryRepositoryInterface
	Campaigns    *CampaignService
	Sender       messaging.Sender
	Outcomes     queue.OutcomePublisher
	Lock         distlock.Lock

	MaxAttempts  int
	ClaimTTL     time.Duration
	HistoryAhead time.Duration
	Log          zerolog.Logger
}

// DispatchSummary is the trigger boundary's response.
type DispatchSummary struct {
	Success            bool `json:"success"`
	CampaignsProcessed int  `json:"campaigns_processed"`
	SendsProcessed     int  `json:"sends_processed"`
}

// RunOnce discovers every dispatching campaign and delivers at most one unit
// of work for each. A failure in one campaign never prevents the others from
// being processed.
func (d *Dispatcher) RunOnce(ctx context.Context) (*DispatchSummary, error) {
	summary := &DispatchSummary{Success: true}

	if d.Lock != nil {
		acquired, err := d.Lock.Acquire(ctx)
		if err != nil {
			d.Log.Error().Err(err).Msg("run lock unavailable")
			summary.Success = false
			return summary, err
		}
		if !acquired {
			// Another invocation is already running; the row claims would
			// keep us safe anyway, but there is no point contending.
			d.Log.Debug().Msg("skipping invocation: run lock held")
			return summary, nil
		}
		defer d.Lock.Release(ctx)
	}

	campaigns, err := d.CampaignRepo.ListByStatus(model.StatusDispatching)
	if err != nil {
		d.Log.Error().Err(err).Msg("failed to list dispatching campaigns")
		summary.Success = false
		return summary, err
	}

	for _, campaign := range campaigns {
		sends, err := d.processCampaign(ctx, campaign)
		summary.CampaignsProcessed++
		summary.SendsProcessed += sends
		if err != nil {
			summary.Success = false
			d.Log.Error().Err(err).Str("campaign_id", campaign.ID).Msg("campaign invocation failed")
		}
	}
	return summary, nil
}

// processCampaign delivers at most one unit of work for the campaign: the
// oldest pending send, or, when none remain, the oldest retryable failed one.
// Returns the number of units processed (0 or 1).
func (d *Dispatcher) processCampaign(ctx context.Context, campaign *model.Campaign) (int, error) {
	if requeued, err := d.SendRepo.RequeueStale(campaign.ID, d.ClaimTTL); err != nil {
		return 0, err
	} else if requeued > 0 {
		d.Log.Warn().Str("campaign_id", campaign.ID).Int("requeued", requeued).Msg("requeued stale in-flight sends")
	}

	unit, err := d.SendRepo.NextUnitOfWork(campaign.ID, d.MaxAttempts)
	if err != nil {
		return 0, err
	}
	if unit == nil {
		_, err := d.Campaigns.CheckCompletion(campaign.ID)
		return 0, err
	}

	if unit.Status == model.SendFailed {
		// Retry path: flip back to pending first so two overlapping
		// invocations cannot double-retry the same row.
		flipped, err := d.SendRepo.MarkFailedRetrying(unit.ID)
		if err != nil {
			return 0, err
		}
		if !flipped {
			return 0, nil
		}
	}

	claimed, err := d.SendRepo.ClaimPending(unit.ID)
	if err != nil {
		return 0, err
	}
	if !claimed {
		// Lost the row to a concurrent invocation.
		return 0, nil
	}

	jid := whatsapp.NormalizeJID(unit.RemoteJID)
	payload := messaging.Payload{
		CustomerID: unit.CustomerID,
		RemoteJID:  jid,
		Name:       unit.CustomerName,
		Message:    unit.Content,
		HasImage:   campaign.HasImage(),
		SendID:     unit.ID,
		CampaignID: campaign.ID,
	}
	if campaign.HasImage() {
		payload.ImageBase64 = &campaign.ImageBase64
	}

	deliveryErr := d.Sender.Send(ctx, payload)

	outcome := model.SendSent
	errorMessage := ""
	if deliveryErr != nil {
		outcome = model.SendFailed
		errorMessage = deliveryErr.Error()
	}

	recorded, err := d.SendRepo.RecordOutcome(unit.ID, outcome, errorMessage)
	if err != nil {
		return 0, err
	}
	if recorded {
		d.recordAftermath(campaign, unit, outcome, errorMessage)
	}

	// Stats are recomputed every invocation; the completion transition
	// itself runs on the first invocation that finds no work left.
	stats, err := d.Campaigns.Stats(campaign.ID)
	if err != nil {
		return 1, err
	}

	d.Log.Info().
		Int("sent", stats.Sent).
		Int("pending", stats.Pending).
		Int("failed", stats.Failed).
		Str("campaign_id", campaign.ID).
		Str("send_id", unit.ID).
		Str("outcome", outcome).
		Str("remote_jid", jid).
		Msg("unit of work processed")
	return 1, nil
}

// recordAftermath appends the history entry, bumps the daily counter and
// mirrors the outcome to the queue. All best-effort: the ledger row already
// holds the authoritative outcome.
func (d *Dispatcher) recordAftermath(campaign *model.Campaign, unit *model.Send, outcome, errorMessage string) {
	entry := &model.HistoryEntry{
		CustomerID:     unit.CustomerID,
		CampaignID:     campaign.ID,
		SendID:         unit.ID,
		Outcome:        outcome,
		NextEligibleAt: time.Now().Add(d.HistoryAhead),
	}
	if err := d.HistoryRepo.Append(entry); err != nil {
		d.Log.Error().Err(err).Str("send_id", unit.ID).Msg("failed to append history entry")
	}

	if outcome == model.SendSent {
		if err := d.HistoryRepo.IncrementDailyLimit(campaign.ID, time.Now()); err != nil {
			d.Log.Error().Err(err).Str("campaign_id", campaign.ID).Msg("failed to bump daily limit")
		}
	}

	if d.Outcomes != nil {
		event := queue.OutcomeEvent{
			SendID:     unit.ID,
			CampaignID: campaign.ID,
			Status:     outcome,
			Error:      errorMessage,
		}
		if err := d.Outcomes.PublishOutcome(event); err != nil {
			d.Log.Error().Err(err).Str("send_id", unit.ID).Msg("failed to publish outcome event")
		}
	}
}
