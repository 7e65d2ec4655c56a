package service

import (
	"fmt"

	"github.com/rs/zerolog"

	appErrors "github.com/ingressos/disparador-backend/internal/errors"
	"github.com/ingressos/disparador-backend/internal/model"
	"github.com/ingressos/disparador-backend/internal/repository"
	"github.com/ingressos/disparador-backend/internal/whatsapp"
)

// CampaignService owns the campaign registry and the lifecycle control
// surface: create/update/delete plus start/pause/resume/cancel.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	CustomerRepo repository.CustomerRepositoryInterface
	SendRepo     repository.SendRepositoryInterface

	RecipientCap int
	MaxAttempts  int
	Log          zerolog.Logger
}

// CampaignDetails is the detail-view payload: campaign, derived stats and the
// per-recipient ledger rows.
type CampaignDetails struct {
	Campaign *model.Campaign      `json:"campaign"`
	Stats    *model.CampaignStats `json:"stats"`
	Sends    []*model.Send        `json:"sends"`
}

// CreateInput carries the operator's create request.
type CreateInput struct {
	Name        string
	Message     string
	Tone        string
	ImageBase64 string
	CustomerIDs []string
}

// UpdateInput carries a partial edit; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Message     *string
	ImageBase64 *string
}

// Create persists a draft campaign and, when recipients are supplied, seeds
// one scheduled ledger row per recipient with the message already rendered.
func (s *CampaignService) Create(in CreateInput) (*model.Campaign, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("campaign name cannot be empty")
	}
	if in.Message == "" {
		return nil, fmt.Errorf("campaign message cannot be empty")
	}
	if in.Tone == "" {
		in.Tone = model.ToneCasual
	}
	if !model.ValidTone(in.Tone) {
		return nil, fmt.Errorf("invalid campaign tone %q", in.Tone)
	}
	if len(in.CustomerIDs) > s.RecipientCap {
		return nil, appErrors.NewCapacityExceeded(len(in.CustomerIDs), s.RecipientCap)
	}

	customers, err := s.CustomerRepo.GetByIDs(in.CustomerIDs)
	if err != nil {
		return nil, appErrors.NewDataAccess("load recipients", err)
	}
	known := make(map[string]struct{}, len(customers))
	for _, c := range customers {
		known[c.ID] = struct{}{}
	}
	for _, id := range in.CustomerIDs {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("customer %s does not exist", id)
		}
	}

	consumed, err := s.SendRepo.ListConsumedJIDs()
	if err != nil {
		return nil, appErrors.NewDataAccess("load consumed recipients", err)
	}

	sends := make([]*model.Send, 0, len(customers))
	for _, c := range customers {
		if c.Phone == "" {
			return nil, fmt.Errorf("customer %s has no delivery address", c.ID)
		}
		jid := whatsapp.NormalizeJID(c.Phone)
		if _, taken := consumed[jid]; taken {
			return nil, fmt.Errorf("recipient %s is already bound to a campaign", c.ID)
		}
		consumed[jid] = struct{}{}
		sends = append(sends, &model.Send{
			CustomerID:   c.ID,
			CustomerName: c.Name,
			RemoteJID:    jid,
			Content:      RenderMessage(in.Message, c.Name),
			Status:       model.SendScheduled,
		})
	}

	campaign := &model.Campaign{
		Name:        in.Name,
		Message:     in.Message,
		Tone:        in.Tone,
		ImageBase64: in.ImageBase64,
		Status:      model.StatusDraft,
	}
	if err := s.CampaignRepo.Create(campaign); err != nil {
		return nil, appErrors.NewDataAccess("create campaign", err)
	}

	for _, send := range sends {
		send.CampaignID = campaign.ID
	}
	if err := s.SendRepo.SeedScheduled(sends); err != nil {
		// Best-effort rollback so a half-created campaign does not linger.
		if delErr := s.CampaignRepo.DeleteCascade(campaign.ID); delErr != nil {
			s.Log.Error().Err(delErr).Str("campaign_id", campaign.ID).Msg("failed to roll back campaign after seed failure")
		}
		return nil, appErrors.NewDataAccess("seed recipients", err)
	}

	s.Log.Info().Str("campaign_id", campaign.ID).Int("recipients", len(sends)).Msg("campaign created")
	return campaign, nil
}

// Update edits name/message/image. Editing is allowed only when the campaign
// is fully idle (draft/dispatched/cancelled) or paused with zero open sends.
func (s *CampaignService) Update(id string, in UpdateInput) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	counts, err := s.SendRepo.CountByStatus(id)
	if err != nil {
		return nil, appErrors.NewDataAccess("count sends", err)
	}
	open := counts[model.SendPending] + counts[model.SendSending]
	if campaign.Status == model.StatusDispatching || open > 0 {
		return nil, appErrors.NewEditLocked(id, open)
	}

	name := campaign.Name
	if in.Name != nil {
		name = *in.Name
	}
	message := campaign.Message
	if in.Message != nil {
		message = *in.Message
	}
	image := campaign.ImageBase64
	if in.ImageBase64 != nil {
		image = *in.ImageBase64
	}
	if name == "" {
		return nil, fmt.Errorf("campaign name cannot be empty")
	}
	if message == "" {
		return nil, fmt.Errorf("campaign message cannot be empty")
	}

	if err := s.CampaignRepo.UpdateContent(id, name, message, image); err != nil {
		return nil, appErrors.NewDataAccess("update campaign", err)
	}
	return s.CampaignRepo.GetByID(id)
}

// Delete cascades over sends, history and daily limits before removing the
// campaign itself.
func (s *CampaignService) Delete(id string) error {
	if _, err := s.CampaignRepo.GetByID(id); err != nil {
		return err
	}
	if err := s.CampaignRepo.DeleteCascade(id); err != nil {
		return appErrors.NewDataAccess("delete campaign", err)
	}
	s.Log.Info().Str("campaign_id", id).Msg("campaign deleted")
	return nil
}

// Get returns the campaign with derived stats and its ledger rows.
func (s *CampaignService) Get(id string) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats(id)
	if err != nil {
		return nil, err
	}
	sends, err := s.SendRepo.ListByCampaign(id)
	if err != nil {
		return nil, appErrors.NewDataAccess("list sends", err)
	}
	return &CampaignDetails{Campaign: campaign, Stats: stats, Sends: sends}, nil
}

// List returns campaigns (optionally filtered by status, legacy aliases
// accepted) with their stats.
func (s *CampaignService) List(status string) ([]*CampaignDetails, error) {
	if status != "" {
		canonical, err := model.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		status = canonical
	}
	campaigns, err := s.CampaignRepo.List(status)
	if err != nil {
		return nil, appErrors.NewDataAccess("list campaigns", err)
	}
	details := make([]*CampaignDetails, 0, len(campaigns))
	for _, c := range campaigns {
		stats, err := s.Stats(c.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, &CampaignDetails{Campaign: c, Stats: stats})
	}
	return details, nil
}

// Start moves a draft campaign into dispatching, enforcing the singleton
// invariant and promoting its scheduled rows to pending.
func (s *CampaignService) Start(id string) error {
	return s.beginDispatch(id, "start", []string{model.StatusDraft, model.StatusPaused})
}

// Resume moves a paused campaign back into dispatching with the same
// concurrency and completion checks as Start.
func (s *CampaignService) Resume(id string) error {
	return s.beginDispatch(id, "resume", []string{model.StatusPaused})
}

func (s *CampaignService) beginDispatch(id, op string, from []string) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}

	allowed := false
	for _, st := range from {
		if campaign.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return appErrors.NewInvalidTransition(id, campaign.Status, op)
	}

	stats, err := s.Stats(id)
	if err != nil {
		return err
	}
	if stats.Total > s.RecipientCap {
		return appErrors.NewCapacityExceeded(stats.Total, s.RecipientCap)
	}
	if stats.Sent >= s.RecipientCap || (stats.Total > 0 && stats.Sent == stats.Total) {
		return appErrors.NewInvalidTransition(id, campaign.Status, op)
	}

	claimed, err := s.CampaignRepo.ClaimDispatching(id, from)
	if err != nil {
		return appErrors.NewDataAccess(op, err)
	}
	if !claimed {
		// The guard matched the status a moment ago, so the conditional
		// update can only have lost to another dispatching campaign.
		return appErrors.NewConcurrentCampaign(id)
	}

	promoted, err := s.SendRepo.PromoteScheduledToPending(id)
	if err != nil {
		return appErrors.NewDataAccess("promote scheduled sends", err)
	}

	s.Log.Info().Str("campaign_id", id).Str("op", op).Int("promoted", promoted).Msg("campaign dispatching")
	return nil
}

// Pause suspends dispatching. Pending rows are left pending; the scheduler
// simply skips campaigns not in dispatching status.
func (s *CampaignService) Pause(id string) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	stats, err := s.Stats(id)
	if err != nil {
		return err
	}
	if stats.Sent >= s.RecipientCap {
		return appErrors.NewInvalidTransition(id, campaign.Status, "pause")
	}

	ok, err := s.CampaignRepo.TransitionStatus(id, []string{model.StatusDispatching}, model.StatusPaused)
	if err != nil {
		return appErrors.NewDataAccess("pause", err)
	}
	if !ok {
		return appErrors.NewInvalidTransition(id, campaign.Status, "pause")
	}
	s.Log.Info().Str("campaign_id", id).Msg("campaign paused")
	return nil
}

// Cancel fails every open send and parks the campaign in cancelled. A
// cancelled campaign may be cancelled again: re-running makes the open-send
// sweep recoverable when the store failed mid-cancel, leaving rows pending.
func (s *CampaignService) Cancel(id string) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}

	ok, err := s.CampaignRepo.TransitionStatus(id,
		[]string{model.StatusDraft, model.StatusDispatching, model.StatusPaused, model.StatusCancelled},
		model.StatusCancelled,
	)
	if err != nil {
		return appErrors.NewDataAccess("cancel", err)
	}
	if !ok {
		return appErrors.NewInvalidTransition(id, campaign.Status, "cancel")
	}

	failed, err := s.SendRepo.FailAllOpen(id, "campaign cancelled")
	if err != nil {
		return appErrors.NewDataAccess("fail open sends", err)
	}
	s.Log.Info().Str("campaign_id", id).Int("failed_sends", failed).Msg("campaign cancelled")
	return nil
}
