package service

import (
	appErrors "github.com/ingressos/disparador-backend/internal/errors"
	"github.com/ingressos/disparador-backend/internal/model"
	"github.com/ingressos/disparador-backend/internal/whatsapp"
)

// EligibleRecipients returns customers who can still be targeted by a new
// campaign: a non-empty delivery address that has never appeared in any send
// row, in pool order, truncated to the recipient cap.
//
// A store error propagates as DataAccessError; it must never be read as
// "zero eligible recipients".
func (s *CampaignService) EligibleRecipients() ([]*model.Customer, error) {
	pool, err := s.CustomerRepo.ListWithPhone()
	if err != nil {
		return nil, appErrors.NewDataAccess("load recipient pool", err)
	}
	consumed, err := s.SendRepo.ListConsumedJIDs()
	if err != nil {
		return nil, appErrors.NewDataAccess("load consumed recipients", err)
	}

	eligible := []*model.Customer{}
	for _, c := range pool {
		jid := whatsapp.NormalizeJID(c.Phone)
		if _, taken := consumed[jid]; taken {
			continue
		}
		eligible = append(eligible, c)
		if len(eligible) == s.RecipientCap {
			break
		}
	}
	return eligible, nil
}
