package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/ingressos/disparador-backend/internal/errors"
	"github.com/ingressos/disparador-backend/internal/messaging"
	"github.com/ingressos/disparador-backend/internal/model"
	"github.com/ingressos/disparador-backend/internal/queue"
	"github.com/ingressos/disparador-backend/internal/service"
)

// memStore backs the in-memory repository fakes used across the service and
// dispatcher tests.
type memStore struct {
	mu        sync.Mutex
	campaigns   map[string]*model.Campaign
	campOrder   []string
	sends       map[string]*model.Send
	sendOrder   []string
	customers   []*model.Customer
	history     []*model.HistoryEntry
	daily       map[string]int
	seq         int
	readErr     error // when set, read methods fail with it
	failOpenErr error // one-shot FailAllOpen failure
}

func newMemStore() *memStore {
	return &memStore{
		campaigns: map[string]*model.Campaign{},
		sends:     map[string]*model.Send{},
		daily:     map[string]int{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// addCustomer registers a pool member directly.
func (s *memStore) addCustomer(name, phone string) *model.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &model.Customer{
		ID:        s.nextID("cust"),
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now(),
	}
	s.customers = append(s.customers, c)
	return c
}

// --- campaign repository fake ---

type fakeCampaignRepo struct{ s *memStore }

func (r *fakeCampaignRepo) Create(c *model.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == "" {
		c.ID = r.s.nextID("camp")
	}
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	c.CreatedAt = time.Now()
	cp := *c
	r.s.campaigns[c.ID] = &cp
	r.s.campOrder = append(r.s.campOrder, c.ID)
	return nil
}

func (r *fakeCampaignRepo) GetByID(id string) (*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCampaignRepo) List(status string) ([]*model.Campaign, error) {
	return r.listWhere(func(c *model.Campaign) bool {
		return status == "" || c.Status == status
	})
}

func (r *fakeCampaignRepo) ListByStatus(status string) ([]*model.Campaign, error) {
	return r.listWhere(func(c *model.Campaign) bool { return c.Status == status })
}

func (r *fakeCampaignRepo) listWhere(keep func(*model.Campaign) bool) ([]*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.readErr != nil {
		return nil, r.s.readErr
	}
	out := []*model.Campaign{}
	for _, id := range r.s.campOrder {
		if c, ok := r.s.campaigns[id]; ok && keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) UpdateContent(id, name, message, imageBase64 string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Name, c.Message, c.ImageBase64 = name, message, imageBase64
	return nil
}

func (r *fakeCampaignRepo) SetStatus(id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.campaigns[id]; ok {
		c.Status = status
	}
	return nil
}

func (r *fakeCampaignRepo) TransitionStatus(id string, from []string, to string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if c.Status == st {
			c.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCampaignRepo) ClaimDispatching(id string, from []string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for otherID, other := range r.s.campaigns {
		if otherID != id && other.Status == model.StatusDispatching {
			return false, nil
		}
	}
	c, ok := r.s.campaigns[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if c.Status == st {
			c.Status = model.StatusDispatching
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCampaignRepo) DeleteCascade(id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.campaigns, id)
	for sendID, send := range r.s.sends {
		if send.CampaignID == id {
			delete(r.s.sends, sendID)
		}
	}
	delete(r.s.daily, id)
	kept := r.s.history[:0]
	for _, h := range r.s.history {
		if h.CampaignID != id {
			kept = append(kept, h)
		}
	}
	r.s.history = kept
	return nil
}

// --- send repository fake ---

type fakeSendRepo struct{ s *memStore }

func (r *fakeSendRepo) SeedScheduled(sends []*model.Send) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, send := range sends {
		if send.ID == "" {
			send.ID = r.s.nextID("send")
		}
		if send.Status == "" {
			send.Status = model.SendScheduled
		}
		send.CreatedAt = time.Now()
		send.UpdatedAt = send.CreatedAt
		cp := *send
		r.s.sends[send.ID] = &cp
		r.s.sendOrder = append(r.s.sendOrder, send.ID)
	}
	return nil
}

func (r *fakeSendRepo) PromoteScheduledToPending(campaignID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, send := range r.s.sends {
		if send.CampaignID == campaignID && send.Status == model.SendScheduled {
			send.Status = model.SendPending
			send.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (r *fakeSendRepo) NextUnitOfWork(campaignID string, maxAttempts int) (*model.Send, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.readErr != nil {
		return nil, r.s.readErr
	}
	for _, id := range r.s.sendOrder {
		send := r.s.sends[id]
		if send != nil && send.CampaignID == campaignID && send.Status == model.SendPending {
			cp := *send
			return &cp, nil
		}
	}
	for _, id := range r.s.sendOrder {
		send := r.s.sends[id]
		if send != nil && send.CampaignID == campaignID && send.Status == model.SendFailed && send.Attempts < maxAttempts {
			cp := *send
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSendRepo) ClaimPending(id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	send, ok := r.s.sends[id]
	if !ok || send.Status != model.SendPending {
		return false, nil
	}
	send.Status = model.SendSending
	send.Attempts++
	send.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeSendRepo) MarkFailedRetrying(id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	send, ok := r.s.sends[id]
	if !ok || send.Status != model.SendFailed {
		return false, nil
	}
	send.Status = model.SendPending
	send.ErrorMessage = ""
	send.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeSendRepo) RequeueStale(campaignID string, olderThan time.Duration) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	n := 0
	for _, send := range r.s.sends {
		if send.CampaignID == campaignID && send.Status == model.SendSending && send.UpdatedAt.Before(cutoff) {
			send.Status = model.SendPending
			send.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (r *fakeSendRepo) RecordOutcome(id, outcome, errorMessage string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	send, ok := r.s.sends[id]
	if !ok {
		return false, nil
	}
	if send.Status != model.SendPending && send.Status != model.SendSending {
		return false, nil
	}
	now := time.Now()
	send.Status = outcome
	send.UpdatedAt = now
	switch outcome {
	case model.SendSent:
		send.SentAt = &now
		send.ErrorMessage = ""
	case model.SendFailed:
		send.FailedAt = &now
		send.ErrorMessage = errorMessage
	}
	return true, nil
}

func (r *fakeSendRepo) FailAllOpen(campaignID, reason string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failOpenErr != nil {
		err := r.s.failOpenErr
		r.s.failOpenErr = nil
		return 0, err
	}
	now := time.Now()
	n := 0
	for _, send := range r.s.sends {
		if send.CampaignID != campaignID {
			continue
		}
		switch send.Status {
		case model.SendScheduled, model.SendPending, model.SendSending:
			send.Status = model.SendFailed
			send.ErrorMessage = reason
			send.FailedAt = &now
			send.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *fakeSendRepo) CountByStatus(campaignID string) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.readErr != nil {
		return nil, r.s.readErr
	}
	counts := map[string]int{}
	for _, send := range r.s.sends {
		if send.CampaignID == campaignID {
			counts[send.Status]++
		}
	}
	return counts, nil
}

func (r *fakeSendRepo) CountSentToday(campaignID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.readErr != nil {
		return 0, r.s.readErr
	}
	today := time.Now().Truncate(24 * time.Hour)
	n := 0
	for _, send := range r.s.sends {
		if send.CampaignID == campaignID && send.Status == model.SendSent &&
			send.SentAt != nil && !send.SentAt.Before(today) {
			n++
		}
	}
	return n, nil
}

func (r *fakeSendRepo) CountRetryableFailed(campaignID string, maxAttempts int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.readErr != nil {
		return 0, r.s.readErr
	}
	n := 0
	for _, send := range r.s.sends {
		if send.CampaignID == campaignID && send.Status == model.SendFailed && send.Attempts < maxAttempts {
			n++
		}
	}
	return n, nil
}

func (r *fakeSendRepo) ListByCampaign(campaignID string) ([]*model.Send, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.readErr != nil {
		return nil, r.s.readErr
	}
	out := []*model.Send{}
	for _, id := range r.s.sendOrder {
		if send := r.s.sends[id]; send != nil && send.CampaignID == campaignID {
			cp := *send
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSendRepo) ListConsumedJIDs() (map[string]struct{}, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.readErr != nil {
		return nil, r.s.readErr
	}
	consumed := map[string]struct{}{}
	for _, send := range r.s.sends {
		consumed[send.RemoteJID] = struct{}{}
	}
	return consumed, nil
}

// --- customer repository fake ---

type fakeCustomerRepo struct{ s *memStore }

func (r *fakeCustomerRepo) GetByID(id string) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.customers {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) GetByIDs(ids []string) ([]*model.Customer, error) {
	out := make([]*model.Customer, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetByID(id)
		if err != nil {
			return nil, err
		}
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCustomerRepo) ListWithPhone() ([]*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.readErr != nil {
		return nil, r.s.readErr
	}
	out := []*model.Customer{}
	for _, c := range r.s.customers {
		if c.Phone != "" {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeCustomerRepo) Create(c *model.Customer) error {
	r.s.addCustomer(c.Name, c.Phone)
	return nil
}

// --- history repository fake ---

type fakeHistoryRepo struct{ s *memStore }

func (r *fakeHistoryRepo) Append(entry *model.HistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = r.s.nextID("hist")
	}
	entry.CreatedAt = time.Now()
	cp := *entry
	r.s.history = append(r.s.history, &cp)
	return nil
}

func (r *fakeHistoryRepo) IncrementDailyLimit(campaignID string, day time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.daily[campaignID+"/"+day.Format("2006-01-02")]++
	return nil
}

// --- messaging / queue fakes ---

type fakeSender struct {
	mu       sync.Mutex
	payloads []messaging.Payload
	fail     func(p messaging.Payload) error
}

func (f *fakeSender) Send(ctx context.Context, p messaging.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	if f.fail != nil {
		return f.fail(p)
	}
	return nil
}

type fakeOutcomes struct {
	mu     sync.Mutex
	events []queue.OutcomeEvent
}

func (f *fakeOutcomes) PublishOutcome(event queue.OutcomeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

// --- wiring helpers ---

const (
	testCap         = 30
	testMaxAttempts = 3
)

func newTestService(s *memStore) *service.CampaignService {
	return &service.CampaignService{
		CampaignRepo: &fakeCampaignRepo{s: s},
		CustomerRepo: &fakeCustomerRepo{s: s},
		SendRepo:     &fakeSendRepo{s: s},
		RecipientCap: testCap,
		MaxAttempts:  testMaxAttempts,
		Log:          zerolog.Nop(),
	}
}

func newTestDispatcher(s *memStore, svc *service.CampaignService, sender *fakeSender) (*service.Dispatcher, *fakeOutcomes) {
	outcomes := &fakeOutcomes{}
	return &service.Dispatcher{
		CampaignRepo: &fakeCampaignRepo{s: s},
		SendRepo:     &fakeSendRepo{s: s},
		HistoryRepo:  &fakeHistoryRepo{s: s},
		Campaigns:    svc,
		Sender:       sender,
		Outcomes:     outcomes,
		MaxAttempts:  testMaxAttempts,
		ClaimTTL:     10 * time.Minute,
		HistoryAhead: 7 * 24 * time.Hour,
		Log:          zerolog.Nop(),
	}, outcomes
}
