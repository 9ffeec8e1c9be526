package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/contacts"
	"github.com/leadtrail/leadtrail/internal/lead"
)

const (
	contactsTaskName  = "contact_extraction"
	contactsBatchSize = 3
)

// ContactExtractor crawls an approved domain for contact details.
type ContactExtractor interface {
	Extract(ctx context.Context, domain string) contacts.Outcome
}

// ContactsTask extracts phones, emails and social links from approved
// company websites.
type ContactsTask struct {
	deps      Deps
	extractor ContactExtractor
	sched     Schedule
}

// NewContactsTask creates the contact extraction task.
func NewContactsTask(deps Deps, extractor ContactExtractor, sched Schedule) *ContactsTask {
	return &ContactsTask{deps: deps, extractor: extractor, sched: sched}
}

func (t *ContactsTask) Name() string            { return contactsTaskName }
func (t *ContactsTask) Interval() time.Duration { return t.sched.interval(contactsInterval) }
func (t *ContactsTask) LockTTL() time.Duration  { return t.sched.ttl(contactsLockTTL) }

// Run drains one batch of companies with an approved domain.
func (t *ContactsTask) Run(ctx context.Context) error {
	candidates, err := t.deps.Store.UnprocessedForContacts(ctx, t.sched.batch(contactsBatchSize))
	if err != nil {
		return fmt.Errorf("list contact candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}
	t.deps.Logger.Info("contact extraction batch starting", zap.Int("companies", len(candidates)))

	for _, candidate := range candidates {
		outcome := t.extractor.Extract(ctx, candidate.ApprovedDomain)

		id, err := t.deps.IDs.NewID()
		if err != nil {
			return fmt.Errorf("generate record id: %w", err)
		}
		rec := lead.ContactRecord{
			ID:           id,
			CompanyID:    candidate.CompanyID,
			Domain:       candidate.ApprovedDomain,
			Phones:       outcome.Phones,
			Emails:       outcome.Emails,
			Facebook:     outcome.Facebook,
			Instagram:    outcome.Instagram,
			LinkedIn:     outcome.LinkedIn,
			PagesCrawled: outcome.PagesCrawled,
			Status:       outcome.Status,
			ErrorMessage: outcome.ErrorMessage,
			CreatedAt:    t.deps.Clock.Now(),
		}
		if err := t.deps.Store.SaveContactRecord(ctx, rec); err != nil {
			if err := t.deps.saveErr(contactsTaskName, candidate.CompanyID, err); err != nil {
				return fmt.Errorf("save contact record: %w", err)
			}
			continue
		}
		t.deps.recorded(ctx, contactsTaskName, candidate.CompanyID, lead.StageContacts, string(outcome.Status))
	}
	return nil
}
