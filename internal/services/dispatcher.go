package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pageinbox/internal/errs"
	"pageinbox/internal/events"
	"pageinbox/internal/models"
	"pageinbox/internal/store"
)

// Dispatcher classifies a webhook envelope into messenger and feed sub-events
// per page entry and drives them through the ingestion pipeline. Entries for
// pages the integration does not own are skipped, and one entry's failure is
// isolated from the others.
type Dispatcher struct {
	store    *store.Store
	tokens   TokenSource
	messages *MessageService
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(st *store.Store, tokens TokenSource, messages *MessageService) (*Dispatcher, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}
	if messages == nil {
		return nil, fmt.Errorf("message service cannot be nil")
	}
	return &Dispatcher{store: st, tokens: tokens, messages: messages}, nil
}

// Dispatch processes one webhook delivery for the given integration. Entries
// and their nested events run sequentially in array order.
func (d *Dispatcher) Dispatch(ctx context.Context, integration *models.Integration, env *events.Envelope) error {
	if integration == nil {
		return errs.NewNotFoundError("integration", "")
	}
	if env.Object != "page" {
		log.Debug().Str("object", env.Object).Msg("Ignoring non-page webhook object")
		return nil
	}

	account, err := d.store.AccountByID(integration.AccountID)
	if err != nil {
		return fmt.Errorf("account lookup failed: %w", err)
	}
	if account == nil {
		return errs.NewNotFoundError("account", integration.AccountID)
	}

	for _, entry := range env.Entry {
		if !integration.OwnsPage(entry.ID) {
			// The feed may be shared across integrations; foreign pages are
			// someone else's entries.
			log.Debug().Str("pageID", entry.ID).Msg("Entry page not owned by integration, skipping")
			continue
		}

		if err := d.dispatchEntry(ctx, integration, account, entry); err != nil {
			log.Error().Err(err).
				Str("pageID", entry.ID).
				Str("integrationID", integration.ID).
				Msg("Entry processing failed")
		}
	}
	return nil
}

// dispatchEntry processes one page's events under an explicit page context.
// The first fatal error aborts the remainder of the entry.
func (d *Dispatcher) dispatchEntry(ctx context.Context, integration *models.Integration, account *models.Account, entry events.Entry) error {
	token, err := d.tokens.PageToken(ctx, entry.ID, account.Token)
	if err != nil {
		return err
	}

	pc := &PageContext{
		Integration: integration,
		PageID:      entry.ID,
		PageToken:   token,
	}

	for _, ev := range entry.Messaging {
		if err := d.messages.HandleMessengerEvent(ctx, pc, ev); err != nil {
			return err
		}
	}
	for _, change := range entry.Changes {
		if err := d.messages.HandleFeedChange(ctx, pc, change); err != nil {
			return err
		}
	}
	return nil
}
