package services

import (
	"context"
	"testing"

	"pageinbox/internal/errs"
	"pageinbox/internal/events"
	"pageinbox/internal/models"
)

func envelope(entries ...events.Entry) *events.Envelope {
	return &events.Envelope{Object: "page", Entry: entries}
}

func TestDispatchProcessesOwnedEntries(t *testing.T) {
	env := newTestEnv(t)
	delivery := envelope(events.Entry{
		ID:        testPageID,
		Messaging: []events.MessengerEvent{messengerEvent("m1", "100", "hi")},
	})

	if err := env.dispatcher.Dispatch(context.Background(), env.integration, delivery); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if got := env.messageCount(t); got != 1 {
		t.Fatalf("messages = %d, want 1", got)
	}
	if env.tokens.mintCalls != 1 {
		t.Fatalf("token mints = %d, want 1", env.tokens.mintCalls)
	}
	if env.tokens.lastUserTok != testUserToken {
		t.Fatalf("minted with token %q, want the account token", env.tokens.lastUserTok)
	}
}

func TestDispatchSkipsForeignPageEntries(t *testing.T) {
	env := newTestEnv(t)
	delivery := envelope(events.Entry{
		ID:        "page-999",
		Messaging: []events.MessengerEvent{messengerEvent("m1", "100", "hi")},
	})

	if err := env.dispatcher.Dispatch(context.Background(), env.integration, delivery); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := env.messageCount(t); got != 0 {
		t.Fatalf("messages = %d, want 0", got)
	}
	if env.tokens.mintCalls != 0 {
		t.Fatalf("token mints = %d, want 0", env.tokens.mintCalls)
	}
}

func TestDispatchIgnoresNonPageObjects(t *testing.T) {
	env := newTestEnv(t)
	delivery := &events.Envelope{
		Object: "user",
		Entry: []events.Entry{{
			ID:        testPageID,
			Messaging: []events.MessengerEvent{messengerEvent("m1", "100", "hi")},
		}},
	}

	if err := env.dispatcher.Dispatch(context.Background(), env.integration, delivery); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := env.messageCount(t); got != 0 {
		t.Fatalf("messages = %d, want 0", got)
	}
}

func TestDispatchFailsWithoutAccount(t *testing.T) {
	env := newTestEnv(t)
	orphan := &models.Integration{
		ID:        "int-orphan",
		AccountID: "acc-missing",
		PageIDs:   models.StringList{testPageID},
	}
	if err := env.store.DB().Create(orphan).Error; err != nil {
		t.Fatalf("seed integration: %v", err)
	}

	err := env.dispatcher.Dispatch(context.Background(), orphan, envelope())
	if !errs.IsNotFound(err) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestDispatchIsolatesEntryFailures(t *testing.T) {
	env := newTestEnv(t)
	// First entry's comment needs a post lookup the platform cannot serve;
	// the second entry must still be ingested.
	delivery := envelope(
		events.Entry{
			ID:      testPageID,
			Changes: []events.FeedChange{commentChange("page-1_missing", "c1", "200", "orphan")},
		},
		events.Entry{
			ID:        testPageID,
			Messaging: []events.MessengerEvent{messengerEvent("m2", "100", "still here")},
		},
	)

	if err := env.dispatcher.Dispatch(context.Background(), env.integration, delivery); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	msg, err := env.store.MessageByPlatformMessageID("m2")
	if err != nil || msg == nil {
		t.Fatalf("second entry's message: msg=%v err=%v", msg, err)
	}
}
