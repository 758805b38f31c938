package services

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"pageinbox/internal/events"
	"pageinbox/internal/models"
	"pageinbox/internal/store"
)

// ReactionService maintains like counters and typed reactor lists on
// messages, keyed by post/comment id.
type ReactionService struct {
	store *store.Store
}

// NewReactionService creates a new ReactionService.
func NewReactionService(st *store.Store) (*ReactionService, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	return &ReactionService{store: st}, nil
}

// Apply folds one like/reaction event into the matching messages. The
// selector prefers the event's post id; the comment id is only consulted
// when no post id is present.
func (s *ReactionService) Apply(r *events.FeedReaction) error {
	var sel store.MessageSelector
	if r.PostID != "" {
		sel.PostID = r.PostID
	} else if r.CommentID != "" {
		sel.CommentID = r.CommentID
	} else {
		log.Debug().Str("kind", r.Kind).Msg("Reaction event carries no selector, skipping")
		return nil
	}

	switch r.Kind {
	case "like":
		// Sign rule: -1 unless the verb is add.
		delta := -1
		if r.Verb == "add" {
			delta = 1
		}
		if err := s.store.AdjustLikeCount(sel, delta); err != nil {
			return err
		}
		log.Debug().Int("delta", delta).Str("postID", sel.PostID).Str("commentID", sel.CommentID).Msg("Adjusted like count")
		return nil

	case "reaction":
		return s.applyReaction(sel, r)

	default:
		return fmt.Errorf("unknown reaction kind %q", r.Kind)
	}
}

func (s *ReactionService) applyReaction(sel store.MessageSelector, r *events.FeedReaction) error {
	reactionType := r.ReactionType
	if reactionType == "" {
		reactionType = "like"
	}
	actor := models.UserRef{ID: r.From.ID, Name: r.From.Name}

	msgs, err := s.store.MessagesBySelector(sel)
	if err != nil {
		return err
	}

	for i := range msgs {
		msg := &msgs[i]
		reactions := msg.Reactions
		if reactions == nil {
			reactions = models.ReactionMap{}
		}

		if r.Verb == "add" {
			reactions[reactionType] = append(reactions[reactionType], actor)
		} else {
			reactions[reactionType] = removeActor(reactions[reactionType], actor.ID)
		}

		if err := s.store.SaveReactions(msg.ID, reactions); err != nil {
			return err
		}
	}

	log.Debug().
		Str("verb", r.Verb).
		Str("reactionType", reactionType).
		Str("actorID", actor.ID).
		Int("messages", len(msgs)).
		Msg("Applied reaction")
	return nil
}

func removeActor(list []models.UserRef, actorID string) []models.UserRef {
	out := list[:0]
	for _, ref := range list {
		if ref.ID != actorID {
			out = append(out, ref)
		}
	}
	return out
}
