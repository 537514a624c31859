package app

import (
	"fmt"
	"strings"
	"time"

	"studylab/internal/util"
	"studylab/pkg/domain"
)

// CreateFlashcardSet stores a flashcard set produced by the external
// generator.
func (a *App) CreateFlashcardSet(ownerID, documentID, title string, cards []domain.Card) (domain.FlashcardSet, error) {
	if len(cards) == 0 {
		return domain.FlashcardSet{}, fmt.Errorf("%w: cards required", ErrInvalidInput)
	}
	if _, err := a.ownedDocument(ownerID, documentID); err != nil {
		return domain.FlashcardSet{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Flashcards"
	}
	now := time.Now().UTC()
	set := domain.FlashcardSet{
		ID:         util.NewID(),
		OwnerID:    ownerID,
		DocumentID: documentID,
		Title:      title,
		Cards:      make([]domain.Card, 0, len(cards)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, card := range cards {
		if card.ID == "" {
			card.ID = util.NewID()
		}
		set.Cards = append(set.Cards, card)
	}
	if err := a.store.SaveFlashcardSet(set); err != nil {
		return domain.FlashcardSet{}, fmt.Errorf("save flashcard set: %w", err)
	}
	return set, nil
}

// ListFlashcardSets returns a document's flashcard sets, newest first.
func (a *App) ListFlashcardSets(ownerID, documentID string) ([]domain.FlashcardSet, error) {
	return a.store.ListFlashcardSetsByDocument(ownerID, documentID)
}

// ListAllFlashcardSets returns every set owned by the user.
func (a *App) ListAllFlashcardSets(ownerID string) ([]domain.FlashcardSet, error) {
	return a.store.ListFlashcardSetsByOwner(ownerID)
}

// ReviewCard records a review of one card: bumps its review count and
// last-reviewed timestamp.
func (a *App) ReviewCard(ownerID, cardID string) (domain.FlashcardSet, error) {
	set, idx, err := a.ownedCard(ownerID, cardID)
	if err != nil {
		return domain.FlashcardSet{}, err
	}
	now := time.Now().UTC()
	set.Cards[idx].ReviewCount++
	set.Cards[idx].LastReviewedAt = &now
	if err := a.store.UpdateFlashcardCards(set.ID, set.Cards); err != nil {
		return domain.FlashcardSet{}, fmt.Errorf("update cards: %w", err)
	}
	return set, nil
}

// ToggleStarCard flips the starred flag of one card.
func (a *App) ToggleStarCard(ownerID, cardID string) (domain.FlashcardSet, bool, error) {
	set, idx, err := a.ownedCard(ownerID, cardID)
	if err != nil {
		return domain.FlashcardSet{}, false, err
	}
	set.Cards[idx].IsStarred = !set.Cards[idx].IsStarred
	if err := a.store.UpdateFlashcardCards(set.ID, set.Cards); err != nil {
		return domain.FlashcardSet{}, false, fmt.Errorf("update cards: %w", err)
	}
	return set, set.Cards[idx].IsStarred, nil
}

// DeleteFlashcardSet removes a set.
func (a *App) DeleteFlashcardSet(ownerID, id string) error {
	set, ok, err := a.store.GetFlashcardSet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if set.OwnerID != ownerID {
		return ErrForbidden
	}
	return a.store.DeleteFlashcardSet(id)
}

func (a *App) ownedCard(ownerID, cardID string) (domain.FlashcardSet, int, error) {
	set, ok, err := a.store.GetFlashcardSetByCard(cardID)
	if err != nil {
		return domain.FlashcardSet{}, 0, err
	}
	if !ok {
		return domain.FlashcardSet{}, 0, ErrNotFound
	}
	if set.OwnerID != ownerID {
		return domain.FlashcardSet{}, 0, ErrForbidden
	}
	for i, card := range set.Cards {
		if card.ID == cardID {
			return set, i, nil
		}
	}
	return domain.FlashcardSet{}, 0, ErrNotFound
}
