package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"studylab/pkg/domain"
)

// MemoryStore keeps all records in-process. It backs tests and local
// development; the semantics mirror GormStore, including the guarded
// terminal-status and grading writes.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	quizzes   map[string]domain.Quiz
	sets      map[string]domain.FlashcardSet
	order     []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		quizzes:   make(map[string]domain.Quiz),
		sets:      make(map[string]domain.FlashcardSet),
	}
}

func (m *MemoryStore) SaveDocument(d domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.documents[d.ID]; !exists {
		m.order = append(m.order, d.ID)
	}
	m.documents[d.ID] = d
	return nil
}

func (m *MemoryStore) GetDocument(id string) (domain.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	return doc, ok, nil
}

func (m *MemoryStore) ListDocumentsByOwner(ownerID string) ([]DocumentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]DocumentSummary, 0)
	for _, id := range m.order {
		doc, ok := m.documents[id]
		if !ok || doc.OwnerID != ownerID {
			continue
		}
		doc.ExtractedText = ""
		summary := DocumentSummary{Document: doc}
		for _, q := range m.quizzes {
			if q.DocumentID == id {
				summary.QuizCount++
			}
		}
		for _, set := range m.sets {
			if set.DocumentID == id {
				summary.FlashcardSetCount++
			}
		}
		res = append(res, summary)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) SaveProcessingResult(id string, text string, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok || doc.Status != domain.StatusProcessing {
		return ErrConflict
	}
	doc.ExtractedText = text
	doc.Status = domain.StatusReady
	doc.ErrorMessage = ""
	doc.UpdatedAt = time.Now().UTC()
	m.documents[id] = doc
	m.chunks[id] = append([]domain.Chunk(nil), chunks...)
	return nil
}

func (m *MemoryStore) SetDocumentStatus(id string, status domain.DocumentStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return ErrConflict
	}
	if status.IsTerminal() && doc.Status != domain.StatusProcessing {
		return ErrConflict
	}
	doc.Status = status
	doc.ErrorMessage = errMsg
	doc.UpdatedAt = time.Now().UTC()
	m.documents[id] = doc
	return nil
}

func (m *MemoryStore) TouchDocument(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil
	}
	t := at.UTC()
	doc.LastAccessedAt = &t
	m.documents[id] = doc
	return nil
}

func (m *MemoryStore) DeleteDocument(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, id)
	delete(m.chunks, id)
	for qid, q := range m.quizzes {
		if q.DocumentID == id {
			delete(m.quizzes, qid)
		}
	}
	for sid, set := range m.sets {
		if set.DocumentID == id {
			delete(m.sets, sid)
		}
	}
	return nil
}

func (m *MemoryStore) ListChunks(documentID string) ([]domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Chunk(nil), m.chunks[documentID]...), nil
}

func (m *MemoryStore) ListStuckProcessing(cutoff time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, doc := range m.documents {
		if doc.Status == domain.StatusProcessing && doc.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) SaveQuiz(q domain.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.quizzes[q.ID]; exists {
		return fmt.Errorf("quiz %s already exists", q.ID)
	}
	m.quizzes[q.ID] = q
	return nil
}

func (m *MemoryStore) GetQuiz(id string) (domain.Quiz, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	quiz, ok := m.quizzes[id]
	return quiz, ok, nil
}

func (m *MemoryStore) ListQuizzesByDocument(ownerID, documentID string) ([]domain.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Quiz
	for _, q := range m.quizzes {
		if q.OwnerID == ownerID && q.DocumentID == documentID {
			res = append(res, q)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) SaveGradingResult(id string, answers []domain.UserAnswer, score int, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz, ok := m.quizzes[id]
	if !ok || quiz.CompletedAt != nil {
		return ErrConflict
	}
	done := completedAt.UTC()
	quiz.UserAnswers = append([]domain.UserAnswer(nil), answers...)
	quiz.Score = &score
	quiz.CompletedAt = &done
	quiz.UpdatedAt = time.Now().UTC()
	m.quizzes[id] = quiz
	return nil
}

func (m *MemoryStore) DeleteQuiz(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quizzes, id)
	return nil
}

func (m *MemoryStore) SaveFlashcardSet(set domain.FlashcardSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sets[set.ID]; exists {
		return fmt.Errorf("flashcard set %s already exists", set.ID)
	}
	m.sets[set.ID] = set
	return nil
}

func (m *MemoryStore) GetFlashcardSet(id string) (domain.FlashcardSet, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.sets[id]
	return set, ok, nil
}

func (m *MemoryStore) GetFlashcardSetByCard(cardID string) (domain.FlashcardSet, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, set := range m.sets {
		for _, card := range set.Cards {
			if card.ID == cardID {
				return set, true, nil
			}
		}
	}
	return domain.FlashcardSet{}, false, nil
}

func (m *MemoryStore) ListFlashcardSetsByDocument(ownerID, documentID string) ([]domain.FlashcardSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.FlashcardSet
	for _, set := range m.sets {
		if set.OwnerID == ownerID && set.DocumentID == documentID {
			res = append(res, set)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) ListFlashcardSetsByOwner(ownerID string) ([]domain.FlashcardSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.FlashcardSet
	for _, set := range m.sets {
		if set.OwnerID == ownerID {
			res = append(res, set)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) UpdateFlashcardCards(id string, cards []domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[id]
	if !ok {
		return fmt.Errorf("flashcard set %s not found", id)
	}
	set.Cards = append([]domain.Card(nil), cards...)
	set.UpdatedAt = time.Now().UTC()
	m.sets[id] = set
	return nil
}

func (m *MemoryStore) DeleteFlashcardSet(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, id)
	return nil
}
