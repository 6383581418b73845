package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vocab-test-service/internal/domain"
)

// WordExtractor is the external vision/language model that turns raw input
// into normalized word/meaning pairs.
type WordExtractor interface {
	// ExtractFromImage reads word/meaning pairs out of an image data URL.
	ExtractFromImage(ctx context.Context, dataURL string) ([]domain.WordEntry, error)
	// Normalize dedupes entries case-insensitively and fills missing meanings.
	Normalize(ctx context.Context, entries []domain.WordEntry) ([]domain.WordEntry, error)
}

// IngestService turns uploaded images or pasted text into word lists.
type IngestService struct {
	extractor WordExtractor
	lists     WordListRepository
	words     WordWriter
	now       func() time.Time
}

func NewIngestService(extractor WordExtractor, lists WordListRepository, words WordWriter) *IngestService {
	return &IngestService{
		extractor: extractor,
		lists:     lists,
		words:     words,
		now:       time.Now,
	}
}

// WithClock is test-only for deterministic list titles.
func (s *IngestService) WithClock(now func() time.Time) *IngestService {
	s.now = now
	return s
}

// ImportImage extracts word pairs from an uploaded image and saves them as a
// new list. The list is never created when extraction yields nothing.
func (s *IngestService) ImportImage(ctx context.Context, user domain.User, image []byte, contentType string) (domain.WordList, []domain.Word, error) {
	if len(image) == 0 {
		return domain.WordList{}, nil, domain.ErrInvalidInput
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))

	entries, err := s.extractor.ExtractFromImage(ctx, dataURL)
	if err != nil {
		return domain.WordList{}, nil, err
	}
	if len(entries) == 0 {
		return domain.WordList{}, nil, domain.ErrNoWords
	}

	title := "图片导入 " + s.now().Format("2006-01-02 15:04")
	return s.saveList(ctx, user, title, domain.SourceImage, entries)
}

// ImportText normalizes pasted text (one word per line) into a new list.
func (s *IngestService) ImportText(ctx context.Context, user domain.User, text string) (domain.WordList, []domain.Word, error) {
	entries := make([]domain.WordEntry, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			entries = append(entries, domain.WordEntry{Word: line})
		}
	}
	if len(entries) == 0 {
		return domain.WordList{}, nil, domain.ErrInvalidInput
	}

	normalized, err := s.extractor.Normalize(ctx, entries)
	if err != nil {
		return domain.WordList{}, nil, err
	}
	if len(normalized) == 0 {
		return domain.WordList{}, nil, domain.ErrNoWords
	}

	title := "手动输入 " + s.now().Format("2006-01-02 15:04")
	return s.saveList(ctx, user, title, domain.SourceText, normalized)
}

// Lists returns the user's word lists, newest first.
func (s *IngestService) Lists(ctx context.Context, user domain.User) ([]domain.WordList, error) {
	return s.lists.ListsByUser(ctx, user.ID)
}

func (s *IngestService) saveList(ctx context.Context, user domain.User, title string, source domain.SourceType, entries []domain.WordEntry) (domain.WordList, []domain.Word, error) {
	list := domain.WordList{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Title:      title,
		SourceType: source,
		CreatedAt:  s.now(),
	}
	if err := s.lists.CreateList(ctx, &list); err != nil {
		return domain.WordList{}, nil, err
	}

	words := make([]*domain.Word, len(entries))
	for i, entry := range entries {
		words[i] = &domain.Word{
			ID:         uuid.NewString(),
			WordListID: list.ID,
			Word:       entry.Word,
			Meaning:    entry.Meaning,
			Position:   i,
		}
	}
	if err := s.words.CreateWords(ctx, words); err != nil {
		return domain.WordList{}, nil, err
	}

	out := make([]domain.Word, len(words))
	for i, w := range words {
		out[i] = *w
	}
	return list, out, nil
}
