package publish

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/models"
	"zonarated-bot/internal/settings"
)

const codeAttempts = 100

type Store interface {
	ContentCodeExists(ctx context.Context, code string) (bool, error)
	CreateContent(ctx context.Context, c *models.Content) error
	DeleteContent(ctx context.Context, id int64) error
	SetShortenedURL(ctx context.Context, id int64, url string) error
	SetMessageID(ctx context.Context, id int64, messageID, threadID int) error
	TopicByName(ctx context.Context, name string) (*models.Topic, error)
	ListTopics(ctx context.Context) ([]models.Topic, error)
}

type Shortener interface {
	Shorten(ctx context.Context, apiKey, longURL string) (string, error)
}

type Settings interface {
	String(ctx context.Context, key, def string) string
	Bool(ctx context.Context, key string, def bool) bool
}

// Poster announces a content item in the community group and returns the
// message id of the post. A zero threadID posts outside any forum topic.
type Poster interface {
	PostContent(ctx context.Context, c models.Content, downloadLink string, threadID int) (int, error)
}

type Service struct {
	store       Store
	shortener   Shortener
	settings    Settings
	poster      Poster
	botUsername string
	logger      *zap.Logger
}

func NewService(store Store, shortener Shortener, s Settings, poster Poster, botUsername string, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		shortener:   shortener,
		settings:    s,
		poster:      poster,
		botUsername: botUsername,
		logger:      logger.Named("publish"),
	}
}

func DownloadLink(botUsername string, contentID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=dl_%d", botUsername, contentID)
}

// Genres splits a comma separated category into trimmed genre names.
func Genres(category string) []string {
	var out []string
	for _, g := range strings.Split(category, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// CodePrefix is the upper-cased first letter of the first category, or X.
// It is used when the first genre has no topic.
func CodePrefix(category string) string {
	first := strings.TrimSpace(strings.Split(category, ",")[0])
	r, _ := utf8.DecodeRuneInString(first)
	if r == utf8.RuneError || !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return "X"
	}
	return string(unicode.ToUpper(r))
}

// GenerateCode returns an unused code of the form PREFIX-NNNN, where PREFIX
// belongs to the topic of the first genre.
func (s *Service) GenerateCode(ctx context.Context, category string) (string, error) {
	prefix, err := s.prefix(ctx, category)
	if err != nil {
		return "", err
	}
	for i := 0; i < codeAttempts; i++ {
		code := fmt.Sprintf("%s-%d", prefix, 1000+rand.IntN(9000))
		exists, err := s.store.ContentCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique content code")
}

func (s *Service) prefix(ctx context.Context, category string) (string, error) {
	genres := Genres(category)
	if len(genres) == 0 {
		return CodePrefix(category), nil
	}
	topic, err := s.store.TopicByName(ctx, genres[0])
	switch {
	case err == nil:
		return topic.Prefix, nil
	case errors.Is(err, apperror.ErrNotFound):
		return CodePrefix(category), nil
	default:
		return "", err
	}
}

// Threads lists the forum threads a post goes to: the thread of each genre
// in category that has one, then the catch-all thread. With none of them
// configured the post goes to the group itself, thread zero.
func Threads(topics []models.Topic, category string) []int {
	byName := make(map[string]models.Topic, len(topics))
	for _, t := range topics {
		byName[strings.ToLower(t.Name)] = t
	}

	seen := make(map[int]bool)
	var threads []int
	add := func(t models.Topic) {
		if t.ThreadID != 0 && !seen[t.ThreadID] {
			seen[t.ThreadID] = true
			threads = append(threads, t.ThreadID)
		}
	}
	for _, g := range Genres(category) {
		if t, ok := byName[strings.ToLower(g)]; ok {
			add(t)
		}
	}
	for _, t := range topics {
		if t.IsAll {
			add(t)
		}
	}
	if len(threads) == 0 {
		return []int{0}
	}
	return threads
}

// Publish creates the content row for job, shortens external links when
// enabled and posts the item to its genre topics. The row is removed again
// when no post succeeds, so the job can be rescheduled cleanly.
func (s *Service) Publish(ctx context.Context, job models.ScheduledJob) (int64, error) {
	code, err := s.GenerateCode(ctx, job.Category)
	if err != nil {
		return 0, err
	}

	c := models.Content{
		Code:          code,
		Title:         job.Title,
		Category:      job.Category,
		Description:   job.Description,
		FileURL:       job.FileURL,
		AffiliateLink: job.AffiliateLink,
	}
	if err := s.store.CreateContent(ctx, &c); err != nil {
		return 0, err
	}

	if short := s.shorten(ctx, c); short != "" {
		if err := s.store.SetShortenedURL(ctx, c.ID, short); err != nil {
			s.logger.Warn("failed to store shortened url", zap.Int64("content_id", c.ID), zap.Error(err))
		}
		c.ShortenedURL = short
	}

	topics, err := s.store.ListTopics(ctx)
	if err != nil {
		s.discard(ctx, c)
		return 0, err
	}

	var (
		posted                int
		firstMsg, firstThread int
		errs                  []error
	)
	link := DownloadLink(s.botUsername, c.ID)
	for _, thread := range Threads(topics, c.Category) {
		messageID, err := s.poster.PostContent(ctx, c, link, thread)
		if err != nil {
			s.logger.Warn("failed to post content to topic", zap.String("code", c.Code), zap.Int("thread_id", thread), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if posted == 0 {
			firstMsg, firstThread = messageID, thread
		}
		posted++
	}
	if posted == 0 {
		s.discard(ctx, c)
		return 0, fmt.Errorf("post content %s: %w", c.Code, errors.Join(errs...))
	}

	if err := s.store.SetMessageID(ctx, c.ID, firstMsg, firstThread); err != nil {
		s.logger.Warn("failed to store group message id", zap.Int64("content_id", c.ID), zap.Error(err))
	}

	s.logger.Info("content published",
		zap.Int64("content_id", c.ID),
		zap.String("code", c.Code),
		zap.Int("posts", posted),
		zap.Int("failed_posts", len(errs)))
	return c.ID, nil
}

func (s *Service) discard(ctx context.Context, c models.Content) {
	if err := s.store.DeleteContent(ctx, c.ID); err != nil {
		s.logger.Error("failed to remove unpublished content", zap.Int64("content_id", c.ID), zap.Error(err))
	}
}

func (s *Service) shorten(ctx context.Context, c models.Content) string {
	if c.IsTelegramFile() || s.shortener == nil {
		return ""
	}
	if !s.settings.Bool(ctx, settings.ShrinkMeEnabled, true) {
		return ""
	}
	apiKey := s.settings.String(ctx, settings.ShrinkMeAPIKey, "")
	if apiKey == "" {
		return ""
	}
	short, err := s.shortener.Shorten(ctx, apiKey, c.FileURL)
	if err != nil {
		s.logger.Warn("url shortening failed", zap.String("code", c.Code), zap.Error(err))
		return ""
	}
	return short
}
