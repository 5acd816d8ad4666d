package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"hu-quiz-engine/internal/domain"
	"hu-quiz-engine/internal/engine"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CatalogCache is a read-through Redis cache over a durable catalog store.
// Question lists are the hot read on every answer, so they are cached as
// JSON under chapter:{id}:questions with a TTL; everything else passes
// through. A publish invalidates the cached list before it hits the backing
// store, so readers re-load the replacement list instead of a stale one.
type CatalogCache struct {
	client *redis.Client
	store  engine.CatalogStore
	ttl    time.Duration
	sf     singleflight.Group
}

func NewCatalogCache(client *redis.Client, store engine.CatalogStore, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		store:  store,
		ttl:    ttl,
	}
}

func (c *CatalogCache) GetChapterQuestions(ctx context.Context, chapterID string) ([]domain.Question, error) {
	key := c.questionsKey(chapterID)

	if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var questions []domain.Question
		if err := json.Unmarshal(cached, &questions); err == nil {
			return questions, nil
		}
		// Unreadable payloads fall through to a reload.
	}

	result, err, _ := c.sf.Do(chapterID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var questions []domain.Question
			if err := json.Unmarshal(cached, &questions); err == nil {
				return questions, nil
			}
		}

		questions, err := c.store.GetChapterQuestions(ctx, chapterID)
		if err != nil {
			return nil, err
		}

		if payload, err := json.Marshal(questions); err == nil {
			_ = c.client.Set(ctx, key, payload, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CatalogCache) PublishChapter(ctx context.Context, subject, chapter string, questions []domain.Question) error {
	if err := c.store.PublishChapter(ctx, subject, chapter, questions); err != nil {
		return err
	}
	_ = c.client.Del(ctx, c.questionsKey(domain.ChapterID(subject, chapter))).Err()
	return nil
}

func (c *CatalogCache) AddSubject(ctx context.Context, name string) error {
	return c.store.AddSubject(ctx, name)
}

func (c *CatalogCache) AddChapter(ctx context.Context, subject, name string) error {
	return c.store.AddChapter(ctx, subject, name)
}

func (c *CatalogCache) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return c.store.ListSubjects(ctx)
}

func (c *CatalogCache) ListChapters(ctx context.Context, subject string) ([]domain.Chapter, error) {
	return c.store.ListChapters(ctx, subject)
}

func (c *CatalogCache) questionsKey(chapterID string) string {
	return "chapter:" + chapterID + ":questions"
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
