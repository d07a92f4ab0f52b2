package session

import (
	"context"
	"encoding/json"
	"errors"

	"fin_tracker/config"
	"fin_tracker/internal/model"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session not found")

const sessionKeyPrefix = "session:"

// RedisSession reads sessions written by the external auth service. SetSession
// exists for that service and for tooling; this backend never issues tokens.
type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func (s *RedisSession) GetSession(ctx context.Context, token string) (model.Session, error) {
	res, err := s.redis.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, err
	}

	session := model.Session{}
	err = json.Unmarshal([]byte(res), &session)
	if err != nil {
		return model.Session{}, errors.New("can't unmarshall session")
	}

	return session, nil
}

func (s *RedisSession) SetSession(ctx context.Context, token string, session model.Session) error {
	sessionJson, err := json.Marshal(session)
	if err != nil {
		return errors.New("can't marshall session")
	}

	return s.redis.Set(ctx, sessionKeyPrefix+token, sessionJson, s.cfg.SessionExpiration).Err()
}
