package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"fin_tracker/config"
	"fin_tracker/internal/model"
	"fin_tracker/utils"
	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "stock:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

// SetStocks stores the stock master entries keyed by symbol.
func (r *RedisCache) SetStocks(ctx context.Context, stocks []model.StockRef) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetStocks", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for _, stock := range stocks {
		stockJson, err := json.Marshal(stock)
		if err != nil {
			slog.Error(
				"can't marshall stock in SetStocks",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("stock", stock),
			)
			return errors.New("can't marshall stock")
		}

		pipe.Set(ctx, stockKeyPrefix+stock.Symbol, stockJson, r.cfg.Cache.StocksExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetStocks completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetStock(ctx context.Context, symbol string) (model.StockRef, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetStock start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, stockKeyPrefix+symbol).Result()
	if err != nil {
		slog.Warn("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", stockKeyPrefix+symbol))
		return model.StockRef{}, err
	}

	stock := model.StockRef{}
	err = json.Unmarshal([]byte(res), &stock)
	if err != nil {
		slog.Error(
			"can't unmarshall stock in GetStock",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.StockRef{}, errors.New("can't unmarshall stock")
	}

	slog.Debug("GetStock finished", slog.String("rqID", rqID))

	return stock, nil
}
