package health

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DatabaseChecker pings the user store's underlying sql connection.
type DatabaseChecker struct {
	DB *gorm.DB
}

func (c DatabaseChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "database", Healthy: true}
	sqlDB, err := c.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

// RedisChecker pings the session/attempt store.
type RedisChecker struct {
	Client redis.UniversalClient
}

func (c RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if err := c.Client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}
