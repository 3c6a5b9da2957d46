package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных консоли в Redis
	RedisNamespace = "anomaly-console"
)

// Ключи состояния
const (
	RedisKeySessionToken = RedisNamespace + ":session:token"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanFeedRelay: кадры живой ленты, ретранслируемые с бэкенда.
	RedisChanFeedRelay = RedisNamespace + ":feed:frames"
)
