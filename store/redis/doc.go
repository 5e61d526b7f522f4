// Package redis implements the store using Redis for high-throughput
// ephemeral workloads. The due queue is a Sorted Set scored by next
// attempt time, and all entities are stored as Redis Hashes.
//
// The caller owns the Redis client lifecycle -- the store never closes
// it. Pass the client through the constructor:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
