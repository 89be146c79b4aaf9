package cooldown

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithShards sets the number of independently locked shards.
func WithShards(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.shardCount = n
		}
	}
}

// WithClock sets the clock used by the janitor.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}
