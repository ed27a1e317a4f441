package redis

import "fmt"

type RedisConfig struct {
	Host       string
	Port       int
	Password   string
	Database   int
	TLSEnabled bool
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
