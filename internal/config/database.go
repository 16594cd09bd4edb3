// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package config

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseConfig is the connection configuration for the catalog and
// credit ledger's Postgres database.
type DatabaseConfig struct {
	Name               string        `envconfig:"DB_NAME" default:"metget"`
	User               string        `envconfig:"DB_USER" default:"metget"`
	Host               string        `envconfig:"DB_HOST" default:"localhost"`
	Port               string        `envconfig:"DB_PORT" default:"5432"`
	SSLMode            string        `envconfig:"DB_SSLMODE" default:"disable"`
	ConnectionTimeout  int           `envconfig:"DB_CONNECT_TIMEOUT"`
	Password           string        `envconfig:"DB_PASSWORD"`
	PoolMinConnections string        `envconfig:"DB_POOL_MIN_CONNS"`
	PoolMaxConnections string        `envconfig:"DB_POOL_MAX_CONNS" default:"10"`
	PoolMaxConnLife    time.Duration `envconfig:"DB_POOL_MAX_CONN_LIFETIME"`
	PoolMaxConnIdle    time.Duration `envconfig:"DB_POOL_MAX_CONN_IDLE_TIME"`
}

// String renders the config for logging, omitting the password.
func (c *DatabaseConfig) String() string {
	pwSet := "<set>"
	if c.Password == "" {
		pwSet = "<not set>"
	}
	return fmt.Sprintf("{Name:%v User:%v Host:%v Port:%v SSLMode:%v Password:%v PoolMinConns:%v PoolMaxConns:%v}",
		c.Name, c.User, c.Host, c.Port, c.SSLMode, pwSet, c.PoolMinConnections, c.PoolMaxConnections)
}

// ConnectionString builds a keyword/value connection string suitable for
// pgxpool.
func (c *DatabaseConfig) ConnectionString() string {
	vals := map[string]string{}
	setIfNotEmpty(vals, "dbname", c.Name)
	setIfNotEmpty(vals, "user", c.User)
	setIfNotEmpty(vals, "host", c.Host)
	setIfNotEmpty(vals, "port", c.Port)
	setIfNotEmpty(vals, "sslmode", c.SSLMode)
	setIfNotEmpty(vals, "password", c.Password)
	setIfNotEmpty(vals, "pool_min_conns", c.PoolMinConnections)
	setIfNotEmpty(vals, "pool_max_conns", c.PoolMaxConnections)
	if c.ConnectionTimeout > 0 {
		vals["connect_timeout"] = fmt.Sprintf("%d", c.ConnectionTimeout)
	}
	if c.PoolMaxConnLife > 0 {
		vals["pool_max_conn_lifetime"] = c.PoolMaxConnLife.String()
	}
	if c.PoolMaxConnIdle > 0 {
		vals["pool_max_conn_idle_time"] = c.PoolMaxConnIdle.String()
	}

	var p []string
	for k, v := range vals {
		p = append(p, fmt.Sprintf("%s=%s", k, v))
	}
	return strings.Join(p, " ")
}

func setIfNotEmpty(m map[string]string, key, val string) {
	if val != "" {
		m[key] = val
	}
}
