package postgres

import (
	"net"
	"net/url"

	"nbp-rates-service/pkg/config"
)

// BuildDSN renders the postgres:// URL for cfg, escaping credentials.
func BuildDSN(cfg config.Config) string {
	q := url.Values{}
	if cfg.Postgres.SSLMode != "" {
		q.Set("sslmode", cfg.Postgres.SSLMode)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Postgres.User, cfg.Postgres.Password),
		Host:     net.JoinHostPort(cfg.Postgres.Host, cfg.Postgres.Port),
		Path:     "/" + cfg.Postgres.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}
