package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const postgresApplicationName = "tenantguard"

func postgresDialector(cfg Config) (gorm.Dialector, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return postgres.New(postgres.Config{DSN: dsn}), nil
}

// buildPostgresDSN renders a libpq keyword/value DSN. Options override the defaults, and values
// containing spaces or quotes are quoted so passwords survive intact.
func buildPostgresDSN(cfg Config) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	params := []string{
		"host=" + quotePostgresValue(host),
		fmt.Sprintf("port=%d", port),
		"user=" + quotePostgresValue(cfg.User),
		"dbname=" + quotePostgresValue(cfg.Name),
	}
	if cfg.Password != "" {
		params = append(params, "password="+quotePostgresValue(cfg.Password))
	}

	options := map[string]string{
		"sslmode":          "disable",
		"application_name": postgresApplicationName,
	}
	for key, value := range cfg.Options {
		options[key] = value
	}
	for _, key := range sortedKeys(options) {
		params = append(params, key+"="+quotePostgresValue(options[key]))
	}

	return strings.Join(params, " "), nil
}

func quotePostgresValue(value string) string {
	if value != "" && !strings.ContainsAny(value, " '\\") {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}
