package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func mysqlDialector(cfg Config) (gorm.Dialector, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return mysql.New(mysql.Config{DSN: dsn}), nil
}

// buildMySQLDSN renders the DSN through the driver's own formatter, so the result always parses back.
// Timestamps are read in UTC unless the "loc" option says otherwise.
func buildMySQLDSN(cfg Config) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	dc := mysqldriver.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", host, port)
	dc.DBName = cfg.Name
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}

	for _, key := range sortedKeys(cfg.Options) {
		value := cfg.Options[key]
		switch key {
		case "parseTime":
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return "", fmt.Errorf("mysql option parseTime: %w", err)
			}
			dc.ParseTime = parsed
		case "loc":
			loc, err := time.LoadLocation(value)
			if err != nil {
				return "", fmt.Errorf("mysql option loc: %w", err)
			}
			dc.Loc = loc
		case "tls":
			dc.TLSConfig = value
		default:
			dc.Params[key] = value
		}
	}

	return dc.FormatDSN(), nil
}
