package database

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "tenantguard", Name: "tenantguard"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=tenantguard dbname=tenantguard application_name=tenantguard sslmode=disable", dsn)

	dsn, err = buildPostgresDSN(Config{
		User:     "rbac",
		Name:     "authz",
		Host:     "pg.internal",
		Port:     6543,
		Password: `it's a secret`,
		Options:  map[string]string{"sslmode": "require", "search_path": "rbac"},
	})
	require.NoError(t, err)
	require.Equal(t, `host=pg.internal port=6543 user=rbac dbname=authz password='it\'s a secret' application_name=tenantguard search_path=rbac sslmode=require`, dsn)

	dsn, err = buildPostgresDSN(Config{DSN: "postgres://override"})
	require.NoError(t, err)
	require.Equal(t, "postgres://override", dsn)

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "tenantguard", Name: "tenantguard"})
	require.NoError(t, err)
	require.Contains(t, dsn, "charset=utf8mb4")

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "tenantguard", parsed.User)
	require.Equal(t, "127.0.0.1:3306", parsed.Addr)
	require.Equal(t, "tenantguard", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Equal(t, time.UTC, parsed.Loc)

	dsn, err = buildMySQLDSN(Config{
		User:     "rbac",
		Password: "p@ss:word",
		Name:     "authz",
		Host:     "mysql.internal",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify", "time_zone": "'+00:00'"},
	})
	require.NoError(t, err)

	parsed, err = mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "rbac", parsed.User)
	require.Equal(t, "p@ss:word", parsed.Passwd)
	require.Equal(t, "mysql.internal:3307", parsed.Addr)
	require.Equal(t, "skip-verify", parsed.TLSConfig)
	require.Equal(t, "'+00:00'", parsed.Params["time_zone"])

	_, err = buildMySQLDSN(Config{User: "rbac", Name: "authz", Options: map[string]string{"parseTime": "sometimes"}})
	require.Error(t, err)

	_, err = buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestBuildSQLiteDSN(t *testing.T) {
	dsn, err := buildSQLiteDSN(Config{})
	require.NoError(t, err)
	require.Equal(t, sharedMemoryDSN, dsn)

	dsn, err = buildSQLiteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, sharedMemoryDSN, dsn)

	path := filepath.Join(t.TempDir(), "nested", "rbac.sqlite")
	dsn, err = buildSQLiteDSN(Config{Path: path, Options: map[string]string{"_synchronous": "NORMAL"}})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dsn, "file:"+filepath.ToSlash(path)+"?"))
	require.Contains(t, dsn, "_busy_timeout=5000")
	require.True(t, strings.HasSuffix(dsn, "&_synchronous=NORMAL"))
	require.DirExists(t, filepath.Dir(path))

	dsn, err = buildSQLiteDSN(Config{DSN: " file:explicit.db ", Path: "ignored"})
	require.NoError(t, err)
	require.Equal(t, "file:explicit.db", dsn)
}
