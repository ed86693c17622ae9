package database

import (
	"net/url"
	"testing"

	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	prev := env.Env
	env.Env = values
	t.Cleanup(func() { env.Env = prev })
}

func TestMySQLDSN(t *testing.T) {
	withEnv(t, map[string]string{
		"DB_USER":     "vendor",
		"DB_PASSWORD": "secret",
		"DB_HOST":     "db",
		"DB_PORT":     "3307",
		"DB_NAME":     "weddings",
	})

	assert.Equal(t, "vendor:secret@tcp(db:3307)/weddings?charset=utf8mb4&parseTime=True&loc=UTC", MySQLDSN())
}

func TestPostgresDSN(t *testing.T) {
	withEnv(t, map[string]string{
		"DB_USER":     "postgres",
		"DB_PASSWORD": "pw",
		"DB_HOST":     "db.example.supabase.co",
		"DB_NAME":     "postgres",
		"DB_SSLMODE":  "disable",
	})

	assert.Equal(t,
		"postgres://postgres:pw@db.example.supabase.co:5432/postgres?TimeZone=UTC&sslmode=disable",
		PostgresDSN())
}

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	withEnv(t, map[string]string{
		"DB_USER":     "vendor",
		"DB_PASSWORD": "it's a p@ss/word",
		"DB_HOST":     "db.internal",
		"DB_NAME":     "weddings",
	})

	dsn := PostgresDSN()
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	password, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "it's a p@ss/word", password)
	assert.Equal(t, "vendor", u.User.Username())
	assert.Equal(t, "/weddings", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestNewDialector(t *testing.T) {
	withEnv(t, map[string]string{})

	d, err := NewDialector("mysql")
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	d, err = NewDialector("Postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = NewDialector("oracle")
	assert.Error(t, err)
}
