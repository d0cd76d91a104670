package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	gdb, err := Connect("sqlite:file:dbtest?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(gdb))

	for _, table := range []string{"users", "chat_sessions", "chat_messages", "chat_jobs", "prompt_templates"} {
		require.True(t, gdb.Migrator().HasTable(table), table)
	}

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
