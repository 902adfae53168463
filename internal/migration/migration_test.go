package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/receptionist/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embedded, "migrations")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	assert.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestApplyOnSQLiteUsesModels(t *testing.T) {
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, Apply(conn, "sqlite"))

	assert.True(t, conn.Migrator().HasTable("businesses"))
	assert.True(t, conn.Migrator().HasTable("calendar_tokens"))
	assert.True(t, conn.Migrator().HasIndex("businesses", "idx_businesses_owner_email"))
	assert.True(t, conn.Migrator().HasTable("calls"))
	assert.True(t, conn.Migrator().HasIndex("calls", "idx_calls_call_sid"))
	assert.True(t, conn.Migrator().HasIndex("contacts", "idx_contacts_business_phone"))
}

func TestNilHandles(t *testing.T) {
	assert.ErrorIs(t, Apply(nil, "sqlite"), errNoHandle)
	assert.ErrorIs(t, Up(nil), errNoHandle)
}
