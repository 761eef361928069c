package postgres

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createTable = regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)

// schemaColumns maps table name to column name to its definition in the initial migration
func schemaColumns(t *testing.T) map[string]map[string]string {
	t.Helper()
	raw, err := migrationFS.ReadFile("migrations/000001_init.up.sql")
	require.NoError(t, err)

	tables := make(map[string]map[string]string)
	for _, m := range createTable.FindAllStringSubmatch(string(raw), -1) {
		cols := make(map[string]string)
		for _, line := range strings.Split(m[2], "\n") {
			line = strings.TrimSuffix(strings.TrimSpace(line), ",")
			if fields := strings.Fields(line); len(fields) > 1 {
				cols[fields[0]] = line
			}
		}
		tables[m[1]] = cols
	}
	return tables
}

func TestInitMigration_DeleteRules(t *testing.T) {
	tables := schemaColumns(t)

	tests := []struct {
		table  string
		column string
		action string
	}{
		{"users", "org_id", "CASCADE"},
		{"groups", "org_id", "CASCADE"},
		{"events", "org_id", "CASCADE"},
		{"transactions", "org_id", "CASCADE"},
		{"org_settings", "org_id", "CASCADE"},
		{"subscriptions", "member_id", "CASCADE"},
		{"event_attendees", "event_id", "CASCADE"},
		{"events", "organizer_id", "SET NULL"},
		{"payments", "member_id", "SET NULL"},
		{"payments", "subscription_id", "SET NULL"},
		{"transactions", "created_by", "SET NULL"},
		{"users", "parent_id", "SET NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.table+"."+tt.column, func(t *testing.T) {
			cols, ok := tables[tt.table]
			require.True(t, ok, "table %s missing", tt.table)
			def, ok := cols[tt.column]
			require.True(t, ok, "column %s.%s missing", tt.table, tt.column)

			assert.Contains(t, def, "REFERENCES")
			assert.True(t, strings.HasSuffix(def, "ON DELETE "+tt.action), def)
		})
	}
}

func TestInitMigration_SetNullColumnsAreNullable(t *testing.T) {
	for table, cols := range schemaColumns(t) {
		for name, def := range cols {
			if strings.Contains(def, "ON DELETE SET NULL") {
				assert.NotContains(t, def, "NOT NULL", "%s.%s", table, name)
			}
		}
	}
}
