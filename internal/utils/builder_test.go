package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	query, args, err := NewQueryBuilder(`"public"`).
		Select("cycle_id", "worker_count").
		From("discovery_cycles").
		Where("source = ?", "brokerage").
		And("failed = ?", true).
		OrderBy("observed_at", false).
		Limit(10).
		Build()

	require.NoError(t, err)
	assert.Equal(t,
		`SELECT cycle_id, worker_count FROM "public".discovery_cycles WHERE source = ? AND failed = ? ORDER BY observed_at DESC LIMIT ?`,
		query)
	assert.Equal(t, []interface{}{"brokerage", true, 10}, args)
}

func TestBuildInsertRows(t *testing.T) {
	query, args, err := NewQueryBuilder("").
		Insert("a", "b").
		Into("t").
		Values(1, "x").
		Values(2, "y").
		OnConflictDoNothing("a").
		Build()

	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t (a, b) VALUES (?, ?), (?, ?) ON CONFLICT (a) DO NOTHING", query)
	assert.Equal(t, []interface{}{1, "x", 2, "y"}, args)
}

func TestBuildInvalid(t *testing.T) {
	cases := map[string]QueryBuilder{
		"no table":   NewQueryBuilder("public").Select("a"),
		"no columns": NewQueryBuilder("public").From("t"),
		"no rows":    NewQueryBuilder("public").Insert("a").Into("t"),
		"row width":  NewQueryBuilder("public").Insert("a", "b").Into("t").Values(1),
	}
	for name, qb := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := qb.Build()
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}
