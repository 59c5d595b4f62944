package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMongoCapabilities(t *testing.T) {
	c := MongoCapabilities()
	assert.True(t, c.StrictEquality())
	assert.Equal(t, 53, c.IntegerPrecision())
	assert.False(t, c.SupportsAnsi())
	assert.False(t, c.SupportsUnicodeToAnsiConversion())
	assert.True(t, c.SupportsLargeStringComparisons())
	assert.False(t, c.SupportsBinaryKeys())
	assert.True(t, c.SupportsDecimalComparisons())
	assert.Equal(t, time.Time{}, c.DefaultDateTime())
	assert.False(t, c.PreservesDateTimeKind())
	assert.NotEmpty(t, c.IgnoredDiagnostics())
}

func TestCapabilitySet_IsImmutable(t *testing.T) {
	flags := CapabilityFlags{IntegerPrecision: 64, IgnoredDiagnostics: []string{"a"}}
	c := NewCapabilitySet(flags)

	flags.IgnoredDiagnostics[0] = "changed"
	flags.IntegerPrecision = 1
	assert.Equal(t, []string{"a"}, c.IgnoredDiagnostics())
	assert.Equal(t, 64, c.IntegerPrecision())

	out := c.IgnoredDiagnostics()
	out[0] = "mutated"
	assert.Equal(t, []string{"a"}, c.IgnoredDiagnostics())

	f := c.Flags()
	f.IgnoredDiagnostics[0] = "mutated"
	assert.Equal(t, []string{"a"}, c.IgnoredDiagnostics())
}

func TestCapabilitySet_Vars(t *testing.T) {
	vars := MongoCapabilities().Vars()
	assert.Equal(t, int64(53), vars["integerPrecision"])
	assert.Equal(t, false, vars["supportsBinaryKeys"])
	assert.Equal(t, true, vars["supportsDecimalComparisons"])
}

func TestCollectionNamespace(t *testing.T) {
	ns := NewCollectionNamespace("MongoTest-x-1", "TestA_1+2")
	assert.Equal(t, "MongoTest-x-1.TestA_1+2", ns.FullName())
	assert.Equal(t, ns.FullName(), ns.String())

	parsed, ok := ParseNamespace("db.coll.with.dots")
	assert.True(t, ok)
	assert.Equal(t, "db", parsed.Database)
	assert.Equal(t, "coll.with.dots", parsed.Collection)

	_, ok = ParseNamespace("nodot")
	assert.False(t, ok)
	_, ok = ParseNamespace(".coll")
	assert.False(t, ok)
}
