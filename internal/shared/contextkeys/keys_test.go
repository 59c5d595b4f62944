package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKey_String(t *testing.T) {
	key := contextKey("testKey")
	assert.Equal(t, "mongo-testkit context key testKey", key.String())
}

func TestContextKeys_Usage(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, TestNameKey, "TestSomething")
	ctx = context.WithValue(ctx, RunIDKey, "MongoTest-2026-10-19T10-00-00-1")
	ctx = context.WithValue(ctx, ComponentKey, "provisioner")
	ctx = context.WithValue(ctx, OperationKey, "create_collection")

	assert.Equal(t, "TestSomething", ctx.Value(TestNameKey))
	assert.Equal(t, "MongoTest-2026-10-19T10-00-00-1", ctx.Value(RunIDKey))
	assert.Equal(t, "provisioner", ctx.Value(ComponentKey))
	assert.Equal(t, "create_collection", ctx.Value(OperationKey))
}

func TestContextKeys_Distinct(t *testing.T) {
	ctx := context.WithValue(context.Background(), TestNameKey, "a")
	assert.Nil(t, ctx.Value(RunIDKey))
	assert.Nil(t, ctx.Value(contextKey("unrelated")))
}
