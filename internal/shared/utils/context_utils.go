package utils

import (
	"context"
	"errors"

	"mongo-testkit/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrTestNameNotFound  = errors.New("testName not found in context")
	ErrTestNameNotString = errors.New("testName in context is not a string")
	ErrRunIDNotFound     = errors.New("runID not found in context")
	ErrRunIDNotString    = errors.New("runID in context is not a string")
)

// GetTestNameFromContext retrieves the test name from the context.
// It returns the test name and an error if it is not found or is not a string.
func GetTestNameFromContext(ctx context.Context) (string, error) {
	val := ctx.Value(contextkeys.TestNameKey)
	if val == nil {
		return "", ErrTestNameNotFound
	}
	testName, ok := val.(string)
	if !ok {
		return "", ErrTestNameNotString
	}
	return testName, nil
}

// GetRunIDFromContext retrieves the run database name from the context.
func GetRunIDFromContext(ctx context.Context) (string, error) {
	val := ctx.Value(contextkeys.RunIDKey)
	if val == nil {
		return "", ErrRunIDNotFound
	}
	runID, ok := val.(string)
	if !ok {
		return "", ErrRunIDNotString
	}
	return runID, nil
}

// Context builder functions

// WithTestName adds the running test's name to context
func WithTestName(ctx context.Context, testName string) context.Context {
	return context.WithValue(ctx, contextkeys.TestNameKey, testName)
}

// WithRunID adds the run database name to context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextkeys.RunIDKey, runID)
}

// WithComponent adds component name to context
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, contextkeys.ComponentKey, component)
}

// WithOperation adds operation name to context
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}

// GetTestNameOrDefault retrieves the test name from context or returns a default value
func GetTestNameOrDefault(ctx context.Context, def string) string {
	if v, err := GetTestNameFromContext(ctx); err == nil && v != "" {
		return v
	}
	return def
}

func HasTestName(ctx context.Context) bool {
	_, err := GetTestNameFromContext(ctx)
	return err == nil
}
