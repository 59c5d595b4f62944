package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	apperrors "mongo-testkit/internal/shared/errors"
)

// FailureKind classifies the error a known failure produces.
type FailureKind string

const (
	// KindInvalidOperation matches INVALID_OPERATION application errors,
	// which is how query translation failures surface.
	KindInvalidOperation FailureKind = "invalid_operation"
	KindNotSupported     FailureKind = "not_supported"
	// KindCommand matches errors reported by the server for a command.
	KindCommand FailureKind = "command"
	KindAny     FailureKind = "any"
)

// Matches reports whether err is of kind k.
func (k FailureKind) Matches(err error) bool {
	if err == nil {
		return false
	}
	switch k {
	case KindInvalidOperation:
		return apperrors.IsInvalidOperation(err)
	case KindNotSupported:
		return apperrors.IsNotSupported(err)
	case KindCommand:
		var cmdErr mongo.CommandError
		return errors.As(err, &cmdErr)
	case KindAny:
		return true
	}
	return false
}

// PanicError carries a panic recovered from an action under test.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func runCaptured(action func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return action()
}

type tHelper interface {
	Helper()
}

// ExpectError runs action and asserts it fails with an error of type E whose
// message contains the given text. Success of the action is itself a test
// failure: the known incompatibility went away and the expectation must be
// removed. A panic counts as an error of type *PanicError.
func ExpectError[E error](t assert.TestingT, action func() error, contains string) (E, bool) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var target E

	err := runCaptured(action)
	if err == nil {
		assert.Fail(t, "expected failure did not occur",
			"expected %s containing %q but the action succeeded; remove the known failure", errorTypeName[E](), contains)
		return target, false
	}
	if !errors.As(err, &target) {
		assert.Fail(t, "unexpected error type",
			"expected %s containing %q, got %T: %v", errorTypeName[E](), contains, err, err)
		return target, false
	}
	if !assert.Contains(t, target.Error(), contains) {
		return target, false
	}
	return target, true
}

// ExpectErrorAsync is ExpectError for actions that take a context. The action
// runs on its own goroutine and is awaited before classification.
func ExpectErrorAsync[E error](ctx context.Context, t assert.TestingT, action func(context.Context) error, contains string) (E, bool) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runCaptured(func() error { return action(gctx) })
	})
	return ExpectError[E](t, g.Wait, contains)
}

// ExpectKind runs action and asserts it fails with an error of the given kind
// whose message contains the given text.
func ExpectKind(t assert.TestingT, action func() error, kind FailureKind, contains string) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	err := runCaptured(action)
	if err == nil {
		assert.Fail(t, "expected failure did not occur",
			"expected %s error containing %q but the action succeeded; remove the known failure", kind, contains)
		return false
	}
	if !kind.Matches(err) {
		assert.Fail(t, "unexpected error kind",
			"expected %s error containing %q, got %T: %v", kind, contains, err, err)
		return false
	}
	return assert.Contains(t, err.Error(), contains)
}

// ExpectKindAsync is ExpectKind for actions that take a context.
func ExpectKindAsync(ctx context.Context, t assert.TestingT, action func(context.Context) error, kind FailureKind, contains string) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runCaptured(func() error { return action(gctx) })
	})
	return ExpectKind(t, g.Wait, kind, contains)
}

const translationFailedFormat = "The query expression '%s' could not be translated. " +
	"Either rewrite the query in a form that can be translated, or switch to client evaluation explicitly."

// translationPrefixLen is the length of the expression-dependent lead-in of
// TranslationFailedMessage("").
const translationPrefixLen = 49

// TranslationFailedMessage is the message of a query translation failure for expression.
func TranslationFailedMessage(expression string) string {
	return fmt.Sprintf(translationFailedFormat, expression)
}

// TranslationFailedMarker is the expression-independent tail of every
// translation failure message.
func TranslationFailedMarker() string {
	return TranslationFailedMessage("")[translationPrefixLen:]
}

// NewTranslationError reports that expression could not be translated to a server query.
func NewTranslationError(expression string) *apperrors.AppError {
	return apperrors.NewInvalidOperationError(TranslationFailedMessage(expression)).
		WithCode("TRANSLATION_FAILED").
		WithComponent("query_translator")
}

// AssertTranslationFailed asserts that action fails because a query could not be translated.
func AssertTranslationFailed(t assert.TestingT, action func() error) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return ExpectKind(t, action, KindInvalidOperation, TranslationFailedMarker())
}

// AssertTranslationFailedAsync is AssertTranslationFailed for actions that take a context.
func AssertTranslationFailedAsync(ctx context.Context, t assert.TestingT, action func(context.Context) error) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return ExpectKindAsync(ctx, t, action, KindInvalidOperation, TranslationFailedMarker())
}

func errorTypeName[E error]() string {
	return reflect.TypeOf((*E)(nil)).Elem().String()
}
