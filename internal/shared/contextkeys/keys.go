package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "mongo-testkit context key " + string(c)
}

// TestNameKey carries the name of the running test. The provisioner uses it
// as the collection prefix when the caller does not pass one.
const TestNameKey = contextKey("testName")

// RunIDKey carries the database name of the current test run.
const RunIDKey = contextKey("runID")

// ComponentKey is the key for the logging component
const ComponentKey = contextKey("component")

// OperationKey is the key for the operation being performed
const OperationKey = contextKey("operation")
