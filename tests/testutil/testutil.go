package testutil

import (
	"os"
	"testing"
)

// RequireTestEnvironment fails the test unless GO_ENV=test. The suites
// wipe whole tables between cases, so they must never run against a
// development or production database.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("tests must run with GO_ENV=test to prevent data loss (current GO_ENV=%q)", env)
	}
}

// RequireTestEnvironmentOrSkip skips instead of failing. Use for
// optional suites that need extra infrastructure.
func RequireTestEnvironmentOrSkip(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Skipf("skipping: GO_ENV must be 'test' (current: %q)", env)
	}
}
