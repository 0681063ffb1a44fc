// Package exitcodes defines the standard exit codes used by pkgtest.
package exitcodes

// Exit code constants used by pkgtest
// These constants define the exit codes that the harness uses to indicate
// various states when it exits:
//
// * Success (0): Used when every attempted test passes (skips do not count)
// * TestFailure (1): Used when one or more tests fail
// * RuntimeErr (2): Used for runtime errors such as missing metadata files
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors
)
