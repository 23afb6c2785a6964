/*
Package test provides testing utilities for this module.

This package includes:
  - Suite: Base test suite with context and testify integration

It has no database or Redis helpers.

Usage:

	import "github.com/fieldbus-systems/opcua-pubsub/pkg/test"

	type MyTestSuite struct {
		test.Suite
	}

	func (s *MyTestSuite) TestSomething() {
		s.NoError(doSomething(s.Ctx))
	}

	func TestMySuite(t *testing.T) {
		test.Run(t, new(MyTestSuite))
	}
*/
package test
