package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "user not found"}
		s.Equal("user not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeNotFound}
		s.Equal("not_found", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("database connection failed")
		err := &Error{Code: CodeInternal, Message: "service error", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("works with errors.Is through chains", func() {
		inner := errors.New("root cause")
		err := Wrap(inner, CodeInternal, "save failed")
		s.True(errors.Is(err, inner))
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeNotFound, Message: "user not found"}
		err2 := &Error{Code: CodeNotFound, Message: "consent not found"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeNotFound}
		err2 := &Error{Code: CodeConflict}
		s.False(err1.Is(err2))
	})

	s.Run("does not match plain errors", func() {
		err := &Error{Code: CodeNotFound}
		s.False(err.Is(errors.New("not found")))
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	inner := New(CodeValidation, "email not valid")
	wrapped := Wrap(inner, CodeInternal, "create user")

	s.True(HasCode(wrapped, CodeValidation), "wrapping must not replace an existing domain code")
}

func (s *DomainErrorsSuite) TestHasCode() {
	err := fmt.Errorf("outer: %w", New(CodeValidation, "bad email"))
	s.True(HasCode(err, CodeValidation))
	s.False(HasCode(err, CodeNotFound))
	s.False(HasCode(errors.New("plain"), CodeValidation))
}
