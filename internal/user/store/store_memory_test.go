package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"consentd/internal/sentinel"
	"consentd/pkg/domain"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) TestCreateAndFind() {
	user, err := s.store.Create(context.Background(), "jane.doe@example.com")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), user)
	assert.False(s.T(), user.ID.IsNil())
	assert.Len(s.T(), user.ID.String(), 36)

	found, err := s.store.FindByID(context.Background(), user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user, found)
}

func (s *InMemoryUserStoreSuite) TestCreateIssuesDistinctIDs() {
	a, err := s.store.Create(context.Background(), "a@example.com")
	require.NoError(s.T(), err)
	b, err := s.store.Create(context.Background(), "b@example.com")
	require.NoError(s.T(), err)

	assert.NotEqual(s.T(), a.ID, b.ID)
}

func (s *InMemoryUserStoreSuite) TestCreateDuplicateEmail() {
	_, err := s.store.Create(context.Background(), "taken@example.com")
	require.NoError(s.T(), err)

	_, err = s.store.Create(context.Background(), "taken@example.com")
	require.Error(s.T(), err)
	assert.ErrorIs(s.T(), err, sentinel.ErrEmailUsed)

	var emailErr *EmailUsedError
	require.ErrorAs(s.T(), err, &emailErr)
	assert.Equal(s.T(), "taken@example.com", emailErr.Email)
	assert.Contains(s.T(), err.Error(), "taken@example.com")
}

func (s *InMemoryUserStoreSuite) TestUpdateEmail() {
	user, err := s.store.Create(context.Background(), "old@example.com")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.store.UpdateEmail(context.Background(), user.ID, "new@example.com"))

	found, err := s.store.FindByID(context.Background(), user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "new@example.com", found.Email)
}

func (s *InMemoryUserStoreSuite) TestUpdateEmailToOwnValue() {
	user, err := s.store.Create(context.Background(), "same@example.com")
	require.NoError(s.T(), err)

	// The uniqueness check must exclude the row being updated.
	err = s.store.UpdateEmail(context.Background(), user.ID, "same@example.com")
	assert.NoError(s.T(), err)
}

func (s *InMemoryUserStoreSuite) TestUpdateEmailConflict() {
	_, err := s.store.Create(context.Background(), "first@example.com")
	require.NoError(s.T(), err)
	second, err := s.store.Create(context.Background(), "second@example.com")
	require.NoError(s.T(), err)

	err = s.store.UpdateEmail(context.Background(), second.ID, "first@example.com")
	assert.ErrorIs(s.T(), err, sentinel.ErrEmailUsed)
}

func (s *InMemoryUserStoreSuite) TestDeleteIsIdempotent() {
	user, err := s.store.Create(context.Background(), "delete.me@example.com")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.store.Delete(context.Background(), user.ID))

	_, err = s.store.FindByID(context.Background(), user.ID)
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)

	// Not-found detection is the service's responsibility.
	assert.NoError(s.T(), s.store.Delete(context.Background(), user.ID))
}

func (s *InMemoryUserStoreSuite) TestDeleteRunsCascadeHooks() {
	var cascaded []domain.UserID
	s.store.OnDelete(func(_ context.Context, id domain.UserID) {
		cascaded = append(cascaded, id)
	})

	user, err := s.store.Create(context.Background(), "cascade@example.com")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.store.Delete(context.Background(), user.ID))
	assert.Equal(s.T(), []domain.UserID{user.ID}, cascaded)

	// Absent user: no cascade fires.
	require.NoError(s.T(), s.store.Delete(context.Background(), user.ID))
	assert.Len(s.T(), cascaded, 1)
}

func (s *InMemoryUserStoreSuite) TestFindNotFound() {
	_, err := s.store.FindByID(context.Background(), domain.NewUserID())
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}
