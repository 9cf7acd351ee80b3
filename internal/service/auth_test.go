package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/felicity-fest/api/internal/domain"
	"github.com/felicity-fest/api/internal/repository"
)

type mockAuthUserRepo struct {
	byEmail map[string]domain.User
	nextID  uint
}

func newMockAuthUserRepo() *mockAuthUserRepo {
	return &mockAuthUserRepo{byEmail: map[string]domain.User{}}
}

func (m *mockAuthUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	if _, ok := m.byEmail[user.Email]; ok {
		return domain.User{}, repository.ErrUserEmailExists
	}
	m.nextID++
	user.ID = m.nextID
	m.byEmail[user.Email] = user
	return user, nil
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func TestSignupParticipant(t *testing.T) {
	repo := newMockAuthUserRepo()
	svc := NewAuthService(repo)

	created, err := svc.SignupParticipant(context.Background(), domain.User{
		Email:           "ananya@students.iiit.ac.in",
		Password:        "secret1234",
		FirstName:       "Ananya",
		LastName:        "Rao",
		ParticipantType: "iiit",
		OrganizerName:   "should be dropped",
	})
	require.NoError(t, err)
	require.Equal(t, "participant", created.Role)
	require.Empty(t, created.OrganizerName)
	require.NotEqual(t, "secret1234", created.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("secret1234")))
}

func TestSignupOrganizerDropsParticipantFields(t *testing.T) {
	svc := NewAuthService(newMockAuthUserRepo())

	created, err := svc.SignupOrganizer(context.Background(), domain.User{
		Email:           "clubs@felicity.local",
		Password:        "secret1234",
		OrganizerName:   "Music Club",
		ParticipantType: "iiit",
		CollegeName:     "IIIT",
	})
	require.NoError(t, err)
	require.Equal(t, "organizer", created.Role)
	require.Equal(t, "Music Club", created.OrganizerName)
	require.Empty(t, created.ParticipantType)
	require.Empty(t, created.CollegeName)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := NewAuthService(newMockAuthUserRepo())

	user := domain.User{Email: "ananya@students.iiit.ac.in", Password: "secret1234"}
	_, err := svc.SignupParticipant(context.Background(), user)
	require.NoError(t, err)

	_, err = svc.SignupParticipant(context.Background(), user)
	require.ErrorIs(t, err, ErrUserEmailExists)
}

func TestLogin(t *testing.T) {
	svc := NewAuthService(newMockAuthUserRepo())

	_, err := svc.SignupParticipant(context.Background(), domain.User{
		Email:    "ananya@students.iiit.ac.in",
		Password: "secret1234",
	})
	require.NoError(t, err)

	user, err := svc.Login(context.Background(), "ananya@students.iiit.ac.in", "secret1234")
	require.NoError(t, err)
	require.Equal(t, "ananya@students.iiit.ac.in", user.Email)

	_, err = svc.Login(context.Background(), "ananya@students.iiit.ac.in", "wrong")
	require.ErrorIs(t, err, ErrWrongPassword)

	_, err = svc.Login(context.Background(), "nobody@felicity.local", "secret1234")
	require.ErrorIs(t, err, ErrUserNotFound)
}
