package instructors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inr99/academy/internal/auth"
	"github.com/inr99/academy/internal/models"
)

type memStore struct {
	users    map[uuid.UUID]models.User
	profiles map[uuid.UUID]models.InstructorProfile
}

func newMemStore(users ...models.User) *memStore {
	m := &memStore{users: map[uuid.UUID]models.User{}, profiles: map[uuid.UUID]models.InstructorProfile{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memStore) User(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) Profile(_ context.Context, id uuid.UUID) (*models.InstructorProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) UpsertProfile(_ context.Context, p *models.InstructorProfile) error {
	m.profiles[p.UserID] = *p
	return nil
}

func instructor() models.User {
	return models.User{ID: uuid.New(), Email: "asha@inr99.academy", Name: "Asha", Role: models.RoleInstructor}
}

func TestGetReturnsEmptyProfile(t *testing.T) {
	u := instructor()
	svc := NewService(newMemStore(u))

	p, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.User.ID)
	assert.Equal(t, u.ID, p.Profile.UserID)
	assert.NotNil(t, p.Profile.Expertise)
	assert.NotNil(t, p.Profile.SocialLinks)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateUpsertsAndMerges(t *testing.T) {
	u := instructor()
	store := newMemStore(u)
	svc := NewService(store)
	ctx := context.Background()

	headline := "  Personal finance coach "
	_, err := svc.Update(ctx, u.ID, Update{Headline: &headline, Expertise: []string{"Budgeting", " budgeting", "", "Tax"}})
	require.NoError(t, err)

	years := 7
	p, err := svc.Update(ctx, u.ID, Update{YearsExperience: &years})
	require.NoError(t, err)
	assert.Equal(t, "Personal finance coach", p.Profile.Headline)
	assert.Equal(t, []string{"Budgeting", "Tax"}, p.Profile.Expertise)
	assert.Equal(t, 7, store.profiles[u.ID].YearsExperience)
}

func TestUpdateValidates(t *testing.T) {
	u := instructor()
	svc := NewService(newMemStore(u))

	site := "ftp://example.com"
	_, err := svc.Update(context.Background(), u.ID, Update{Website: &site})
	assert.ErrorIs(t, err, ErrInvalidWebsite)

	years := -1
	_, err = svc.Update(context.Background(), u.ID, Update{YearsExperience: &years})
	assert.ErrorIs(t, err, ErrInvalidYears)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	u := instructor()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		auth.SetClaims(c, &auth.Claims{UserID: u.ID, Email: u.Email, Role: u.Role})
	})
	NewHandler(NewService(newMemStore(u)), nil).Register(r.Group("/api/instructor"))

	req := httptest.NewRequest(http.MethodPut, "/api/instructor/profile", strings.NewReader(`{"bio":"Ten years in banking","website":"https://asha.dev"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/instructor/profile", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bio":"Ten years in banking"`)
	assert.Contains(t, w.Body.String(), `"email":"asha@inr99.academy"`)

	req = httptest.NewRequest(http.MethodPut, "/api/instructor/profile", strings.NewReader(`{"website":"not a url"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
