package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodiary/backend/internal/models"
	"moodiary/backend/internal/relations"
)

// accepted creates an accepted elevated edge through the HTTP surface.
func (s *server) accepted(owner, subject uint, t models.RelationshipType) {
	s.t.Helper()
	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/request", subject), owner, RelationInput{RelationshipType: t})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/accept", owner), subject, nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
}

func TestMentorRoutes(t *testing.T) {
	s := newServer(t)
	m, e, stranger := s.user("m", models.RoleMentor), s.user("e"), s.user("s")
	s.accepted(m, e, models.TypeMentor)

	w := s.do(http.MethodPut, fmt.Sprintf("/api/v1/mentor/mentees/%d/notes", e), m, NotesInput{Notes: "good week"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPut, fmt.Sprintf("/api/v1/mentor/mentees/%d/attention", e), m, map[string]bool{"needs_attention": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/mentor/mentees", m, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]relations.SubjectSummary](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, e, list[0].UserID)
	assert.True(t, list[0].Flag)
	assert.Equal(t, "good week", list[0].Notes)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/mentor/mentees/%d/reviewed", e), m, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/mentor/mentees/%d", e), m, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[relations.SubjectDetail](t, w)
	assert.Equal(t, "good week", detail.Entry.Notes)
	assert.False(t, detail.Entry.Flag)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/mentor/mentees/%d", stranger), m, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w404 := s.do(http.MethodGet, "/api/v1/mentor/mentees/9999", m, nil)
	assert.Equal(t, http.StatusForbidden, w404.Code)
	assert.JSONEq(t, w.Body.String(), w404.Body.String(), "missing and unassigned subjects look the same")

	w = s.do(http.MethodPut, fmt.Sprintf("/api/v1/mentor/mentees/%d/attention", e), m, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "the flag is required")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/mentor/mentees", e, nil).Code, "mentees are not mentors")
}

func TestCounsellorRoutes(t *testing.T) {
	s := newServer(t)
	c, client := s.user("c", models.RoleCounsellor), s.user("client")
	s.accepted(c, client, models.TypeCounsellor)

	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/counsellor/clients/%d/sessions", client), c, SessionInput{
		SessionDate: time.Now().Add(2 * time.Hour), SessionType: "video", Notes: "intake",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "video", decode[relations.Session](t, w).SessionType)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/counsellor/clients/%d/sessions", client), c, map[string]string{"session_type": "video"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/v1/counsellor/clients/%d/priority", client), c, map[string]bool{"priority": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/counsellor/clients", c, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]relations.SubjectSummary](t, w)
	require.Len(t, list, 1)
	assert.True(t, list[0].Flag)
	assert.True(t, list[0].UpcomingSession)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/counsellor/clients/%d", client), c, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[relations.SubjectDetail](t, w)
	require.Len(t, detail.UpcomingSessions, 1)
	assert.Equal(t, "intake", detail.UpcomingSessions[0].Notes)
}
