package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type mockSessionRepo struct {
	sessions       []models.Session
	terms          map[string][]models.Term
	created        *models.Session
	createdRoster  []models.Enrollment
	currentSession string
	currentTerm    string
}

func (m *mockSessionRepo) CreateWithEnrollments(ctx context.Context, session *models.Session, enrollments []models.Enrollment) error {
	m.created = session
	m.createdRoster = enrollments
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return &m.sessions[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) ListBySchool(ctx context.Context, schoolID string) ([]models.Session, error) {
	return m.sessions, nil
}

func (m *mockSessionRepo) CountBySchool(ctx context.Context, schoolID string) (int, error) {
	return len(m.sessions), nil
}

func (m *mockSessionRepo) FindCurrent(ctx context.Context, schoolID string) (*models.Session, error) {
	for i := range m.sessions {
		if m.sessions[i].IsCurrent {
			return &m.sessions[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) FindLatest(ctx context.Context, schoolID, excludeID string) (*models.Session, error) {
	var latest *models.Session
	for i := range m.sessions {
		s := &m.sessions[i]
		if s.ID == excludeID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return latest, nil
}

func (m *mockSessionRepo) SetCurrent(ctx context.Context, schoolID, sessionID string) error {
	m.currentSession = sessionID
	return nil
}

func (m *mockSessionRepo) SetShowResults(ctx context.Context, schoolID, sessionID string, show bool) error {
	for i := range m.sessions {
		if m.sessions[i].ID == sessionID {
			m.sessions[i].ShowResults = show
		}
	}
	return nil
}

func (m *mockSessionRepo) CreateTerm(ctx context.Context, term *models.Term) error {
	if m.terms == nil {
		m.terms = make(map[string][]models.Term)
	}
	m.terms[term.SessionID] = append(m.terms[term.SessionID], *term)
	return nil
}

func (m *mockSessionRepo) FindTermByID(ctx context.Context, id string) (*models.Term, error) {
	for _, terms := range m.terms {
		for i := range terms {
			if terms[i].ID == id {
				return &terms[i], nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) ListTerms(ctx context.Context, sessionID string) ([]models.Term, error) {
	return m.terms[sessionID], nil
}

func (m *mockSessionRepo) FindCurrentTerm(ctx context.Context, sessionID string) (*models.Term, error) {
	for _, term := range m.terms[sessionID] {
		if term.IsCurrent {
			t := term
			return &t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) SetCurrentTerm(ctx context.Context, sessionID, termID string) error {
	m.currentTerm = termID
	return nil
}

type mockLadderRepo struct {
	levels []models.ClassLevel
}

func (m *mockLadderRepo) ListBySchool(ctx context.Context, schoolID string) ([]models.ClassLevel, error) {
	return m.levels, nil
}

type mockRosterRepo struct {
	rosters map[string][]models.Enrollment
}

func (m *mockRosterRepo) ListBySession(ctx context.Context, schoolID, sessionID string) ([]models.Enrollment, error) {
	return m.rosters[sessionID], nil
}

func threeRungLadder() []models.ClassLevel {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.ClassLevel{
		{ID: "jss1", SchoolID: "school-1", Name: "JSS 1", CreatedAt: base},
		{ID: "jss2", SchoolID: "school-1", Name: "JSS 2", CreatedAt: base.Add(time.Minute)},
		{ID: "jss3", SchoolID: "school-1", Name: "JSS 3", CreatedAt: base.Add(2 * time.Minute)},
	}
}

func newSessionService(repo *mockSessionRepo, ladder *mockLadderRepo, roster *mockRosterRepo) *SessionService {
	return NewSessionService(repo, ladder, roster, nil, nil, nil, nil)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", SchoolID: "school-1", Role: models.RoleAdmin}
}

func TestCreateFirstSessionSkipsRollover(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionService(repo, &mockLadderRepo{levels: threeRungLadder()}, &mockRosterRepo{})

	session, err := svc.Create(context.Background(), adminClaims(), CreateSessionRequest{Name: "2025/2026"})
	require.NoError(t, err)
	assert.Equal(t, "2025/2026", session.Name)
	assert.Empty(t, repo.createdRoster)
}

func TestCreateSessionPromotesOneRung(t *testing.T) {
	previous := models.Session{ID: "sess-old", SchoolID: "school-1", Name: "2024/2025", CreatedAt: time.Now().Add(-time.Hour)}
	repo := &mockSessionRepo{sessions: []models.Session{previous}}
	roster := &mockRosterRepo{rosters: map[string][]models.Enrollment{
		"sess-old": {
			{ID: "e1", SchoolID: "school-1", SessionID: "sess-old", ClassLevelID: "jss1", StudentID: "s1"},
			{ID: "e2", SchoolID: "school-1", SessionID: "sess-old", ClassLevelID: "jss2", StudentID: "s2"},
		},
	}}
	svc := newSessionService(repo, &mockLadderRepo{levels: threeRungLadder()}, roster)

	session, err := svc.Create(context.Background(), adminClaims(), CreateSessionRequest{Name: "2025/2026"})
	require.NoError(t, err)
	require.Len(t, repo.createdRoster, 2)

	byStudent := make(map[string]models.Enrollment)
	for _, e := range repo.createdRoster {
		byStudent[e.StudentID] = e
		assert.Equal(t, session.ID, e.SessionID)
		assert.Equal(t, "school-1", e.SchoolID)
	}
	assert.Equal(t, "jss2", byStudent["s1"].ClassLevelID)
	assert.Equal(t, "jss3", byStudent["s2"].ClassLevelID)
}

func TestCreateSessionGraduatesFinalRung(t *testing.T) {
	previous := models.Session{ID: "sess-old", SchoolID: "school-1", Name: "2024/2025", CreatedAt: time.Now().Add(-time.Hour)}
	repo := &mockSessionRepo{sessions: []models.Session{previous}}
	roster := &mockRosterRepo{rosters: map[string][]models.Enrollment{
		"sess-old": {
			{ID: "e1", SchoolID: "school-1", SessionID: "sess-old", ClassLevelID: "jss3", StudentID: "s1"},
		},
	}}
	svc := newSessionService(repo, &mockLadderRepo{levels: threeRungLadder()}, roster)

	_, err := svc.Create(context.Background(), adminClaims(), CreateSessionRequest{Name: "2025/2026"})
	require.NoError(t, err)
	assert.Empty(t, repo.createdRoster)
}

func TestCreateSessionPromotesFromLatestOnly(t *testing.T) {
	older := models.Session{ID: "sess-a", SchoolID: "school-1", CreatedAt: time.Now().Add(-2 * time.Hour)}
	newer := models.Session{ID: "sess-b", SchoolID: "school-1", CreatedAt: time.Now().Add(-time.Hour)}
	repo := &mockSessionRepo{sessions: []models.Session{older, newer}}
	roster := &mockRosterRepo{rosters: map[string][]models.Enrollment{
		"sess-a": {{ID: "e0", SchoolID: "school-1", SessionID: "sess-a", ClassLevelID: "jss1", StudentID: "stale"}},
		"sess-b": {{ID: "e1", SchoolID: "school-1", SessionID: "sess-b", ClassLevelID: "jss1", StudentID: "s1"}},
	}}
	svc := newSessionService(repo, &mockLadderRepo{levels: threeRungLadder()}, roster)

	_, err := svc.Create(context.Background(), adminClaims(), CreateSessionRequest{Name: "2025/2026"})
	require.NoError(t, err)
	require.Len(t, repo.createdRoster, 1)
	assert.Equal(t, "s1", repo.createdRoster[0].StudentID)
}

func TestCurrentPeriodErrorsWhenUnset(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionService(repo, &mockLadderRepo{}, &mockRosterRepo{})

	_, err := svc.CurrentPeriod(context.Background(), "school-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionNotSet.Code, appErrors.FromError(err).Code)

	repo.sessions = []models.Session{{ID: "sess-1", SchoolID: "school-1", IsCurrent: true}}
	_, err = svc.CurrentPeriod(context.Background(), "school-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTermNotSet.Code, appErrors.FromError(err).Code)
}

func TestCurrentPeriodResolvesSessionAndTerm(t *testing.T) {
	repo := &mockSessionRepo{
		sessions: []models.Session{{ID: "sess-1", SchoolID: "school-1", IsCurrent: true}},
		terms: map[string][]models.Term{
			"sess-1": {{ID: "term-1", SessionID: "sess-1", IsCurrent: true}},
		},
	}
	svc := newSessionService(repo, &mockLadderRepo{}, &mockRosterRepo{})

	period, err := svc.CurrentPeriod(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", period.Session.ID)
	assert.Equal(t, "term-1", period.Term.ID)
}

func TestSetCurrentTermRejectsForeignTerm(t *testing.T) {
	repo := &mockSessionRepo{
		sessions: []models.Session{
			{ID: "sess-1", SchoolID: "school-1"},
			{ID: "sess-2", SchoolID: "school-1"},
		},
		terms: map[string][]models.Term{
			"sess-2": {{ID: "term-x", SessionID: "sess-2"}},
		},
	}
	svc := newSessionService(repo, &mockLadderRepo{}, &mockRosterRepo{})

	err := svc.SetCurrentTerm(context.Background(), adminClaims(), "sess-1", "term-x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.currentTerm)
}

func TestGetSessionScopedToSchool(t *testing.T) {
	repo := &mockSessionRepo{sessions: []models.Session{{ID: "sess-1", SchoolID: "other-school"}}}
	svc := newSessionService(repo, &mockLadderRepo{}, &mockRosterRepo{})

	_, err := svc.Get(context.Background(), "school-1", "sess-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
