package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"job-board/internal/application"
	"job-board/internal/auth"
	"job-board/internal/lifecycle"
	"job-board/internal/model"
	"job-board/internal/savedjobs"
	"job-board/internal/search"
	"job-board/internal/storage"
	"job-board/internal/subscription"
)

type stubs struct {
	searcher   *stubSearcher
	recommends *stubRecommender
	jobs       *stubJobs
	life       *stubLifecycle
	saved      *stubSaved
	apps       *stubApps
	subs       *stubSubscriptions
}

func newTestHandler() (http.Handler, *stubs) {
	s := &stubs{
		searcher:   &stubSearcher{},
		recommends: &stubRecommender{},
		jobs:       &stubJobs{jobs: map[uint]*model.Job{}},
		life:       &stubLifecycle{},
		saved:      &stubSaved{},
		apps:       &stubApps{},
		subs:       &stubSubscriptions{},
	}
	h := NewHandler(Deps{
		Searcher:      s.searcher,
		Recommender:   s.recommends,
		Lifecycle:     s.life,
		Jobs:          s.jobs,
		Saved:         s.saved,
		Applications:  s.apps,
		Subscriptions: s.subs,
		Auth: auth.NewResolver(auth.Config{Tokens: []auth.TokenEntry{
			{Token: "emp-token", UserID: 1, Role: auth.RoleEmployer},
			{Token: "emp2-token", UserID: 2, Role: auth.RoleEmployer},
			{Token: "app-token", UserID: 9, Role: auth.RoleApplicant},
		}}),
	})
	return h, s
}

func doRequest(h http.Handler, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler()
	w := doRequest(h, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestListJobsPassesFiltersAndPage(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	w := doRequest(h, http.MethodGet, "/api/jobs?text=go&location=berlin&page=2&per_page=5", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if s.searcher.raw["text"] != "go" || s.searcher.raw["location"] != "berlin" {
		t.Fatalf("filters not forwarded: %v", s.searcher.raw)
	}
	if s.searcher.page != (search.PageRequest{Page: 2, PerPage: 5}) {
		t.Fatalf("page not forwarded: %+v", s.searcher.page)
	}
}

func TestListJobsRejectsMalformedSalaryRange(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	w := doRequest(h, http.MethodGet, "/api/jobs?salary_range=abc", "", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/my/jobs?salary_range=abc", "emp-token", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("owner listing should reject malformed range too, got %d", w.Code)
	}
	if s.searcher.calls != 0 {
		t.Fatalf("searcher must not run on malformed input")
	}
	if w := doRequest(h, http.MethodGet, "/api/recommendations?salary_range=abc", "app-token", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("recommendations should reject malformed range too, got %d", w.Code)
	}
	if s.recommends.calls != 0 {
		t.Fatalf("recommender must not run on malformed input")
	}
}

func TestGetJobHidesDrafts(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	s.jobs.jobs[1] = &model.Job{ID: 1, EmployerID: 1, Title: "Live", Status: model.StatusPublished}
	s.jobs.jobs[2] = &model.Job{ID: 2, EmployerID: 1, Title: "Draft", Status: model.StatusDraft}

	if w := doRequest(h, http.MethodGet, "/api/jobs/1", "", nil); w.Code != http.StatusOK {
		t.Fatalf("published job should be public, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/jobs/2", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("draft should 404 for anonymous, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/jobs/2", "emp2-token", nil); w.Code != http.StatusNotFound {
		t.Fatalf("draft should 404 for foreign employer, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/jobs/2", "emp-token", nil); w.Code != http.StatusOK {
		t.Fatalf("draft should be visible to its owner, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/jobs/99", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing job should 404, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/jobs/zero", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id should 400, got %d", w.Code)
	}
}

func TestRecommendationsRequireAuth(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	if w := doRequest(h, http.MethodGet, "/api/recommendations", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/recommendations", "emp-token", nil); w.Code != http.StatusForbidden {
		t.Fatalf("employer should 403, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/recommendations", "app-token", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if s.recommends.userID != 9 {
		t.Fatalf("wrong user forwarded: %d", s.recommends.userID)
	}
}

func TestCreateJobAuthorization(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	body := `{"title":"Backend Engineer"}`

	if w := doRequest(h, http.MethodPost, "/api/jobs", "", strings.NewReader(body)); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create should 401, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodPost, "/api/jobs", "app-token", strings.NewReader(body)); w.Code != http.StatusForbidden {
		t.Fatalf("applicant create should 403, got %d", w.Code)
	}
	w := doRequest(h, http.MethodPost, "/api/jobs", "emp-token", strings.NewReader(body))
	if w.Code != http.StatusCreated {
		t.Fatalf("employer create should 201, got %d: %s", w.Code, w.Body)
	}
	if s.life.employerID != 1 || s.life.in.Title == nil || *s.life.in.Title != "Backend Engineer" {
		t.Fatalf("payload not forwarded: %+v", s.life.in)
	}
}

func TestCreateJobSplitsSalaryRange(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	body := `{"title":"x","salary_range":"3000-5000"}`
	if w := doRequest(h, http.MethodPost, "/api/jobs", "emp-token", strings.NewReader(body)); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if s.life.in.SalaryMin == nil || *s.life.in.SalaryMin != 3000 || s.life.in.SalaryMax == nil || *s.life.in.SalaryMax != 5000 {
		t.Fatalf("salary_range not split: %+v", s.life.in)
	}

	bad := `{"title":"x","salary_range":"oops"}`
	if w := doRequest(h, http.MethodPost, "/api/jobs", "emp-token", strings.NewReader(bad)); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed salary_range should 422, got %d", w.Code)
	}
}

func TestCreateJobValidationMapsTo422(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	s.life.err = &lifecycle.ValidationError{Msg: "title is required"}
	w := doRequest(h, http.MethodPost, "/api/jobs", "emp-token", strings.NewReader(`{}`))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestUpdateJobRequiresOwner(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	s.jobs.jobs[3] = &model.Job{ID: 3, EmployerID: 1, Title: "Mine", Status: model.StatusPublished}

	body := `{"title":"Renamed"}`
	if w := doRequest(h, http.MethodPut, "/api/jobs/3", "emp2-token", strings.NewReader(body)); w.Code != http.StatusForbidden {
		t.Fatalf("foreign employer should 403, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodPut, "/api/jobs/3", "app-token", strings.NewReader(body)); w.Code != http.StatusForbidden {
		t.Fatalf("applicant should 403, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodPut, "/api/jobs/3", "emp-token", strings.NewReader(body)); w.Code != http.StatusOK {
		t.Fatalf("owner update should 200, got %d", w.Code)
	}
}

func TestDeleteJob(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	s.jobs.jobs[3] = &model.Job{ID: 3, EmployerID: 1, Status: model.StatusDraft}

	w := doRequest(h, http.MethodDelete, "/api/jobs/3", "emp-token", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if s.life.deleted != 3 {
		t.Fatalf("delete not forwarded: %d", s.life.deleted)
	}
}

func TestSaveJobConflicts(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()

	if w := doRequest(h, http.MethodPost, "/api/jobs/1/save", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodPost, "/api/jobs/1/save", "emp-token", nil); w.Code != http.StatusForbidden {
		t.Fatalf("employer save should 403, got %d", w.Code)
	}

	s.saved.err = savedjobs.ErrNotPublished
	if w := doRequest(h, http.MethodPost, "/api/jobs/1/save", "app-token", nil); w.Code != http.StatusConflict {
		t.Fatalf("unpublished job should 409, got %d", w.Code)
	}

	s.saved.err = nil
	if w := doRequest(h, http.MethodPost, "/api/jobs/1/save", "app-token", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodDelete, "/api/jobs/1/save", "app-token", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestListSavedRequiresAuth(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler()
	if w := doRequest(h, http.MethodGet, "/api/my/saved", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/my/saved", "app-token", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestApplyWithJSONBody(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	if w := doRequest(h, http.MethodPost, "/api/jobs/4/apply", "emp-token", strings.NewReader(`{}`)); w.Code != http.StatusForbidden {
		t.Fatalf("employer apply should 403, got %d", w.Code)
	}

	w := doRequest(h, http.MethodPost, "/api/jobs/4/apply", "app-token", strings.NewReader(`{"message":"hi"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}
	if s.apps.appliedJob != 4 || s.apps.message != "hi" || s.apps.resume != nil {
		t.Fatalf("apply not forwarded: job %d message %q", s.apps.appliedJob, s.apps.message)
	}

	s.apps.err = application.ErrAlreadyApplied
	if w := doRequest(h, http.MethodPost, "/api/jobs/4/apply", "app-token", strings.NewReader(`{}`)); w.Code != http.StatusConflict {
		t.Fatalf("duplicate apply should 409, got %d", w.Code)
	}
}

func TestApplyWithMultipartResume(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("message", "see attached")
	fw, err := mw.CreateFormFile("resume", "cv.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile error: %v", err)
	}
	_, _ = fw.Write([]byte("resume body"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/4/apply", &buf)
	req.Header.Set("Authorization", "Bearer app-token")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}
	if s.apps.message != "see attached" || s.apps.resumeName != "cv.pdf" || string(s.apps.resume) != "resume body" {
		t.Fatalf("multipart fields not forwarded: %q %q %q", s.apps.message, s.apps.resumeName, s.apps.resume)
	}
}

func TestApplyRejectsOversizeResume(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("resume", "huge.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile error: %v", err)
	}
	_, _ = fw.Write(bytes.Repeat([]byte("x"), 6<<20))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/4/apply", &buf)
	req.Header.Set("Authorization", "Bearer app-token")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if s.apps.appliedJob != 0 {
		t.Fatalf("oversize upload must not reach the service")
	}
}

func TestListApplicationsOwnerOnly(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	s.jobs.jobs[4] = &model.Job{ID: 4, EmployerID: 1, Status: model.StatusPublished}

	if w := doRequest(h, http.MethodGet, "/api/jobs/4/applications", "emp2-token", nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign employer should 403, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/jobs/4/applications", "emp-token", nil); w.Code != http.StatusOK {
		t.Fatalf("owner should 200, got %d", w.Code)
	}
}

func TestUpdateApplicationStatus(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	s.jobs.jobs[4] = &model.Job{ID: 4, EmployerID: 1, Status: model.StatusPublished}
	s.apps.app = &model.Application{ID: 7, JobID: 4, Status: model.ApplicationSubmitted}

	w := doRequest(h, http.MethodPatch, "/api/applications/7", "emp-token", strings.NewReader(`{"status":"reviewed"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	if s.apps.newStatus != "reviewed" {
		t.Fatalf("status not forwarded: %q", s.apps.newStatus)
	}

	s.apps.err = &application.ValidationError{Msg: "transition not allowed"}
	w = doRequest(h, http.MethodPatch, "/api/applications/7", "emp-token", strings.NewReader(`{"status":"submitted"}`))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid transition should 422, got %d", w.Code)
	}
}

func TestDownloadResume(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	s.jobs.jobs[4] = &model.Job{ID: 4, EmployerID: 1, Status: model.StatusPublished}
	s.apps.app = &model.Application{ID: 7, JobID: 4, ResumeKey: "k", ResumeName: "cv.pdf"}
	s.apps.resumeBody = "resume body"

	w := doRequest(h, http.MethodGet, "/api/applications/7/resume", "emp-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "cv.pdf") {
		t.Fatalf("unexpected disposition: %s", got)
	}
	if w.Body.String() != "resume body" {
		t.Fatalf("unexpected body: %s", w.Body)
	}
}

func TestCreateSubscription(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	w := doRequest(h, http.MethodPost, "/api/subscriptions", "", strings.NewReader(`{"email":"user@example.com","tags":["backend"]}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}
	if s.subs.req.Email != "user@example.com" {
		t.Fatalf("request not forwarded: %+v", s.subs.req)
	}

	s.subs.err = &subscriptionError{"invalid email"}
	if w := doRequest(h, http.MethodPost, "/api/subscriptions", "", strings.NewReader(`{"email":"bad"}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestNotFoundMapping(t *testing.T) {
	t.Parallel()

	h, s := newTestHandler()
	s.searcher.err = storage.ErrNotFound
	w := doRequest(h, http.MethodGet, "/api/jobs", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 mapping, got %d", w.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(w.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload["error"] == "" {
		t.Fatalf("error body missing message")
	}
}

// --- stubs ---

type subscriptionError struct{ msg string }

func (e *subscriptionError) Error() string { return e.msg }

type stubSearcher struct {
	raw   map[string]string
	page  search.PageRequest
	calls int
	err   error
}

func (s *stubSearcher) SearchPublished(ctx context.Context, raw map[string]string, page search.PageRequest) (search.Result, error) {
	s.calls++
	s.raw = raw
	s.page = page
	if s.err != nil {
		return search.Result{}, s.err
	}
	return search.NewResult(nil, page.Normalize(), 0), nil
}

func (s *stubSearcher) SearchOwned(ctx context.Context, employerID uint, raw map[string]string, page search.PageRequest) (search.Result, error) {
	s.calls++
	s.raw = raw
	s.page = page
	return search.NewResult(nil, page.Normalize(), 0), nil
}

type stubRecommender struct {
	userID uint
	calls  int
}

func (s *stubRecommender) Recommend(ctx context.Context, userID uint, raw map[string]string, page search.PageRequest) (search.Result, error) {
	s.calls++
	s.userID = userID
	return search.NewResult(nil, page.Normalize(), 0), nil
}

type stubJobs struct {
	jobs map[uint]*model.Job
}

func (s *stubJobs) GetJob(ctx context.Context, id uint) (*model.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return job, nil
}

type stubLifecycle struct {
	employerID uint
	in         lifecycle.Input
	deleted    uint
	err        error
}

func (s *stubLifecycle) Create(ctx context.Context, employerID uint, in lifecycle.Input) (*model.Job, error) {
	s.employerID = employerID
	s.in = in
	if s.err != nil {
		return nil, s.err
	}
	return &model.Job{ID: 1, EmployerID: employerID}, nil
}

func (s *stubLifecycle) Update(ctx context.Context, id uint, in lifecycle.Input) (*model.Job, error) {
	s.in = in
	if s.err != nil {
		return nil, s.err
	}
	return &model.Job{ID: id}, nil
}

func (s *stubLifecycle) Delete(ctx context.Context, id uint) error {
	s.deleted = id
	return s.err
}

type stubSaved struct {
	err error
}

func (s *stubSaved) Save(ctx context.Context, userID, jobID uint) error   { return s.err }
func (s *stubSaved) Unsave(ctx context.Context, userID, jobID uint) error { return s.err }

func (s *stubSaved) List(ctx context.Context, userID uint, page search.PageRequest) (search.Result, error) {
	return search.NewResult(nil, page.Normalize(), 0), s.err
}

type stubApps struct {
	app        *model.Application
	appliedJob uint
	message    string
	resume     []byte
	resumeName string
	newStatus  string
	resumeBody string
	err        error
}

func (s *stubApps) Apply(ctx context.Context, applicantID, jobID uint, message string, resume io.Reader, resumeName string) (*model.Application, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.appliedJob = jobID
	s.message = message
	s.resumeName = resumeName
	if resume != nil {
		s.resume, _ = io.ReadAll(resume)
	} else {
		s.resume = nil
	}
	return &model.Application{ID: 1, JobID: jobID, ApplicantID: applicantID}, nil
}

func (s *stubApps) Get(ctx context.Context, appID uint) (*model.Application, error) {
	if s.app == nil {
		return nil, storage.ErrNotFound
	}
	return s.app, nil
}

func (s *stubApps) ListForJob(ctx context.Context, jobID uint) ([]model.Application, error) {
	return nil, nil
}

func (s *stubApps) UpdateStatus(ctx context.Context, appID uint, status string) (*model.Application, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.newStatus = status
	return &model.Application{ID: appID, Status: status}, nil
}

func (s *stubApps) DownloadResume(ctx context.Context, appID uint) (io.ReadCloser, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return io.NopCloser(strings.NewReader(s.resumeBody)), s.app.ResumeName, nil
}

type stubSubscriptions struct {
	req subscription.Request
	err error
}

func (s *stubSubscriptions) Create(ctx context.Context, req subscription.Request) (model.Subscription, error) {
	if s.err != nil {
		return model.Subscription{}, s.err
	}
	s.req = req
	return model.Subscription{ID: 1, Email: req.Email, Channel: "email"}, nil
}
