package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platforms"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

// fakeAdapter implements platforms.Adapter with overridable behavior per
// method. Unset methods return zero values.
type fakeAdapter struct {
	cfg            *platforms.PlatformConfig
	authorizeFn    func(p platforms.AuthParams) (string, error)
	exchangeFn     func(p platforms.ExchangeParams) (*platforms.Token, error)
	refreshFn      func(s platforms.Session) (*platforms.Token, error)
	profileFn      func(s platforms.Session) (*platforms.Profile, error)
	publishFn      func(s platforms.Session, c *platforms.Content) (string, error)
	accountMetrics func(s platforms.Session) (*platforms.AccountMetrics, error)
	postMetrics    func(s platforms.Session, contentID string) (*platforms.PostMetrics, error)

	mu           sync.Mutex
	refreshCalls int
	publishCalls int
	revokeCalls  int
}

func newFakeAdapter(platform string) *fakeAdapter {
	return &fakeAdapter{
		cfg: &platforms.PlatformConfig{
			Platform:     platform,
			AuthType:     platforms.AuthTypeOAuth2,
			ClientID:     "id",
			ClientSecret: "secret",
		},
	}
}

func (a *fakeAdapter) Config() *platforms.PlatformConfig { return a.cfg }

func (a *fakeAdapter) AuthorizeURL(ctx context.Context, p platforms.AuthParams) (string, error) {
	if a.authorizeFn != nil {
		return a.authorizeFn(p)
	}
	return "https://example.com/authorize?state=" + p.State, nil
}

func (a *fakeAdapter) Exchange(ctx context.Context, p platforms.ExchangeParams) (*platforms.Token, error) {
	if a.exchangeFn != nil {
		return a.exchangeFn(p)
	}
	return &platforms.Token{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (a *fakeAdapter) Refresh(ctx context.Context, s platforms.Session) (*platforms.Token, error) {
	a.mu.Lock()
	a.refreshCalls++
	a.mu.Unlock()
	if a.refreshFn != nil {
		return a.refreshFn(s)
	}
	return &platforms.Token{AccessToken: "refreshed", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (a *fakeAdapter) Revoke(ctx context.Context, s platforms.Session) error {
	a.mu.Lock()
	a.revokeCalls++
	a.mu.Unlock()
	return nil
}

func (a *fakeAdapter) Profile(ctx context.Context, s platforms.Session) (*platforms.Profile, error) {
	if a.profileFn != nil {
		return a.profileFn(s)
	}
	return &platforms.Profile{AccountID: "ext-1", Username: "user", Name: "User"}, nil
}

func (a *fakeAdapter) Publish(ctx context.Context, s platforms.Session, c *platforms.Content) (string, error) {
	a.mu.Lock()
	a.publishCalls++
	a.mu.Unlock()
	if a.publishFn != nil {
		return a.publishFn(s, c)
	}
	return "content-1", nil
}

func (a *fakeAdapter) AccountMetrics(ctx context.Context, s platforms.Session) (*platforms.AccountMetrics, error) {
	if a.accountMetrics != nil {
		return a.accountMetrics(s)
	}
	return &platforms.AccountMetrics{}, nil
}

func (a *fakeAdapter) PostMetrics(ctx context.Context, s platforms.Session, contentID string) (*platforms.PostMetrics, error) {
	if a.postMetrics != nil {
		return a.postMetrics(s, contentID)
	}
	return &platforms.PostMetrics{}, nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[int64]*models.PlatformAccount
	nextID   int64
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[int64]*models.PlatformAccount), nextID: 1}
}

func (r *fakeAccountRepo) add(a *models.PlatformAccount) *models.PlatformAccount {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == 0 {
		a.ID = r.nextID
		r.nextID++
	}
	r.accounts[a.ID] = a
	return a
}

func (r *fakeAccountRepo) Upsert(ctx context.Context, pa *models.PlatformAccount) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.SiteID == pa.SiteID && existing.Platform == pa.Platform && existing.AccountID == pa.AccountID {
			pa.ID = existing.ID
			r.accounts[existing.ID] = pa
			return existing.ID, nil
		}
	}
	pa.ID = r.nextID
	r.nextID++
	r.accounts[pa.ID] = pa
	return pa.ID, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.PlatformAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	copy := *a
	return &copy, nil
}

func (r *fakeAccountRepo) ListBySiteID(ctx context.Context, siteID int64) ([]*models.PlatformAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlatformAccount
	for _, a := range r.accounts {
		if a.SiteID == siteID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) ListActive(ctx context.Context) ([]*models.PlatformAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlatformAccount
	for _, a := range r.accounts {
		if a.AccountStatus == models.AccountStatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.PlatformAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlatformAccount
	for _, a := range r.accounts {
		if a.TokenExpiresAt.Before(deadline) &&
			(a.AccountStatus == models.AccountStatusActive || a.AccountStatus == models.AccountStatusExpired) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) CheckBySiteID(ctx context.Context, accountID, siteID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	return ok && a.SiteID == siteID, nil
}

func (r *fakeAccountRepo) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return errors.New("not found")
	}
	a.AccessToken = accessToken
	if refreshToken != "" {
		a.RefreshToken = refreshToken
	}
	a.TokenExpiresAt = expiresAt
	a.AccountStatus = models.AccountStatusActive
	a.LastError = sql.NullString{}
	a.LastErrorAt = sql.NullTime{}
	return nil
}

func (r *fakeAccountRepo) SetStatus(ctx context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.AccountStatus = status
	}
	return nil
}

func (r *fakeAccountRepo) SetLastError(ctx context.Context, id int64, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.LastError = sql.NullString{String: message, Valid: true}
		a.LastErrorAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	return nil
}

func (r *fakeAccountRepo) SetSyncedCounts(ctx context.Context, id, followers, following, posts int64, syncedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.FollowersCount = followers
		a.FollowingCount = following
		a.PostsCount = posts
		a.LastSyncedAt = sql.NullTime{Time: syncedAt, Valid: true}
	}
	return nil
}

func (r *fakeAccountRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.OAuthSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.OAuthSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *models.OAuthSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.State] = s
	return nil
}

func (r *fakeSessionRepo) Consume(ctx context.Context, state string) (*models.OAuthSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[state]
	if !ok {
		return nil, nil
	}
	delete(r.sessions, state)
	return s, nil
}

func (r *fakeSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for state, s := range r.sessions {
		if time.Now().After(s.ExpiresAt) {
			delete(r.sessions, state)
			n++
		}
	}
	return n, nil
}

type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[int64]*models.Post
	nextID int64
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[int64]*models.Post), nextID: 1}
}

func (r *fakePostRepo) add(p *models.Post) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		p.ID = r.nextID
		r.nextID++
	}
	r.posts[p.ID] = p
	return p
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, p *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	r.posts[p.ID] = p
	return p.ID, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	copy := *p
	return &copy, nil
}

func (r *fakePostRepo) ListBySiteID(ctx context.Context, siteID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.SiteID == siteID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.Status == models.PostStatusScheduled && !p.ScheduledTime.After(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) ClaimForPublishing(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.Status = models.PostStatusPublishing
	return true, nil
}

func (r *fakePostRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok {
		p.Status = status
	}
	return nil
}

func (r *fakePostRepo) CheckBySiteID(ctx context.Context, postID, siteID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	return ok && p.SiteID == siteID, nil
}

func (r *fakePostRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts map[int64]*models.PublishAttempt
	nextID   int64
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make(map[int64]*models.PublishAttempt), nextID: 1}
}

func (r *fakeAttemptRepo) add(a *models.PublishAttempt) *models.PublishAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == 0 {
		a.ID = r.nextID
		r.nextID++
	}
	r.attempts[a.ID] = a
	return a
}

func (r *fakeAttemptRepo) Create(ctx context.Context, tx *sql.Tx, a *models.PublishAttempt) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.attempts {
		if existing.PostID == a.PostID && existing.AccountID == a.AccountID {
			return 0, nil
		}
	}
	a.ID = r.nextID
	r.nextID++
	r.attempts[a.ID] = a
	return a.ID, nil
}

func (r *fakeAttemptRepo) GetByID(ctx context.Context, id int64) (*models.PublishAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, nil
	}
	copy := *a
	return &copy, nil
}

func (r *fakeAttemptRepo) GetByPostAndAccount(ctx context.Context, postID, accountID int64) (*models.PublishAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.PostID == postID && a.AccountID == accountID {
			copy := *a
			return &copy, nil
		}
	}
	return nil, nil
}

func (r *fakeAttemptRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PublishAttempt
	for _, a := range r.attempts {
		if a.PostID == postID {
			copy := *a
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) ListPublishedSince(ctx context.Context, accountID int64, since time.Time) ([]*models.PublishAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PublishAttempt
	for _, a := range r.attempts {
		if a.AccountID == accountID && a.Status == models.AttemptStatusPublished &&
			a.PublishedAt.Valid && !a.PublishedAt.Time.Before(since) {
			copy := *a
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) ClaimForPublishing(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok || a.Status != models.AttemptStatusPending {
		return false, nil
	}
	a.Status = models.AttemptStatusPublishing
	a.AttemptCount++
	a.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeAttemptRepo) ResetStale(ctx context.Context, cutoff time.Time) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var postIDs []int64
	for _, a := range r.attempts {
		if a.Status == models.AttemptStatusPublishing && a.UpdatedAt.Before(cutoff) {
			a.Status = models.AttemptStatusPending
			a.UpdatedAt = time.Now()
			postIDs = append(postIDs, a.PostID)
		}
	}
	return postIDs, nil
}

func (r *fakeAttemptRepo) MarkPublished(ctx context.Context, id int64, contentID string, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return errors.New("not found")
	}
	a.Status = models.AttemptStatusPublished
	a.PlatformContentID = sql.NullString{String: contentID, Valid: true}
	a.PublishedAt = sql.NullTime{Time: publishedAt, Valid: true}
	a.LastError = sql.NullString{}
	return nil
}

func (r *fakeAttemptRepo) MarkRetryable(ctx context.Context, id int64, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return errors.New("not found")
	}
	a.Status = models.AttemptStatusPending
	a.LastError = sql.NullString{String: errMsg, Valid: true}
	return nil
}

func (r *fakeAttemptRepo) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return errors.New("not found")
	}
	a.Status = models.AttemptStatusFailed
	a.LastError = sql.NullString{String: errMsg, Valid: true}
	return nil
}

type fakeMediaRepo struct {
	mu     sync.Mutex
	byPost map[int64][]*models.MediaAsset
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{byPost: make(map[int64][]*models.MediaAsset)}
}

func (r *fakeMediaRepo) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	return 1, nil
}

func (r *fakeMediaRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return nil, nil
}

func (r *fakeMediaRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byPost[postID], nil
}

func (r *fakeMediaRepo) Remove(ctx context.Context, id int64) error { return nil }

type enqueuedTask struct {
	postID    int64
	attemptID int64
	delay     time.Duration
}

type fakeQueue struct {
	mu      sync.Mutex
	posts   []enqueuedTask
	targets []enqueuedTask
}

func (q *fakeQueue) EnqueuePost(ctx context.Context, postID int64, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.posts = append(q.posts, enqueuedTask{postID: postID, delay: delay})
	return nil
}

func (q *fakeQueue) EnqueueTarget(ctx context.Context, attemptID int64, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.targets = append(q.targets, enqueuedTask{attemptID: attemptID, delay: delay})
	return nil
}
