package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"discussify/internal/models"
)

// fakeStore is an in-memory double backing the repository interfaces with the
// same observable semantics as the real layer: duplicate membership inserts
// conflict, counts are recomputed from the relation, joined communities are a
// projection of membership rows.
type fakeStore struct {
	users         map[uint]*models.User
	communities   map[uint]*models.Community
	members       map[memberKey]*models.CommunityMember
	bans          map[memberKey]bool
	notifications map[uint]*models.Notification
	posts         map[uint]*models.Post
	nextID        uint
	memberSeq     int
}

type memberKey struct {
	communityID uint
	userID      uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[uint]*models.User),
		communities:   make(map[uint]*models.Community),
		members:       make(map[memberKey]*models.CommunityMember),
		bans:          make(map[memberKey]bool),
		notifications: make(map[uint]*models.Notification),
		posts:         make(map[uint]*models.Post),
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) addUser(username string) *models.User {
	user := &models.User{
		ID:       s.id(),
		Username: username,
		Email:    username + "@example.com",
		IsActive: true,
	}
	s.users[user.ID] = user
	return user
}

func (s *fakeStore) addCommunity(name string, admin *models.User, visibility models.CommunityVisibility) *models.Community {
	community := &models.Community{
		ID:          s.id(),
		Name:        name,
		Slug:        strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Description: "test",
		Visibility:  visibility,
		IsPrivate:   visibility == models.VisibilityPrivate,
		IsActive:    true,
		AdminUserID: admin.ID,
	}
	s.communities[community.ID] = community
	s.putMember(community.ID, admin.ID, models.MemberRoleAdmin)
	s.recount(community.ID)
	return community
}

func (s *fakeStore) putMember(communityID, userID uint, role models.MemberRole) {
	s.memberSeq++
	s.members[memberKey{communityID, userID}] = &models.CommunityMember{
		CommunityID: communityID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   time.Unix(int64(s.memberSeq), 0),
	}
}

func (s *fakeStore) recount(communityID uint) {
	var count int64
	for key := range s.members {
		if key.communityID == communityID {
			count++
		}
	}
	if c, ok := s.communities[communityID]; ok {
		c.MemberCount = count
	}
}

// --- CommunityRepository ---

type fakeCommunityRepo struct{ s *fakeStore }

func (r *fakeCommunityRepo) GetByID(_ context.Context, id uint) (*models.Community, error) {
	if c, ok := r.s.communities[id]; ok {
		return c, nil
	}
	return nil, models.NewNotFoundError("Community", id)
}

func (r *fakeCommunityRepo) GetBySlug(_ context.Context, slug string) (*models.Community, error) {
	for _, c := range r.s.communities {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, models.NewNotFoundError("Community", slug)
}

func (r *fakeCommunityRepo) Resolve(ctx context.Context, idOrSlug string) (*models.Community, error) {
	if id, err := strconv.ParseUint(idOrSlug, 10, 32); err == nil {
		if c, err := r.GetByID(ctx, uint(id)); err == nil {
			return c, nil
		}
	}
	return r.GetBySlug(ctx, idOrSlug)
}

func (r *fakeCommunityRepo) Create(_ context.Context, community *models.Community) error {
	for _, existing := range r.s.communities {
		if existing.Name == community.Name || existing.Slug == community.Slug {
			return models.NewConflictError("A community with this name already exists")
		}
	}
	community.ID = r.s.id()
	r.s.communities[community.ID] = community
	r.s.putMember(community.ID, community.AdminUserID, models.MemberRoleAdmin)
	r.s.recount(community.ID)
	return nil
}

func (r *fakeCommunityRepo) Update(_ context.Context, community *models.Community) error {
	r.s.communities[community.ID] = community
	return nil
}

func (r *fakeCommunityRepo) SoftDelete(_ context.Context, community *models.Community) error {
	community.IsActive = false
	for key := range r.s.members {
		if key.communityID == community.ID {
			delete(r.s.members, key)
		}
	}
	r.s.recount(community.ID)
	return nil
}

func (r *fakeCommunityRepo) Popular(_ context.Context, limit, _ int) ([]models.Community, error) {
	var out []models.Community
	for _, c := range r.s.communities {
		if c.IsActive && c.Visibility == models.VisibilityPublic {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCommunityRepo) Recommended(_ context.Context, userID uint, interests []string, _ int) ([]models.Community, error) {
	var out []models.Community
	for _, c := range r.s.communities {
		if !c.IsActive || c.Visibility != models.VisibilityPublic {
			continue
		}
		if _, joined := r.s.members[memberKey{c.ID, userID}]; joined {
			continue
		}
		for _, category := range c.Categories {
			for _, interest := range interests {
				if category == interest {
					out = append(out, *c)
				}
			}
		}
	}
	return out, nil
}

func (r *fakeCommunityRepo) Discover(_ context.Context, userID uint, _, _ int) ([]models.Community, error) {
	var out []models.Community
	for _, c := range r.s.communities {
		if !c.IsActive || c.Visibility != models.VisibilityPublic {
			continue
		}
		if _, joined := r.s.members[memberKey{c.ID, userID}]; !joined {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCommunityRepo) ForUser(_ context.Context, userID uint) ([]models.Community, error) {
	var out []models.Community
	for key := range r.s.members {
		if key.userID == userID {
			if c, ok := r.s.communities[key.communityID]; ok && c.IsActive {
				out = append(out, *c)
			}
		}
	}
	return out, nil
}

func (r *fakeCommunityRepo) ListActive(_ context.Context, _, _ int) ([]models.Community, int64, error) {
	var out []models.Community
	for _, c := range r.s.communities {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeCommunityRepo) CountActive(_ context.Context) (int64, error) {
	var count int64
	for _, c := range r.s.communities {
		if c.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *fakeCommunityRepo) GetMember(_ context.Context, communityID, userID uint) (*models.CommunityMember, error) {
	if m, ok := r.s.members[memberKey{communityID, userID}]; ok {
		return m, nil
	}
	return nil, nil
}

func (r *fakeCommunityRepo) ListMembers(_ context.Context, communityID uint) ([]models.CommunityMember, error) {
	var out []models.CommunityMember
	for key, m := range r.s.members {
		if key.communityID == communityID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeCommunityRepo) IsBanned(_ context.Context, communityID, userID uint) (bool, error) {
	return r.s.bans[memberKey{communityID, userID}], nil
}

func (r *fakeCommunityRepo) AddMember(_ context.Context, community *models.Community, userID uint, role models.MemberRole, consumeInviteID *uint) error {
	key := memberKey{community.ID, userID}
	if _, exists := r.s.members[key]; exists {
		return models.NewConflictError("User is already a member of this community")
	}
	r.s.putMember(community.ID, userID, role)
	if consumeInviteID != nil {
		if invite, ok := r.s.notifications[*consumeInviteID]; ok {
			invite.Read = true
			invite.InviteStatus = models.InviteStatusAccepted
		}
	}
	r.s.recount(community.ID)
	return nil
}

func (r *fakeCommunityRepo) EnsureMember(_ context.Context, community *models.Community, userID uint, role models.MemberRole) error {
	key := memberKey{community.ID, userID}
	if _, exists := r.s.members[key]; !exists {
		r.s.putMember(community.ID, userID, role)
	}
	r.s.recount(community.ID)
	return nil
}

func (r *fakeCommunityRepo) RemoveMember(_ context.Context, community *models.Community, userID uint) error {
	delete(r.s.members, memberKey{community.ID, userID})
	r.s.recount(community.ID)
	return nil
}

func (r *fakeCommunityRepo) ReplaceAdmin(_ context.Context, community *models.Community, leavingAdminID, successorID uint) error {
	delete(r.s.members, memberKey{community.ID, leavingAdminID})
	if m, ok := r.s.members[memberKey{community.ID, successorID}]; ok {
		m.Role = models.MemberRoleAdmin
	}
	community.AdminUserID = successorID
	r.s.recount(community.ID)
	return nil
}

func (r *fakeCommunityRepo) EarliestOtherAdmin(_ context.Context, communityID, excludeUserID uint) (*models.CommunityMember, error) {
	var earliest *models.CommunityMember
	for key, m := range r.s.members {
		if key.communityID != communityID || key.userID == excludeUserID || m.Role != models.MemberRoleAdmin {
			continue
		}
		if earliest == nil || m.CreatedAt.Before(earliest.CreatedAt) {
			earliest = m
		}
	}
	return earliest, nil
}

func (r *fakeCommunityRepo) RecountMembers(_ context.Context, community *models.Community) error {
	r.s.recount(community.ID)
	return nil
}

// --- UserRepository ---

type fakeUserRepo struct{ s *fakeStore }

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := r.s.users[id]; ok {
		return u, nil
	}
	return nil, models.NewNotFoundError("User", id)
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = r.s.id()
	r.s.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.s.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]models.User, int64, error) {
	var out []models.User
	for _, u := range r.s.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) JoinedCommunities(_ context.Context, userID uint) ([]models.Community, error) {
	return (&fakeCommunityRepo{r.s}).ForUser(context.Background(), userID)
}

func (r *fakeUserRepo) HardDelete(_ context.Context, id uint) error {
	if _, ok := r.s.users[id]; !ok {
		return models.NewNotFoundError("User", id)
	}
	delete(r.s.users, id)
	for key := range r.s.members {
		if key.userID == id {
			delete(r.s.members, key)
			r.s.recount(key.communityID)
		}
	}
	for _, post := range r.s.posts {
		if post.AuthorID == id {
			post.IsDeleted = true
		}
	}
	for noteID, note := range r.s.notifications {
		if note.UserID == id {
			delete(r.s.notifications, noteID)
		}
	}
	return nil
}

func (r *fakeUserRepo) CountActive(_ context.Context) (int64, error) {
	var count int64
	for _, u := range r.s.users {
		if u.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	var count int64
	for _, u := range r.s.users {
		if !u.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// --- NotificationRepository ---

type fakeNotificationRepo struct{ s *fakeStore }

func (r *fakeNotificationRepo) Create(_ context.Context, notification *models.Notification) error {
	notification.ID = r.s.id()
	notification.CreatedAt = time.Now()
	r.s.notifications[notification.ID] = notification
	return nil
}

func (r *fakeNotificationRepo) ListForUser(_ context.Context, userID uint, _, _ int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, userID uint) error {
	if n, ok := r.s.notifications[id]; ok && n.UserID == userID {
		n.Read = true
		return nil
	}
	return models.NewNotFoundError("Notification", id)
}

func (r *fakeNotificationRepo) PendingInvite(_ context.Context, userID, communityID uint) (*models.Notification, error) {
	for _, n := range r.s.notifications {
		if n.UserID == userID &&
			n.Type == models.NotificationTypeCommunityInvite &&
			n.InviteStatus == models.InviteStatusPending &&
			n.CommunityID != nil && *n.CommunityID == communityID {
			return n, nil
		}
	}
	return nil, nil
}

func (r *fakeNotificationRepo) RevokePendingInvites(_ context.Context, communityID uint) error {
	for _, n := range r.s.notifications {
		if n.Type == models.NotificationTypeCommunityInvite &&
			n.InviteStatus == models.InviteStatusPending &&
			n.CommunityID != nil && *n.CommunityID == communityID {
			n.InviteStatus = models.InviteStatusRevoked
		}
	}
	return nil
}

func (r *fakeNotificationRepo) RecentActivity(_ context.Context, _ int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.s.notifications {
		out = append(out, *n)
	}
	return out, nil
}

// --- PostRepository ---

type fakePostRepo struct{ s *fakeStore }

func (r *fakePostRepo) GetByID(_ context.Context, id uint) (*models.Post, error) {
	if p, ok := r.s.posts[id]; ok {
		return p, nil
	}
	return nil, models.NewNotFoundError("Post", id)
}

func (r *fakePostRepo) Create(_ context.Context, post *models.Post) error {
	post.ID = r.s.id()
	r.s.posts[post.ID] = post
	return nil
}

func (r *fakePostRepo) Update(_ context.Context, post *models.Post) error {
	r.s.posts[post.ID] = post
	return nil
}

func (r *fakePostRepo) SoftDelete(_ context.Context, id uint) error {
	post, ok := r.s.posts[id]
	if !ok {
		return models.NewNotFoundError("Post", id)
	}
	post.IsDeleted = true
	return nil
}

func (r *fakePostRepo) ListByCommunity(_ context.Context, communityID uint, _, _ int) ([]models.Post, error) {
	var out []models.Post
	for _, p := range r.s.posts {
		if p.CommunityID == communityID && !p.IsDeleted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) CountActiveByCommunity(_ context.Context, communityID uint) (int64, error) {
	var count int64
	for _, p := range r.s.posts {
		if p.CommunityID == communityID && !p.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (r *fakePostRepo) CountActive(_ context.Context) (int64, error) {
	var count int64
	for _, p := range r.s.posts {
		if !p.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (r *fakePostRepo) AddReport(_ context.Context, id uint, report models.PostReport) error {
	post, ok := r.s.posts[id]
	if !ok {
		return models.NewNotFoundError("Post", id)
	}
	post.Reports = append(post.Reports, report)
	return nil
}

func (r *fakePostRepo) ClearReports(_ context.Context, id uint) error {
	post, ok := r.s.posts[id]
	if !ok {
		return models.NewNotFoundError("Post", id)
	}
	post.Reports = nil
	return nil
}

// --- NotificationSink ---

// recordingSink persists into the fake store and records emissions; a
// non-nil err simulates a failing sink.
type recordingSink struct {
	s       *fakeStore
	emitted []*models.Notification
	err     error
}

func (r *recordingSink) Emit(ctx context.Context, notification *models.Notification) error {
	if r.err != nil {
		return r.err
	}
	if err := (&fakeNotificationRepo{r.s}).Create(ctx, notification); err != nil {
		return err
	}
	r.emitted = append(r.emitted, notification)
	return nil
}

func (r *recordingSink) byType(t models.NotificationType) []*models.Notification {
	var out []*models.Notification
	for _, n := range r.emitted {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// fixture wires a full service stack over one fake store.
type fixture struct {
	store      *fakeStore
	sink       *recordingSink
	membership *MembershipService
	community  *CommunityService
	admin      *AdminService
	notes      *NotificationService
}

func newFixture() *fixture {
	store := newFakeStore()
	sink := &recordingSink{s: store}
	communityRepo := &fakeCommunityRepo{store}
	userRepo := &fakeUserRepo{store}
	notificationRepo := &fakeNotificationRepo{store}
	postRepo := &fakePostRepo{store}

	membership := NewMembershipService(communityRepo, userRepo, notificationRepo, sink)
	return &fixture{
		store:      store,
		sink:       sink,
		membership: membership,
		community:  NewCommunityService(communityRepo, userRepo, postRepo, membership, sink),
		admin:      NewAdminService(communityRepo, userRepo, postRepo, notificationRepo, membership),
		notes:      NewNotificationService(notificationRepo),
	}
}

// isMemberBothViews checks the bidirectional invariant: the membership row
// and the joined-communities projection must agree.
func (f *fixture) isMemberBothViews(communityID, userID uint) (bool, bool) {
	_, hasRow := f.store.members[memberKey{communityID, userID}]
	joined, _ := (&fakeUserRepo{f.store}).JoinedCommunities(context.Background(), userID)
	inJoined := false
	for _, c := range joined {
		if c.ID == communityID {
			inJoined = true
		}
	}
	return hasRow, inJoined
}
