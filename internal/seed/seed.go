// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"discussify/internal/models"
	"discussify/internal/repository"
	"discussify/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	NumCommunities int
	NumPosts       int
	ShouldClean    bool
}

var categories = []string{
	"golang", "programming", "linux", "frontend", "backend", "devops", "cloud",
	"ai", "startups", "homelab", "gaming", "music", "movies", "books", "cooking",
	"fitness", "travel", "photography", "science", "history",
}

var communityNames = []string{
	"Go Developers", "Linux Lounge", "Frontend Friends", "Backend Builders",
	"DevOps Den", "Cloud Crafters", "AI Explorers", "Startup Stories",
	"Homelab Heroes", "Gamer Guild", "Music Makers", "Movie Buffs",
	"Book Nook", "Home Cooking", "Fitness Forum", "Travel Tales",
	"Photo Corner", "Science Salon", "History Hub",
}

// Seed populates the database with demo users, communities, memberships,
// invitations, and posts.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Seeding %d users, %d communities, %d posts...",
		opts.NumUsers, opts.NumCommunities, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	gofakeit.Seed(time.Now().UnixNano())
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	communities, err := createCommunities(db, users, opts.NumCommunities, r)
	if err != nil {
		return fmt.Errorf("failed to create communities: %w", err)
	}
	log.Printf("created %d communities", len(communities))

	if err := createMemberships(db, users, communities, r); err != nil {
		return fmt.Errorf("failed to create memberships: %w", err)
	}

	if err := createInvites(db, users, communities, r); err != nil {
		return fmt.Errorf("failed to create invitations: %w", err)
	}

	if err := createPosts(db, users, communities, opts.NumPosts, r); err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}

	log.Println("Seeding complete")
	return nil
}

func clearData(db *gorm.DB) error {
	for _, model := range []any{
		&models.Post{}, &models.Notification{}, &models.CommunityBan{},
		&models.CommunityMember{}, &models.Community{}, &models.User{},
	} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB, count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, count+1)

	admin := models.User{
		Username: "admin",
		Email:    "admin@discussify.dev",
		Password: string(hash),
		Bio:      "Platform administrator",
		Role:     models.UserRoleAdmin,
		IsActive: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, err
	}
	users = append(users, admin)

	for i := 0; i < count; i++ {
		user := models.User{
			Username:  fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
			Email:     gofakeit.Email(),
			Password:  string(hash),
			Bio:       gofakeit.Sentence(10),
			Avatar:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
			Role:      models.UserRoleMember,
			Interests: pickN(categories, 3),
			IsActive:  true,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func createCommunities(db *gorm.DB, users []models.User, count int, r *rand.Rand) ([]models.Community, error) {
	if count > len(communityNames) {
		count = len(communityNames)
	}

	repo := repository.NewCommunityRepository(db)
	ctx := context.Background()

	communities := make([]models.Community, 0, count)
	for i := 0; i < count; i++ {
		name := communityNames[i]
		admin := users[r.Intn(len(users))]
		community := models.Community{
			Name:        name,
			Slug:        validation.Slugify(name),
			Description: gofakeit.Paragraph(1, 2, 8, " "),
			Categories:  pickN(categories, 2),
			Visibility:  models.VisibilityPublic,
			IsActive:    true,
			AdminUserID: admin.ID,
		}
		if r.Intn(4) == 0 {
			community.Visibility = models.VisibilityPrivate
			community.IsPrivate = true
		}
		// Create seeds the admin membership row and the member count.
		if err := repo.Create(ctx, &community); err != nil {
			return nil, err
		}
		communities = append(communities, community)
	}
	return communities, nil
}

func createMemberships(db *gorm.DB, users []models.User, communities []models.Community, r *rand.Rand) error {
	repo := repository.NewCommunityRepository(db)
	ctx := context.Background()

	for i := range communities {
		community := &communities[i]
		for _, user := range users {
			if user.ID == community.AdminUserID || r.Intn(3) != 0 {
				continue
			}
			role := models.MemberRoleMember
			if r.Intn(8) == 0 {
				role = models.MemberRoleModerator
			}
			if err := repo.EnsureMember(ctx, community, user.ID, role); err != nil {
				return err
			}
		}
	}
	return nil
}

func createInvites(db *gorm.DB, users []models.User, communities []models.Community, r *rand.Rand) error {
	communityRepo := repository.NewCommunityRepository(db)
	ctx := context.Background()

	for i := range communities {
		community := &communities[i]
		if !community.IsPrivate {
			continue
		}
		for _, user := range users {
			if r.Intn(5) != 0 {
				continue
			}
			member, err := communityRepo.GetMember(ctx, community.ID, user.ID)
			if err != nil {
				return err
			}
			if member != nil {
				continue
			}
			invite := models.Notification{
				UserID:        user.ID,
				Type:          models.NotificationTypeCommunityInvite,
				Title:         fmt.Sprintf("Invitation to %s", community.Name),
				Message:       fmt.Sprintf("You have been invited to join %s.", community.Name),
				InviteStatus:  models.InviteStatusPending,
				CommunityID:   &community.ID,
				CommunityName: community.Name,
				CommunitySlug: community.Slug,
				InviterID:     &community.AdminUserID,
				MemberCount:   community.MemberCount,
			}
			if err := db.Create(&invite).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func createPosts(db *gorm.DB, users []models.User, communities []models.Community, count int, r *rand.Rand) error {
	if len(communities) == 0 {
		return nil
	}

	repo := repository.NewPostRepository(db)
	ctx := context.Background()

	for i := 0; i < count; i++ {
		community := communities[r.Intn(len(communities))]
		author := users[r.Intn(len(users))]
		post := models.Post{
			CommunityID: community.ID,
			AuthorID:    author.ID,
			Title:       gofakeit.Sentence(5),
			Content:     gofakeit.Paragraph(1, 3, 8, "\n"),
		}
		if err := repo.Create(ctx, &post); err != nil {
			return err
		}
	}
	return nil
}

// pickN returns n distinct random entries from the given list.
func pickN(list []string, n int) []string {
	if n > len(list) {
		n = len(list)
	}
	shuffled := make([]string, len(list))
	copy(shuffled, list)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}
