package database

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/user"
)

// SeedConfig holds configuration for seeding the database.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	DemoUserCount int
	DemoData      bool
}

// DefaultSeedConfig returns the development seed configuration.
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		AdminEmail:    "admin@tutorchat.local",
		AdminPassword: "Admin@123!",
		DemoUserCount: 6,
		DemoData:      true,
	}
}

// SeedResult holds the records created by a seeding run.
type SeedResult struct {
	Admin         *user.User
	Users         []*user.User
	Conversations []*chat.Conversation
	Messages      []*chat.Message
}

// Seed populates the database with an admin account and, optionally, demo
// tutors, students and conversations. Existing users are left untouched.
func Seed(db *gorm.DB, cfg *SeedConfig) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}

	result := &SeedResult{}

	log.Println("Starting database seeding...")

	admin, err := seedAdmin(db, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}
	result.Admin = admin

	if cfg.DemoData {
		users, err := seedDemoUsers(db, cfg.DemoUserCount)
		if err != nil {
			return nil, fmt.Errorf("failed to seed demo users: %w", err)
		}
		result.Users = users

		if len(users) >= 2 {
			convs, err := seedConversations(db, users)
			if err != nil {
				return nil, fmt.Errorf("failed to seed conversations: %w", err)
			}
			result.Conversations = convs

			msgs, err := seedMessages(db, convs, users)
			if err != nil {
				return nil, fmt.Errorf("failed to seed messages: %w", err)
			}
			result.Messages = msgs
		}
	}

	log.Println("Database seeding completed successfully!")
	return result, nil
}

func seedAdmin(db *gorm.DB, cfg *SeedConfig) (*user.User, error) {
	var existing user.User
	if err := db.Where("email = ?", cfg.AdminEmail).First(&existing).Error; err == nil {
		log.Println("Admin user already exists, skipping creation")
		return &existing, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &user.User{
		ID:           uuid.New(),
		FirstName:    "Platform",
		LastName:     "Admin",
		Email:        cfg.AdminEmail,
		PasswordHash: string(hashed),
		Role:         user.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := db.Create(admin).Error; err != nil {
		return nil, err
	}

	log.Printf("Admin user seeded: %s (%s)", admin.Email, admin.ID)
	return admin, nil
}

func seedDemoUsers(db *gorm.DB, count int) ([]*user.User, error) {
	demo := []struct {
		first string
		last  string
		email string
		role  string
	}{
		{"Alice", "Nguyen", "alice@tutorchat.local", user.RoleTutor},
		{"Bob", "Smith", "bob@tutorchat.local", user.RoleStudent},
		{"Carla", "Diaz", "carla@tutorchat.local", user.RoleStudent},
		{"David", "Chen", "david@tutorchat.local", user.RoleTutor},
		{"Emma", "Olsen", "emma@tutorchat.local", user.RoleStudent},
		{"Felix", "Baker", "felix@tutorchat.local", user.RoleStudent},
		{"Grace", "Ito", "grace@tutorchat.local", user.RoleTutor},
		{"Henry", "Kowalski", "henry@tutorchat.local", user.RoleStudent},
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("Demo@123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*user.User, 0, count)
	for i := 0; i < count && i < len(demo); i++ {
		d := demo[i]

		var existing user.User
		if err := db.Where("email = ?", d.email).First(&existing).Error; err == nil {
			log.Printf("Demo user %s already exists, skipping", d.email)
			users = append(users, &existing)
			continue
		}

		u := &user.User{
			ID:           uuid.New(),
			FirstName:    d.first,
			LastName:     d.last,
			Email:        d.email,
			PasswordHash: string(hashed),
			Role:         d.role,
			CreatedAt:    time.Now(),
		}
		if err := db.Create(u).Error; err != nil {
			return nil, fmt.Errorf("failed to create demo user %s: %w", d.email, err)
		}
		users = append(users, u)
		log.Printf("Demo user seeded: %s", d.email)
	}

	return users, nil
}

func seedConversations(db *gorm.DB, users []*user.User) ([]*chat.Conversation, error) {
	conversations := make([]*chat.Conversation, 0, 2)

	pair := &chat.Conversation{
		ID:        uuid.New(),
		Subject:   "Algebra help",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(pair).Error; err != nil {
		return nil, err
	}
	for _, u := range users[:2] {
		p := &chat.Participant{
			ConversationID: pair.ID,
			UserID:         u.ID,
			Role:           roleFor(u),
			Active:         true,
			JoinedAt:       time.Now(),
		}
		if err := db.Create(p).Error; err != nil {
			return nil, err
		}
	}
	conversations = append(conversations, pair)
	log.Printf("Conversation seeded: %s (%s)", pair.Subject, pair.ID)

	if len(users) >= 3 {
		group := &chat.Conversation{
			ID:        uuid.New(),
			Subject:   "Physics study group",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := db.Create(group).Error; err != nil {
			return nil, err
		}
		for _, u := range users[:3] {
			p := &chat.Participant{
				ConversationID: group.ID,
				UserID:         u.ID,
				Role:           roleFor(u),
				Active:         true,
				JoinedAt:       time.Now(),
			}
			if err := db.Create(p).Error; err != nil {
				return nil, err
			}
		}
		conversations = append(conversations, group)
		log.Printf("Conversation seeded: %s (%s)", group.Subject, group.ID)
	}

	return conversations, nil
}

func seedMessages(db *gorm.DB, convs []*chat.Conversation, users []*user.User) ([]*chat.Message, error) {
	samples := []string{
		"Hi! I'm stuck on the quadratic formula homework.",
		"No problem, let's walk through it together.",
		"Could we schedule a session for Thursday?",
		"Thursday works. I'll share some practice problems before then.",
		"Thanks, that would be great!",
	}

	messages := make([]*chat.Message, 0, len(convs)*len(samples))
	for _, conv := range convs {
		for i, content := range samples {
			msg := &chat.Message{
				ID:             uuid.New(),
				ConversationID: conv.ID,
				SenderID:       users[i%2].ID,
				Content:        content,
				Kind:           chat.KindText,
				SentAt:         time.Now().Add(time.Duration(i) * time.Minute),
			}
			if err := db.Create(msg).Error; err != nil {
				return nil, fmt.Errorf("failed to create message: %w", err)
			}
			messages = append(messages, msg)
		}
	}

	log.Printf("Seeded %d messages", len(messages))
	return messages, nil
}

func roleFor(u *user.User) string {
	if u.Role == user.RoleTutor {
		return chat.RoleTutor
	}
	return chat.RoleStudent
}
