package seed

import (
	"time"

	"github.com/google/uuid"

	app "github.com/zuetani/earth-tribe/internal/application"
	"github.com/zuetani/earth-tribe/internal/domain/entity"
)

const (
	mayaEmail   = "maya@zuetani.com"
	carlosEmail = "carlos@zuetani.com"
)

func Curated() []Account {
	return []Account{
		{
			Email:    DemoEmail,
			Password: DemoPassword,
			Profile: entity.User{
				Name:      "Demo Traveller",
				Bio:       "Trying out the Earth Tribe.",
				Interests: []string{"Hiking", "Culture"},
				Location:  "Lisbon, Portugal",
			},
		},
		{
			Email:    mayaEmail,
			Password: DemoPassword,
			Profile: entity.User{
				Name:      "Maya Chen",
				Bio:       "Yoga instructor and mindful traveler exploring sacred spaces around the world.",
				Interests: []string{"Yoga", "Meditation", "Sacred Sites", "Wellness"},
				JoinedAt:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Location:  "Bali, Indonesia",
			},
			Posts: []app.NewPost{{
				Title:    "Sunrise Yoga in the Rice Terraces",
				Content:  "This morning I practiced yoga as the sun rose over the ancient rice terraces of Jatiluwih. The mist rolling through the valleys made it the most peaceful meditation I've had.",
				Location: "Jatiluwih, Bali",
				Tags:     []string{"yoga", "meditation", "bali", "sunrise"},
			}},
		},
		{
			Email:    carlosEmail,
			Password: DemoPassword,
			Profile: entity.User{
				Name:      "Carlos Rodriguez",
				Bio:       "Adventure photographer documenting indigenous cultures and pristine landscapes.",
				Interests: []string{"Photography", "Hiking", "Culture", "Conservation"},
				JoinedAt:  time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
				Location:  "Patagonia, Chile",
			},
			Posts: []app.NewPost{{
				Title:    "Learning from Mapuche Elders",
				Content:  "Spent three days with a Mapuche community in southern Chile, learning about their deep connection to the land.",
				Location: "Araucanía, Chile",
				Tags:     []string{"culture", "indigenous", "ceremony", "chile"},
			}},
		},
	}
}

// CuratedGroups builds the starter groups. ids maps seeded emails to user ids.
func CuratedGroups(ids map[string]string, now time.Time) []*entity.Group {
	maya, carlos := ids[mayaEmail], ids[carlosEmail]
	sacred := &entity.Group{
		Name:        "Sacred Sites & Spiritual Travel",
		Description: "Exploring the world's most sacred and spiritually significant places",
		MemberCount: 1247,
	}
	sustainable := &entity.Group{
		Name:        "Sustainable Travel Tips",
		Description: "Share tips and experiences for eco-friendly and sustainable travel",
		MemberCount: 892,
	}
	if maya != "" && carlos != "" {
		sacred.Posts = []entity.GroupPost{{
			ID:        uuid.NewString(),
			UserID:    maya,
			Title:     "Best sacred sites in Southeast Asia?",
			Content:   "Planning a spiritual journey through Southeast Asia. Looking for lesser-known sacred sites that welcome respectful visitors.",
			CreatedAt: now.Add(-26 * time.Hour).UTC(),
			Replies: []entity.GroupReply{{
				ID:        uuid.NewString(),
				UserID:    carlos,
				Content:   "The hidden temples in Luang Prabang, Laos. Much more peaceful than the touristy ones.",
				CreatedAt: now.Add(-24 * time.Hour).UTC(),
			}},
		}}
		sustainable.Posts = []entity.GroupPost{{
			ID:        uuid.NewString(),
			UserID:    carlos,
			Title:     "Zero-waste travel essentials",
			Content:   "What are your must-have items for reducing waste while traveling?",
			CreatedAt: now.Add(-3 * time.Hour).UTC(),
			Replies:   []entity.GroupReply{},
		}}
	}
	sacred.Posts = nonNilPosts(sacred.Posts)
	sustainable.Posts = nonNilPosts(sustainable.Posts)
	return []*entity.Group{sacred, sustainable}
}

func nonNilPosts(p []entity.GroupPost) []entity.GroupPost {
	if p == nil {
		return []entity.GroupPost{}
	}
	return p
}
