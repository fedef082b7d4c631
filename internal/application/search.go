package application

import (
	"strings"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
)

// Full-scan matching. Each field is lower-cased and checked for the lower-cased
// query as a substring; any field matching is enough.

func containsFold(field, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(field), lowerQuery)
}

func anyContainsFold(fields []string, lowerQuery string) bool {
	for _, f := range fields {
		if containsFold(f, lowerQuery) {
			return true
		}
	}
	return false
}

// PostMatches reports whether p matches q on title, content, location or any tag.
func PostMatches(p *entity.Post, q string) bool {
	lq := strings.ToLower(q)
	return containsFold(p.Title, lq) ||
		containsFold(p.Content, lq) ||
		containsFold(p.Location, lq) ||
		anyContainsFold(p.Tags, lq)
}

// UserMatches reports whether u matches q on name, bio or any interest.
// An empty bio never matches.
func UserMatches(u *entity.User, q string) bool {
	lq := strings.ToLower(q)
	return containsFold(u.Name, lq) ||
		(u.Bio != "" && containsFold(u.Bio, lq)) ||
		anyContainsFold(u.Interests, lq)
}

func filterPosts(posts []*entity.Post, q string) []*entity.Post {
	out := make([]*entity.Post, 0)
	for _, p := range posts {
		if PostMatches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

func filterUsers(users []*entity.User, q string) []*entity.User {
	out := make([]*entity.User, 0)
	for _, u := range users {
		if UserMatches(u, q) {
			out = append(out, u)
		}
	}
	return out
}

// NormalizeTags trims and lower-cases tags, dropping empties and repeats
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
