package entity

import "time"

// Group and its children are read-only for now: listing works, creation does not exist yet.
type Group struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	MemberCount int         `json:"memberCount"`
	Posts       []GroupPost `json:"posts"`
}

type GroupPost struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	GroupID   string       `json:"groupId"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
	Replies   []GroupReply `json:"replies"`
}

type GroupReply struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
