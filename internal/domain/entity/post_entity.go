package entity

import "time"

// Post is a community feed entry. UserID is not checked against users.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Images    []string  `json:"images"`
	Location  string    `json:"location"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     []string  `json:"likes"`
	Comments  []Comment `json:"comments"`
}

// Comment is embedded in its Post and has no address of its own.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
