package model

import "time"

// Source 新闻来源
type Source struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Article 新闻条目
type Article struct {
	Source      Source    `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt time.Time `json:"publishedAt"`
}
