package chainpost

import "time"

// Post is the core content entity shared by every metadata store. The slug is
// the primary key across all backends; it is immutable once created.
type Post struct {
	Slug        string    `json:"slug" bson:"slug"`
	Title       string    `json:"title" bson:"title"`
	Excerpt     string    `json:"excerpt" bson:"excerpt"`
	Author      string    `json:"author" bson:"author"`
	Category    string    `json:"category" bson:"category"`
	Date        string    `json:"date" bson:"date"`                // display form, e.g. "Nov 5, 2025"
	PublishedAt time.Time `json:"publishedAt" bson:"published_at"` // canonical timestamp used for sorting
	ContentPath string    `json:"contentPath" bson:"content_path"` // e.g. "content/my-post.md"
	Image       string    `json:"image,omitempty" bson:"image,omitempty"`
	Featured    bool      `json:"featured,omitempty" bson:"featured,omitempty"`
}

// PostInput holds the client-supplied fields for a new post. Slug is raw text
// and is normalized by the publication pipeline.
type PostInput struct {
	Title    string `json:"title" form:"title"`
	Slug     string `json:"slug" form:"slug"`
	Excerpt  string `json:"excerpt" form:"excerpt"`
	Author   string `json:"author" form:"author"`
	Category string `json:"category" form:"category"`
	Content  string `json:"content" form:"content"`
	Featured bool   `json:"featured" form:"featured"`
}

// ImageUpload carries an optional image attached to a create-post request.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// Document is a stored post body prepared for display: the parsed header
// fields plus the HTML rendered from the markdown body.
type Document struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Image    string `json:"image,omitempty"`
	Featured bool   `json:"featured,omitempty"`
	HTML     string `json:"html"`
}

// Subscriber is a newsletter signup. Email is the unique key.
type Subscriber struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// displayDateFormat is the human-readable form stored in Post.Date. Read
// paths never parse it back; PublishedAt is the sortable source of truth.
const displayDateFormat = "Jan 2, 2006"
