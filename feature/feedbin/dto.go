package feedbin

// Subscription is one subscribed feed as reported by the provider.
type Subscription struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
	FeedID    int64  `json:"feed_id"`
	Title     string `json:"title"`
	FeedURL   string `json:"feed_url"`
	SiteURL   string `json:"site_url"`
}

// Tagging assigns one feed to one tag (the provider's folder concept).
type Tagging struct {
	ID     int64  `json:"id"`
	FeedID int64  `json:"feed_id"`
	Name   string `json:"name"`
}

// Icon is a favicon reference for a feed host.
type Icon struct {
	Host string `json:"host"`
	URL  string `json:"url"`
}

// SavedSearch is a stored query on the provider side.
type SavedSearch struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Query string `json:"query"`
}

// Entry is one article in extended mode.
type Entry struct {
	ID                  int64      `json:"id"`
	FeedID              int64      `json:"feed_id"`
	Title               *string    `json:"title"`
	URL                 *string    `json:"url"`
	ExtractedContentURL *string    `json:"extracted_content_url"`
	Author              *string    `json:"author"`
	Content             *string    `json:"content"`
	Summary             *string    `json:"summary"`
	Published           string     `json:"published"`
	CreatedAt           string     `json:"created_at"`
	Images              *Images    `json:"images,omitempty"`
	Enclosure           *Enclosure `json:"enclosure,omitempty"`
}

// Images carries the entry's lead image variants.
type Images struct {
	OriginalURL string `json:"original_url"`
	SizeOne     struct {
		CDNURL string `json:"cdn_url"`
	} `json:"size_1"`
}

// Enclosure is a media attachment (podcast audio, video).
type Enclosure struct {
	EnclosureURL    string  `json:"enclosure_url"`
	EnclosureType   *string `json:"enclosure_type"`
	EnclosureLength *string `json:"enclosure_length"`
	ItunesDuration  *string `json:"itunes_duration"`
	ItunesImage     *string `json:"itunes_image"`
}
