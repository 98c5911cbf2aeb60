package resolver

// service maps a spoken service name to its canonical root URL.
type service struct {
	name string
	url  string
}

// services is scanned in order; longer names that contain a shorter one come
// first.
var services = []service{
	{"youtube music", "https://music.youtube.com"},
	{"youtube", "https://www.youtube.com"},
	{"spotify", "https://open.spotify.com"},
	{"google", "https://www.google.com"},
	{"gmail", "https://mail.google.com"},
	{"facebook", "https://www.facebook.com"},
	{"instagram", "https://www.instagram.com"},
	{"linkedin", "https://www.linkedin.com"},
	{"github", "https://github.com"},
	{"stackoverflow", "https://stackoverflow.com"},
	{"amazon", "https://www.amazon.com"},
	{"flipkart", "https://www.flipkart.com"},
	{"twitter", "https://twitter.com"},
	{"imdb", "https://www.imdb.com"},
}

// Platform names a music platform.
type Platform string

const (
	Spotify      Platform = "spotify"
	YouTubeMusic Platform = "youtube music"
	YouTube      Platform = "youtube"
)

// String returns the display name used in announcements.
func (p Platform) String() string {
	switch p {
	case Spotify:
		return "Spotify"
	case YouTubeMusic:
		return "YouTube Music"
	case YouTube:
		return "YouTube"
	default:
		return string(p)
	}
}

// SearchURL returns the platform's search URL for q.
func (p Platform) SearchURL(q string) string {
	switch p {
	case Spotify:
		return "https://open.spotify.com/search/" + escape(q)
	case YouTubeMusic:
		return "https://music.youtube.com/search?q=" + escape(q)
	default:
		return "https://www.youtube.com/results?search_query=" + escape(q)
	}
}
