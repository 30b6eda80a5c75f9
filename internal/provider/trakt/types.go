package trakt

type movie struct {
	Title         string   `json:"title"`
	Year          int      `json:"year"`
	IDs           ids      `json:"ids"`
	Tagline       string   `json:"tagline"`
	Overview      string   `json:"overview"`
	Released      string   `json:"released"`
	Runtime       int      `json:"runtime"`
	Country       string   `json:"country"`
	Homepage      string   `json:"homepage"`
	Status        string   `json:"status"`
	Rating        float64  `json:"rating"`
	Votes         int      `json:"votes"`
	Language      string   `json:"language"`
	Languages     []string `json:"languages"`
	Genres        []string `json:"genres"`
	Certification string   `json:"certification"`
}

type show struct {
	Title         string   `json:"title"`
	Year          int      `json:"year"`
	IDs           ids      `json:"ids"`
	Overview      string   `json:"overview"`
	FirstAired    string   `json:"first_aired"`
	Runtime       int      `json:"runtime"`
	Certification string   `json:"certification"`
	Network       string   `json:"network"`
	Country       string   `json:"country"`
	Homepage      string   `json:"homepage"`
	Status        string   `json:"status"`
	Rating        float64  `json:"rating"`
	Votes         int      `json:"votes"`
	Language      string   `json:"language"`
	Languages     []string `json:"languages"`
	Genres        []string `json:"genres"`
	AiredEpisodes int      `json:"aired_episodes"`
}

type season struct {
	Number        int       `json:"number"`
	IDs           ids       `json:"ids"`
	Rating        float64   `json:"rating"`
	Votes         int       `json:"votes"`
	EpisodeCount  int       `json:"episode_count"`
	AiredEpisodes int       `json:"aired_episodes"`
	Title         string    `json:"title"`
	Overview      string    `json:"overview"`
	FirstAired    string    `json:"first_aired"`
	Network       string    `json:"network"`
	Episodes      []episode `json:"episodes"`
}

type episode struct {
	Season      int     `json:"season"`
	Number      int     `json:"number"`
	Title       string  `json:"title"`
	IDs         ids     `json:"ids"`
	NumberAbs   int     `json:"number_abs"`
	Overview    string  `json:"overview"`
	Rating      float64 `json:"rating"`
	Votes       int     `json:"votes"`
	FirstAired  string  `json:"first_aired"`
	Runtime     int     `json:"runtime"`
	EpisodeType string  `json:"episode_type"`
}

type person struct {
	Name string `json:"name"`
	IDs  ids    `json:"ids"`
}

type credit struct {
	Character  string   `json:"character"`
	Characters []string `json:"characters"`
	Job        string   `json:"job"`
	Jobs       []string `json:"jobs"`
	Person     person   `json:"person"`
	Movie      *movie   `json:"movie"`
	Show       *show    `json:"show"`
}

type people struct {
	Cast []credit            `json:"cast"`
	Crew map[string][]credit `json:"crew"`
}

type release struct {
	Country       string `json:"country"`
	Certification string `json:"certification"`
	ReleaseDate   string `json:"release_date"`
	ReleaseType   string `json:"release_type"`
}

type studio struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// item wraps list, search and calendar results.
type item struct {
	Type       string   `json:"type"`
	Score      float64  `json:"score"`
	Released   string   `json:"released"`
	FirstAired string   `json:"first_aired"`
	Movie      *movie   `json:"movie"`
	Show       *show    `json:"show"`
	Episode    *episode `json:"episode"`
	Person     *person  `json:"person"`
}
