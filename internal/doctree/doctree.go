package doctree

// Section is one heading and the text that follows it, up to the next heading.
type Section struct {
	Heading string // Heading text with markup removed
	Body    string // Raw body text, not trimmed
	Level   int    // 1 or 2; informational only, never affects boundaries
}

// DateMatch is the section of a full document that belongs to one day.
type DateMatch struct {
	Date    string `json:"date"`    // Matched heading, trimmed
	Content string `json:"content"` // Section body, trimmed
}

// Headings returns the heading of every section in order.
func Headings(sections []Section) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Heading)
	}
	return out
}

// Note is a document fetched from a note source.
type Note struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"-"`
	IsFullDoc bool   `json:"is_full_doc"` // Content holds many days and needs a date section extracted
}
