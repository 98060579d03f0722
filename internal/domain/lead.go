package domain

// Lead is a normalized form submission bound for the CRM. FirstName/LastName
// are a best-effort split of the submitted full name.
type Lead struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Comment   string // assembled from all captured form fields
	ChannelID int64  // origin channel, resolved by name with a default fallback
	LabelName string // optional; empty means "do not tag"
}

// LeadForm is the raw submission as captured by the site. Only Name, Email
// and Phone are required by the CRM; everything else folds into the comment.
type LeadForm struct {
	Name     string
	Email    string
	Phone    string
	Message  string
	Property string // listing reference the visitor was looking at, if any
	Budget   string
	MoveIn   string
}

// Label is a CRM tag: a named, colored marker attached to contacts.
type Label struct {
	ID    int64
	Name  string
	Color string
}

// Channel is an origin-channel entry from the CRM's user-configurable registry.
type Channel struct {
	ID   int64
	Name string
}
