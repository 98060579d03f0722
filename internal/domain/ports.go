package domain

import "context"

// CMSClient reads the content platform. Raw records come back as loose maps:
// the CMS schema varies per deployment, so typing happens in the reconciler,
// not at the transport edge.
type CMSClient interface {
	ListProperties(ctx context.Context) ([]map[string]any, error)
	ListZones(ctx context.Context) ([]map[string]any, error)
	ListPosts(ctx context.Context) ([]map[string]any, error)

	// ResolveImages maps every record's id to its media list, possibly empty,
	// never nil. Best-effort: individual failures degrade to fewer items.
	ResolveImages(ctx context.Context, records []map[string]any) map[int64][]MediaItem
}

// CRMClient talks to the booking/CRM service.
type CRMClient interface {
	SearchProperties(ctx context.Context) ([]map[string]any, error)
	GetProperty(ctx context.Context, id int64) (map[string]any, error)

	CreateContact(ctx context.Context, l Lead) (int64, error)
	ListChannels(ctx context.Context) ([]Channel, error)

	// FindContactTag scans tags surfaced on existing contacts for a
	// case-insensitive name match; nil when absent.
	FindContactTag(ctx context.Context, name string) (*Label, error)
	ListLabels(ctx context.Context) ([]Label, error)
	CreateLabel(ctx context.Context, name, color string) (Label, error)
	AssignLabel(ctx context.Context, contactID, labelID int64) error
}
