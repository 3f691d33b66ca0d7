package model

import (
	"slices"
	"time"
)

// Patch holds the mutable, non-structural fields of a Node.
// A nil field is left untouched.
type Patch struct {
	Title     *string    `json:"title,omitempty"`
	URL       *string    `json:"url,omitempty"`
	Color     *string    `json:"color,omitempty"`
	Cover     *string    `json:"cover,omitempty"`
	Icon      *string    `json:"icon,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	Tags      *[]string  `json:"tags,omitempty"`
	Favorite  *bool      `json:"favorite,omitempty"`
	ReadLater *bool      `json:"readLater,omitempty"`
	VisitedAt *time.Time `json:"visitedAt,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (p Patch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields returns the names of the fields set in the patch, in declaration order.
func (p Patch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.URL != nil {
		fields = append(fields, "url")
	}
	if p.Color != nil {
		fields = append(fields, "color")
	}
	if p.Cover != nil {
		fields = append(fields, "cover")
	}
	if p.Icon != nil {
		fields = append(fields, "icon")
	}
	if p.Notes != nil {
		fields = append(fields, "notes")
	}
	if p.Tags != nil {
		fields = append(fields, "tags")
	}
	if p.Favorite != nil {
		fields = append(fields, "favorite")
	}
	if p.ReadLater != nil {
		fields = append(fields, "readLater")
	}
	if p.VisitedAt != nil {
		fields = append(fields, "visitedAt")
	}
	return fields
}

// Diff returns the subset of p that would actually change n.
func (p Patch) Diff(n Node) Patch {
	var d Patch
	if p.Title != nil && *p.Title != n.Title {
		d.Title = p.Title
	}
	if p.URL != nil && *p.URL != n.URL {
		d.URL = p.URL
	}
	if p.Color != nil && *p.Color != n.Color {
		d.Color = p.Color
	}
	if p.Cover != nil && *p.Cover != n.Cover {
		d.Cover = p.Cover
	}
	if p.Icon != nil && *p.Icon != n.Icon {
		d.Icon = p.Icon
	}
	if p.Notes != nil && *p.Notes != n.Notes {
		d.Notes = p.Notes
	}
	if p.Tags != nil && !slices.Equal(*p.Tags, n.Tags) {
		d.Tags = p.Tags
	}
	if p.Favorite != nil && *p.Favorite != n.Favorite {
		d.Favorite = p.Favorite
	}
	if p.ReadLater != nil && *p.ReadLater != n.ReadLater {
		d.ReadLater = p.ReadLater
	}
	if p.VisitedAt != nil && (n.VisitedAt == nil || !p.VisitedAt.Equal(*n.VisitedAt)) {
		d.VisitedAt = p.VisitedAt
	}
	return d
}

// Apply merges the set fields of p into n.
func (p Patch) Apply(n *Node) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.URL != nil {
		n.URL = *p.URL
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	if p.Cover != nil {
		n.Cover = *p.Cover
	}
	if p.Icon != nil {
		n.Icon = *p.Icon
	}
	if p.Notes != nil {
		n.Notes = *p.Notes
	}
	if p.Tags != nil {
		n.Tags = slices.Clone(*p.Tags)
		if n.Tags == nil {
			n.Tags = []string{}
		}
	}
	if p.Favorite != nil {
		n.Favorite = *p.Favorite
	}
	if p.ReadLater != nil {
		n.ReadLater = *p.ReadLater
	}
	if p.VisitedAt != nil {
		v := *p.VisitedAt
		n.VisitedAt = &v
	}
}
