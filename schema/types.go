package schema

// TabID identifies a tab. Ids are issued in increasing order and never reused.
type TabID int64

// Tab is a copy of one tab's state, safe to hand across the registry boundary.
type Tab struct {
	ID    TabID  `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Rect is a screen-space rectangle in pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle has no capturable area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}
