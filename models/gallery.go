package models

type GalleryItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"` // image, video
	MimeType     string `json:"mimeType"`
	ThumbnailURL string `json:"thumbnailUrl"`
	ViewURL      string `json:"viewUrl"`
	DownloadURL  string `json:"downloadUrl"`
	Size         int64  `json:"size"`
	CreatedAt    string `json:"createdAt"`
	Category     string `json:"category,omitempty"`
}

type GalleryFolder struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Year       string `json:"year,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	ModifiedAt string `json:"modifiedAt,omitempty"`
}

type GalleryResponse struct {
	Folder     GalleryFolder  `json:"folder"`
	Items      []GalleryItem  `json:"items"`
	Count      int            `json:"count"`
	Categories map[string]int `json:"categories,omitempty"`
}
