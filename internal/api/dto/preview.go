package dto

type PreviewReq struct {
	URL string `form:"url" binding:"required,url,max=2048"`
}

// PreviewDTO 链接预览
type PreviewDTO struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}
