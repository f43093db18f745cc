package types

import "github.com/hsk3232/DevelopProject/pkg/internal/model"

// UploadFileResponse 上传并导入 CSV 的结果.
type UploadFileResponse struct {
	FileID    uint             `json:"file_id"`
	FileName  string           `json:"file_name"`
	ObjectKey string           `json:"object_key,omitempty"`
	Processed int              `json:"processed"`
	Inserted  int              `json:"inserted"`
	Rejected  int              `json:"rejected"`
	ErrorRows map[string][]int `json:"error_rows,omitempty"` // 错误类别 -> 行号（表头为第 1 行）
	Analyzing bool             `json:"analyzing"`            // 是否已触发分析
}

// ListFilesRequest 文件列表查询，以文件 id 作为游标.
type ListFilesRequest struct {
	Cursor uint   `form:"cursor"`
	Size   int    `form:"size"   rule:"omitempty,min=1,max=100"`
	Search string `form:"search" rule:"max=255"`
}

// ListFilesResponse 文件列表.
type ListFilesResponse struct {
	Files      []model.File `json:"files"`
	NextCursor uint         `json:"next_cursor,omitempty"` // 0 表示没有下一页
}

// DownloadURLResponse 原始 CSV 的预签名下载链接.
type DownloadURLResponse struct {
	FileID    uint   `json:"file_id"`
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"` // 秒
}
