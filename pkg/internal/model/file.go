package model

import "time"

// File 上传的 CSV 文件，创建后不再修改.
type File struct {
	ID         uint      `gorm:"primaryKey"                    json:"file_id"`
	FileName   string    `gorm:"size:512;not null;index"       json:"file_name"`
	StoredName string    `gorm:"size:255"                      json:"stored_name"`
	Bucket     string    `gorm:"size:255"                      json:"bucket,omitempty"`
	ObjectKey  string    `gorm:"size:1024"                     json:"object_key,omitempty"`
	Size       int64     `json:"file_size"`
	UploadedBy string    `gorm:"size:255;index"                json:"uploaded_by"`
	CreatedAt  time.Time `gorm:"index"                         json:"created_at"`
}

// TableName 表名.
func (File) TableName() string { return "csv_files" }
