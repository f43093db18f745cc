package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hsk3232/DevelopProject/pkg/internal/service"
	"github.com/hsk3232/DevelopProject/pkg/internal/types"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

// UploadFile 上传 CSV 并同步导入.
//
//	@Summary		上传扫描日志CSV
//	@Description	multipart 表单字段 file. 文件归档到对象存储后逐行导入，返回处理、成功与失败行号
//	@Tags			文件
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file						true	"CSV 文件"
//	@Success		201		{object}	types.UploadFileResponse	"导入结果"
//	@Failure		400		{object}	map[string]string			"文件格式错误"
//	@Failure		413		{object}	map[string]string			"文件过大"
//	@Failure		500		{object}	map[string]string			"服务器内部错误"
//	@Router			/api/v1/files [post]
func UploadFile(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing form file 'file'"})

		return
	}

	f, err := fh.Open()
	if err != nil {
		abortWithError(c, err, "open upload")

		return
	}
	defer f.Close()

	ctx := c.Request.Context()

	resp, err := service.NewFileService(ctx).Upload(ctx, user, fh.Filename, f, fh.Size)
	if err != nil {
		abortWithError(c, err, "upload csv")

		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListFiles 游标分页列出当前用户的文件.
//
//	@Summary		文件列表
//	@Tags			文件
//	@Produce		json
//	@Param			cursor	query		int							false	"上一页最后一个文件 ID"
//	@Param			size	query		int							false	"每页数量，1-100"
//	@Param			search	query		string						false	"按文件名模糊搜索"
//	@Success		200		{object}	types.ListFilesResponse		"文件列表"
//	@Failure		400		{object}	map[string]string			"请求参数错误"
//	@Router			/api/v1/files [get]
func ListFiles(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

		return
	}

	var req types.ListFilesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		nlog.Logger().Warn().Err(err).Msg("invalid list request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if req.Size == 0 {
		req.Size = 20
	}

	ctx := c.Request.Context()

	resp, err := service.NewFileService(ctx).List(ctx, user, &req)
	if err != nil {
		abortWithError(c, err, "list files")

		return
	}

	c.JSON(http.StatusOK, resp)
}

// DownloadFile 返回原始 CSV 的预签名下载链接.
//
//	@Summary		原始CSV下载链接
//	@Tags			文件
//	@Produce		json
//	@Param			id	path		int							true	"文件 ID"
//	@Success		200	{object}	types.DownloadURLResponse	"预签名链接"
//	@Failure		404	{object}	map[string]string			"文件不存在"
//	@Failure		503	{object}	map[string]string			"对象存储不可用"
//	@Router			/api/v1/files/{id}/download [get]
func DownloadFile(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

		return
	}

	id, ok := fileID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewFileService(ctx).DownloadURL(ctx, user, id)
	if err != nil {
		abortWithError(c, err, "presign download")

		return
	}

	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusFound, resp.URL)

		return
	}

	c.JSON(http.StatusOK, resp)
}
