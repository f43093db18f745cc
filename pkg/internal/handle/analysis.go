package handle

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hsk3232/DevelopProject/pkg/internal/report"
	"github.com/hsk3232/DevelopProject/pkg/internal/service"
	"github.com/hsk3232/DevelopProject/pkg/internal/types"
)

// AnalyzeFile 受理文件（重新）分析，结果通过 WebSocket 与事件推送.
//
//	@Summary		触发分析
//	@Description	重建行程、规则检测、评分与汇总. 已有结果会先被清除
//	@Tags			分析
//	@Produce		json
//	@Param			id	path		int						true	"文件 ID"
//	@Success		202	{object}	types.AnalyzeResponse	"已受理"
//	@Failure		404	{object}	map[string]string		"文件不存在"
//	@Router			/api/v1/files/{id}/analyze [post]
func AnalyzeFile(c *gin.Context) {
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

	resp, err := service.NewAnalysisService(ctx).Request(ctx, user, id, service.ReasonManual)
	if err != nil {
		abortWithError(c, err, "request analysis")

		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetSummary 返回文件的分析统计.
//
//	@Summary		分析统计
//	@Tags			分析
//	@Produce		json
//	@Param			id	path		int				true	"文件 ID"
//	@Success		200	{object}	model.Summary	"统计结果"
//	@Failure		404	{object}	map[string]string	"文件不存在或尚未分析"
//	@Router			/api/v1/files/{id}/summary [get]
func GetSummary(c *gin.Context) {
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

	s, err := service.NewAnalysisService(ctx).Summary(ctx, user, id)
	if err != nil {
		abortWithError(c, err, "get summary")

		return
	}

	c.JSON(http.StatusOK, s)
}

// ListAnomalies 分页返回规则或评分异常.
//
//	@Summary		异常列表
//	@Tags			分析
//	@Produce		json
//	@Param			id		path		int							true	"文件 ID"
//	@Param			kind	query		string						false	"rule 或 score"
//	@Param			offset	query		int							false	"偏移"
//	@Param			limit	query		int							false	"数量，默认 100"
//	@Success		200		{object}	types.ListAnomaliesResponse	"异常列表"
//	@Failure		400		{object}	map[string]string			"请求参数错误"
//	@Router			/api/v1/files/{id}/anomalies [get]
func ListAnomalies(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

		return
	}

	id, ok := fileID(c)
	if !ok {
		return
	}

	var req types.ListAnomaliesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewAnalysisService(ctx).Anomalies(ctx, user, id, &req)
	if err != nil {
		abortWithError(c, err, "list anomalies")

		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportReport 下载 xlsx 报表.
//
//	@Summary		导出报表
//	@Tags			分析
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Param			id	path	int	true	"文件 ID"
//	@Success		200	{file}	file	"xlsx"
//	@Failure		404	{object}	map[string]string	"文件不存在"
//	@Router			/api/v1/files/{id}/export [get]
func ExportReport(c *gin.Context) {
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

	// 先写入缓冲区，出错时仍可返回 JSON 错误
	var buf bytes.Buffer

	file, err := service.NewAnalysisService(ctx).Export(ctx, user, id, &buf)
	if err != nil {
		abortWithError(c, err, "export report")

		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(file)))
	c.Data(http.StatusOK, report.ContentType, buf.Bytes())
}
