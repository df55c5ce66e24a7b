package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"DividendRadar/pkg/model"
	"DividendRadar/pkg/monitor"
)

// CompanyIngestor 公司入库
type CompanyIngestor interface {
	Ingest(ctx context.Context, ticker string) (*model.Company, error)
}

// CompanyQuery 查询与删除
type CompanyQuery interface {
	GetByName(ctx context.Context, name string) (*model.ScrapedResult, error)
	Autocomplete(prefix string) []string
	SearchNames(ctx context.Context, keyword string) ([]string, error)
	ListPage(ctx context.Context, pageable model.Pageable) (*model.Page[model.Company], error)
	Delete(ctx context.Context, ticker string) (string, error)
}

// Readiness 组件健康状态
type Readiness interface {
	Ready() bool
	GetAllStatus() []monitor.HealthStatus
}

// Handlers API处理程序
type Handlers struct {
	ingestor  CompanyIngestor
	query     CompanyQuery
	readiness Readiness
}

// NewHandlers 创建新的API处理程序
func NewHandlers(ingestor CompanyIngestor, query CompanyQuery, readiness Readiness) *Handlers {
	return &Handlers{
		ingestor:  ingestor,
		query:     query,
		readiness: readiness,
	}
}

// operationContext 请求断开后操作仍继续执行，保留请求上下文中的日志器等值
func operationContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// HealthCheck 健康检查处理程序
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck 依赖组件全部健康时返回 200
func (h *Handlers) ReadinessCheck(c *gin.Context) {
	status, code := "ready", http.StatusOK
	if !h.readiness.Ready() {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": h.readiness.GetAllStatus(),
	})
}

// IngestRequest 入库请求
type IngestRequest struct {
	Ticker string `json:"ticker"`
}

// IngestCompany POST /company
func (h *Handlers) IngestCompany(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "VALIDATION_FAILURE",
			"message": "请求格式错误: " + err.Error(),
		})
		return
	}

	company, err := h.ingestor.Ingest(operationContext(c), req.Ticker)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": company,
	})
}

// ListCompanies GET /company?page=&size=&sort=
func (h *Handlers) ListCompanies(c *gin.Context) {
	pageable, ok := bindPageable(c)
	if !ok {
		return
	}

	page, err := h.query.ListPage(operationContext(c), pageable)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": page,
	})
}

// Autocomplete GET /company/autocomplete?keyword=
func (h *Handlers) Autocomplete(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": h.query.Autocomplete(c.Query("keyword")),
	})
}

// SearchNames GET /company/search?keyword=
func (h *Handlers) SearchNames(c *gin.Context) {
	names, err := h.query.SearchNames(operationContext(c), c.Query("keyword"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": names,
	})
}

// DeleteCompany DELETE /company/:ticker
func (h *Handlers) DeleteCompany(c *gin.Context) {
	name, err := h.query.Delete(operationContext(c), c.Param("ticker"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": name,
	})
}

// GetDividends GET /finance/dividend/:companyName
func (h *Handlers) GetDividends(c *gin.Context) {
	result, err := h.query.GetByName(operationContext(c), c.Param("companyName"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}

func bindPageable(c *gin.Context) (model.Pageable, bool) {
	pageable := model.Pageable{Sort: c.Query("sort")}

	var err error
	if v := c.Query("page"); v != "" {
		if pageable.Page, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION_FAILURE", "message": "page参数必须为整数"})
			return pageable, false
		}
	}
	if v := c.Query("size"); v != "" {
		if pageable.Size, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION_FAILURE", "message": "size参数必须为整数"})
			return pageable, false
		}
	}

	return pageable.Normalize(), true
}
