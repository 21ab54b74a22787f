package server

import (
	"bytes"
	goerrors "errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chemviz/internal/dao"
	"chemviz/internal/ingest"
	"chemviz/internal/model"
	"chemviz/internal/report"
)

const (
	datasetKey = "dataset"

	maxFilenameLength = 255
	defaultPageSize   = 20
)

var (
	errNoFile          = goerrors.New("No file provided")
	errNotCSV          = goerrors.New("File must be a CSV")
	errDatasetNotFound = goerrors.New("Dataset not found")
)

func SetDatasetToContext(withRecords bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("dataset_id"))
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid dataset_id"})
			return
		}

		ds, err := model.GetDatasetById(id, withRecords)
		if err != nil {
			if goerrors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: errDatasetNotFound.Error()})
				return
			}
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		c.Set(datasetKey, ds)
		c.Next()
	}
}

// @Summary 上传CSV
// @Description 解析并保存设备数据，超出历史上限的旧数据集会被删除
// @Tags 数据集
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV文件"
// @Success 201 {object} dao.DatasetSpec
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/upload [post]
func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.conf.MaxUploadSize+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if goerrors.As(err, &tooLarge) {
			s.writeError(c, http.StatusBadRequest, s.errTooLarge())
			return
		}
		s.writeError(c, http.StatusBadRequest, errNoFile)
		return
	}

	filename := filepath.Base(strings.ReplaceAll(fileHeader.Filename, "\\", "/"))
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		s.writeError(c, http.StatusBadRequest, errNotCSV)
		return
	}
	if utf8.RuneCountInString(filename) > maxFilenameLength {
		s.writeError(c, http.StatusBadRequest, fmt.Errorf("filename longer than %d characters", maxFilenameLength))
		return
	}
	if fileHeader.Size > s.conf.MaxUploadSize {
		s.writeError(c, http.StatusBadRequest, s.errTooLarge())
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}

	ds, err := s.datasets.Ingest(c, filename, data, currentUser(c))
	if err != nil {
		if ingest.IsInputError(err) {
			s.writeError(c, http.StatusBadRequest, err)
			return
		}
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}

	spec, err := dao.FromDatasetModel(ds, true)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, spec)
}

func (s *Server) errTooLarge() error {
	return fmt.Errorf("file exceeds the %d byte upload limit", s.conf.MaxUploadSize)
}

// @Summary 获取数据集
// @Description 返回数据集汇总及全部记录
// @Tags 数据集
// @Produce json
// @Param dataset_id path int true "数据集ID"
// @Success 200 {object} dao.DatasetSpec
// @Failure 404 {object} ErrorResponse
// @Router /api/datasets/{dataset_id} [get]
// @Router /api/summary/{dataset_id} [get]
func (s *Server) handleGetDataset(c *gin.Context) {
	ds := c.MustGet(datasetKey).(*model.Dataset)

	spec, err := dao.FromDatasetModel(ds, true)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, spec)
}

// @Summary 上传历史
// @Description 最近的数据集汇总，不含记录
// @Tags 数据集
// @Produce json
// @Success 200 {array} dao.DatasetSpec
// @Router /api/history [get]
func (s *Server) handleHistory(c *gin.Context) {
	datasets, err := model.ListRecentDatasets(s.conf.MaxDatasetHistory)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}

	items, err := dao.FromDatasetModels(datasets)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// @Summary 数据集列表
// @Tags 数据集
// @Produce json
// @Param start query int false "起始位置" default(0)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} dao.ListDatasetsResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/datasets [get]
func (s *Server) handleListDatasets(c *gin.Context) {
	var req dao.ListDatasetsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultPageSize
	}

	datasets, total, err := model.ListDatasets(req.Start, req.Limit)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}

	items, err := dao.FromDatasetModels(datasets)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, dao.ListDatasetsResponse{
		Items: items,
		Total: total,
	})
}

// @Summary 删除数据集
// @Tags 数据集
// @Produce json
// @Param dataset_id path int true "数据集ID"
// @Success 200 {object} dao.MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/datasets/{dataset_id} [delete]
func (s *Server) handleDeleteDataset(c *gin.Context) {
	ds := c.MustGet(datasetKey).(*model.Dataset)

	if err := s.datasets.Delete(c, ds.Id); err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			s.writeError(c, http.StatusNotFound, errDatasetNotFound)
			return
		}
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, dao.MessageResponse{Message: "Dataset deleted"})
}

// @Summary 下载PDF报告
// @Tags 数据集
// @Produce application/pdf
// @Param dataset_id path int true "数据集ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /api/datasets/{dataset_id}/download_pdf [get]
func (s *Server) handleDownloadPDF(c *gin.Context) {
	ds := c.MustGet(datasetKey).(*model.Dataset)

	pdf, err := s.datasets.Reports().PDF(c, ds.Id)
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			s.writeError(c, http.StatusNotFound, errDatasetNotFound)
			return
		}
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	attachment(c, ds.Filename+"_report.pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// @Summary 下载原始CSV
// @Tags 数据集
// @Produce text/csv
// @Param dataset_id path int true "数据集ID"
// @Success 200 {file} file
// @Router /api/datasets/{dataset_id}/csv [get]
func (s *Server) handleDownloadCSV(c *gin.Context) {
	ds := c.MustGet(datasetKey).(*model.Dataset)

	attachment(c, ds.Filename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(ds.CsvData))
}

// @Summary 导出Parquet
// @Tags 数据集
// @Produce application/octet-stream
// @Param dataset_id path int true "数据集ID"
// @Success 200 {file} file
// @Router /api/datasets/{dataset_id}/parquet [get]
func (s *Server) handleDownloadParquet(c *gin.Context) {
	ds := c.MustGet(datasetKey).(*model.Dataset)

	var buf bytes.Buffer
	if err := report.WriteParquet(&buf, ds); err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	attachment(c, strings.TrimSuffix(ds.Filename, filepath.Ext(ds.Filename))+".parquet")
	c.Data(http.StatusOK, "application/vnd.apache.parquet", buf.Bytes())
}

// @Summary 列统计
// @Description 各数值列的最小值、最大值、均值、中位数和P90
// @Tags 数据集
// @Produce json
// @Param dataset_id path int true "数据集ID"
// @Success 200 {object} map[string]ingest.ColumnStats
// @Router /api/datasets/{dataset_id}/stats [get]
func (s *Server) handleStats(c *gin.Context) {
	ds := c.MustGet(datasetKey).(*model.Dataset)

	stats, err := ingest.Describe(ds.Rows())
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
