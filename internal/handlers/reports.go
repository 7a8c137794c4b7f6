package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/services"
	appErrors "github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/response"
)

const (
	reportImagesField = "images"
	sniffLength       = 512
)

var errPayloadTooLarge = appErrors.New("PAYLOAD_TOO_LARGE", "Upload exceeds the allowed size", http.StatusRequestEntityTooLarge)

// ReportHandler accepts picket reports with photos.
type ReportHandler struct {
	reports        *services.ReportService
	maxUploadBytes int64
}

func NewReportHandler(reports *services.ReportService, maxUploadBytes int64) *ReportHandler {
	return &ReportHandler{reports: reports, maxUploadBytes: maxUploadBytes}
}

// POST /api/report (multipart/form-data)
func (h *ReportHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, errPayloadTooLarge)
			return
		}
		response.Error(c, appErrors.NewBadRequest("Expected a multipart form"))
		return
	}
	defer func() { _ = form.RemoveAll() }()

	uploads, closeAll, err := openUploads(form.File[reportImagesField])
	defer closeAll()
	if err != nil {
		response.Error(c, err)
		return
	}

	input := services.ReportInput{
		Title:    c.PostForm("title"),
		Picketer: c.PostForm("picketer"),
		Status:   c.PostForm("status"),
		PostID:   c.PostForm("post"),
		UserID:   c.PostForm("user"),
	}

	report, err := h.reports.Create(requestContext(c), userID, input, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, report)
}

// GET /api/report
func (h *ReportHandler) List(c *gin.Context) {
	reports, err := h.reports.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, reports)
}

// GET /api/report/:id
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

// POST /api/report/:id/email
func (h *ReportHandler) Email(c *gin.Context) {
	var req services.EmailReportInput
	if !bindJSON(c, &req) {
		return
	}
	if err := h.reports.Email(requestContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

// openUploads opens every file part. The content type comes from the part
// header and is sniffed when the client left it generic.
func openUploads(headers []*multipart.FileHeader) ([]services.Upload, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			return nil, closeAll, appErrors.NewBadRequest("Unreadable upload " + fh.Filename)
		}
		files = append(files, file)

		contentType := strings.TrimSpace(fh.Header.Get("Content-Type"))
		if contentType == "" || contentType == "application/octet-stream" {
			contentType, err = sniffContentType(file)
			if err != nil {
				return nil, closeAll, appErrors.NewBadRequest("Unreadable upload " + fh.Filename)
			}
		}

		uploads = append(uploads, services.Upload{
			Filename:    fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Body:        file,
		})
	}
	return uploads, closeAll, nil
}

func sniffContentType(file multipart.File) (string, error) {
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}
