package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pennywise/internal/middleware"
	"pennywise/internal/services"
	"pennywise/internal/validator"
)

// ReportHandler handles report delivery
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ExportReportRequest carries a report rendered by the client. There is no
// recipient field: reports only go to the authenticated user's address.
type ExportReportRequest struct {
	PDFData  string `json:"pdfData"`
	Format   string `json:"format" binding:"omitempty,report_format"`
	FileName string `json:"fileName" binding:"omitempty,max=100"`
}

// ExportToMail emails a report to the authenticated user
// @Summary     Email a report
// @Description Email a base64 encoded report (pdf by default, or xlsx) to the address in the caller's token
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ExportReportRequest true "Report payload"
// @Success     200 {object} MessageResponse "Report sent"
// @Failure     400 {object} ErrorResponse "Invalid report or missing email"
// @Failure     403 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Delivery failed"
// @Router      /expenses/export-to-mail [post]
func (h *ReportHandler) ExportToMail(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	email, _ := middleware.EmailFromContext(c)

	var req ExportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, validator.BindingError(err))
		return
	}

	err = h.reportService.SendReport(requestContext(c), userID, email, services.ReportRequest{
		Data:     req.PDFData,
		Format:   req.Format,
		FileName: req.FileName,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Report sent to email successfully!"})
}
