package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"printwatch/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errListFiles   = "failed to list printer files"
	errReadUpload  = "failed to read uploaded file"
	errMissingFile = "missing form file \"file\""
)

// Request DTO for start/delete by filename.
type filenameRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// FilenameRequest is an exported model for Swagger docs of filename payloads.
type FilenameRequest struct {
	// Name of a file on the printer's storage
	Filename string `json:"filename" example:"benchy.gcode"`
}

// @Summary      List printer files
// @Description  Lists files on the device storage; empty on firmware without listing support
// @Tags         files
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/files/ [get]
// @Security     BearerAuth
func (h *Handler) listFiles(c *gin.Context) {
	ctx := c.Request.Context()
	entries, err := h.services.Files.List(ctx)
	if err != nil {
		h.commandError(c, "files_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": entries, "count": len(entries)})
}

// @Summary      Upload a G-code file
// @Description  Multipart upload. Scrapes slicer metadata and records the job; set to_printer=true to stream the file to the device and start_print=true to begin printing it.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        file         formData  file    true   "G-code file"
// @Param        to_printer   formData  bool    false  "stream to device storage"
// @Param        start_print  formData  bool    false  "start printing after upload"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/files/upload [post]
// @Security     BearerAuth
func (h *Handler) uploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMissingFile})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errReadUpload, "files_upload_open_failed", err)
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, errReadUpload, "files_upload_read_failed", err)
		return
	}

	params := service.UploadParams{
		Filename:   filepath.Base(fileHeader.Filename),
		Content:    content,
		ToPrinter:  formBool(c, "to_printer"),
		StartAfter: formBool(c, "start_print"),
	}
	ctx := c.Request.Context()
	meta, err := h.services.Files.Upload(ctx, params)
	if err != nil {
		h.commandError(c, "files_upload_failed", err, "file", params.Filename)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   statusOK,
		"filename": params.Filename,
		"metadata": meta,
	})
}

// @Summary      Start printing a stored file
// @Tags         files
// @Accept       json
// @Produce      json
// @Param        body  body   FilenameRequest  true  "Filename payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/files/print [post]
// @Security     BearerAuth
func (h *Handler) startPrint(c *gin.Context) {
	var req filenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Files.StartPrint(ctx, req.Filename); err != nil {
		h.commandError(c, "files_start_print_failed", err, "file", req.Filename)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "filename": req.Filename})
}

// @Summary      Delete a stored file
// @Tags         files
// @Accept       json
// @Produce      json
// @Param        body  body   FilenameRequest  true  "Filename payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/files/delete [post]
// @Security     BearerAuth
func (h *Handler) deleteFile(c *gin.Context) {
	var req filenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Files.Delete(ctx, req.Filename); err != nil {
		h.commandError(c, "files_delete_failed", err, "file", req.Filename)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "filename": req.Filename})
}

// formBool reads a multipart form value as a boolean flag.
func formBool(c *gin.Context, key string) bool {
	v := strings.ToLower(strings.TrimSpace(c.PostForm(key)))
	return v == "true" || v == "1" || v == "yes"
}
