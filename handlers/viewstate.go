package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"violation-dashboard/models"
	"violation-dashboard/upstream"
	"violation-dashboard/viewstate"
)

// SelectTabHandler switches the active tab. The response reports whether the
// client needs to refetch the tab's data.
func (h *DashboardHandler) SelectTabHandler(c *gin.Context) {
	ctrl := h.session(c)

	var req struct {
		Tab string `json:"tab"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	ctrl.Lock()
	defer ctrl.Unlock()
	refetch, err := ctrl.Tabs.Select(viewstate.Tab(req.Tab))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tab":        ctrl.Tabs.Current(),
		"pagination": ctrl.Tabs.Pagination(),
		"refetch":    refetch,
	})
}

// GoToPageHandler navigates the active tab's pagination, clamped to range.
func (h *DashboardHandler) GoToPageHandler(c *gin.Context) {
	ctrl := h.session(c)

	var req struct {
		Page int `json:"page"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	ctrl.Lock()
	defer ctrl.Unlock()
	page := ctrl.Tabs.GoToPage(req.Page)
	c.JSON(http.StatusOK, gin.H{"page": page, "pagination": ctrl.Tabs.Pagination()})
}

// SetFiltersHandler validates and installs the session's map/list filters.
// Invalid input never reaches the backend.
func (h *DashboardHandler) SetFiltersHandler(c *gin.Context) {
	ctrl := h.session(c)

	var req struct {
		Category      string `json:"category"`
		ConfidenceMin string `json:"confidence_min"`
		DateFrom      string `json:"date_from"`
		DateTo        string `json:"date_to"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	fs, err := viewstate.ParseFilterState(req.Category, req.ConfidenceMin, req.DateFrom, req.DateTo)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctrl.Lock()
	defer ctrl.Unlock()
	if err := ctrl.SetFilters(fs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"filters": ctrl.Filters})
}

// ResetFiltersHandler restores the identity filter.
func (h *DashboardHandler) ResetFiltersHandler(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.Lock()
	defer ctrl.Unlock()
	ctrl.ResetFilters()
	c.JSON(http.StatusOK, gin.H{"filters": ctrl.Filters})
}

// OpenViolationDialogHandler snapshots a violation into the edit dialog.
func (h *DashboardHandler) OpenViolationDialogHandler(c *gin.Context) {
	ctrl := h.session(c)

	var rec models.ViolationRecord
	if err := c.BindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}
	if rec.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "violation id is required"})
		return
	}
	ctrl.Lock()
	defer ctrl.Unlock()
	ctrl.ViolationDialog.Open(viewstate.KindViolation, rec.Clone())
	c.JSON(http.StatusOK, gin.H{"open": true, "scratch": ctrl.ViolationDialog.Scratch})
}

// EditViolationDialogHandler updates the scratch copy. The original record is
// untouched until save.
func (h *DashboardHandler) EditViolationDialogHandler(c *gin.Context) {
	ctrl := h.session(c)

	var req struct {
		Category *string `json:"category"`
		Status   *string `json:"status"`
		Notes    *string `json:"notes"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	ctrl.Lock()
	defer ctrl.Unlock()
	if !ctrl.ViolationDialog.IsOpen() {
		c.JSON(http.StatusConflict, gin.H{"error": "no dialog open"})
		return
	}
	if req.Category != nil {
		ctrl.ViolationDialog.Scratch.Category = *req.Category
	}
	if req.Status != nil {
		ctrl.ViolationDialog.Scratch.Status = *req.Status
	}
	if req.Notes != nil {
		ctrl.ViolationDialog.Scratch.Notes = *req.Notes
	}
	c.JSON(http.StatusOK, gin.H{"scratch": ctrl.ViolationDialog.Scratch})
}

// SaveViolationDialogHandler commits the scratch copy to the backend. On
// failure the dialog stays open with edits intact.
func (h *DashboardHandler) SaveViolationDialogHandler(c *gin.Context) {
	ctrl := h.session(c)
	if err := h.service.SaveViolation(c.Request.Context(), ctrl); err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CloseDialogHandler discards the scratch copy without saving.
func (h *DashboardHandler) CloseDialogHandler(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.Lock()
	defer ctrl.Unlock()
	ctrl.ViolationDialog.Close()
	ctrl.UserDialog.Close()
	c.JSON(http.StatusOK, gin.H{"open": false})
}

// WizardStateHandler reports the wizard's step, groups and results.
func (h *DashboardHandler) WizardStateHandler(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.Lock()
	defer ctrl.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"step":    ctrl.Wizard.Step(),
		"groups":  ctrl.Wizard.Groups(),
		"results": ctrl.Wizard.Results(),
	})
}

// AddWizardGroupHandler creates a new object group.
func (h *DashboardHandler) AddWizardGroupHandler(c *gin.Context) {
	ctrl := h.session(c)

	var req struct {
		Label string `json:"label"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	ctrl.Lock()
	defer ctrl.Unlock()
	group, err := ctrl.Wizard.AddGroup(req.Label)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, group)
}

// AttachWizardFileHandler attaches an uploaded filename to a group.
func (h *DashboardHandler) AttachWizardFileHandler(c *gin.Context) {
	ctrl := h.session(c)

	var req struct {
		Filename string `json:"filename"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	ctrl.Lock()
	defer ctrl.Unlock()
	if err := ctrl.Wizard.AttachFile(c.Param("id"), req.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": ctrl.Wizard.Groups()})
}

// AnalyzeWizardHandler runs the analysis step: the uploaded video goes to the
// backend while the wizard sits in the Analyze step; failure returns it to
// Group, success lands on Results.
func (h *DashboardHandler) AnalyzeWizardHandler(c *gin.Context) {
	ctrl := h.session(c)

	file, header, err := c.Request.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video file is required"})
		return
	}
	defer file.Close()

	ctrl.Lock()
	err = ctrl.Wizard.StartAnalysis()
	ctrl.Unlock()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	analysis, err := h.client.AnalyzeVideo(c.Request.Context(), header.Filename, file, upstream.VideoParams{
		FrameInterval: atoiDefault(c.PostForm("frame_interval"), 30),
		MaxFrames:     atoiDefault(c.PostForm("max_frames"), 60),
	})

	ctrl.Lock()
	defer ctrl.Unlock()
	if err != nil {
		ctrl.Wizard.FailAnalysis()
		h.fetchError(c, err)
		return
	}
	if err := ctrl.Wizard.CompleteAnalysis(analysis.Detections); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"step":            ctrl.Wizard.Step(),
		"frames_analyzed": analysis.FramesAnalyzed,
		"results":         ctrl.Wizard.Results(),
	})
}

// ResetWizardHandler starts a new analysis, discarding prior results.
func (h *DashboardHandler) ResetWizardHandler(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.Lock()
	defer ctrl.Unlock()
	ctrl.Wizard.Reset()
	c.JSON(http.StatusOK, gin.H{"step": ctrl.Wizard.Step()})
}

// DetectImageHandler proxies single-image coordinate detection.
func (h *DashboardHandler) DetectImageHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	result, err := h.client.DetectCoordinates(c.Request.Context(), header.Filename, file, c.PostForm("location_hint"))
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// EstimateVideoHandler proxies the processing-time estimate.
func (h *DashboardHandler) EstimateVideoHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video file is required"})
		return
	}
	defer file.Close()

	estimate, err := h.client.EstimateProcessingTime(c.Request.Context(), header.Filename, file, upstream.VideoParams{
		FrameInterval: atoiDefault(c.PostForm("frame_interval"), 30),
		MaxFrames:     atoiDefault(c.PostForm("max_frames"), 60),
	})
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, estimate)
}

func atoiDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
