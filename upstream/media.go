package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"violation-dashboard/models"
)

// DetectionResult is the outcome of single-image coordinate detection:
// the resolved coordinates, the objects found, and the imagery enrichment.
type DetectionResult struct {
	Coordinates models.Location          `json:"coordinates"`
	Objects     []models.ViolationRecord `json:"objects"`
	Satellite   *models.SatelliteData    `json:"satellite_data,omitempty"`
	Address     string                   `json:"address,omitempty"`
}

// VideoAnalysis is the outcome of frame-sampled video detection.
type VideoAnalysis struct {
	FramesAnalyzed int                      `json:"frames_analyzed"`
	Detections     []models.ViolationRecord `json:"detections"`
}

// ProcessingEstimate is the backend's cost estimate for a video analysis run.
type ProcessingEstimate struct {
	EstimatedSeconds float64 `json:"estimated_seconds"`
	FrameCount       int     `json:"frame_count"`
}

// VideoParams tune frame-sampled analysis.
type VideoParams struct {
	FrameInterval int
	MaxFrames     int
}

// DetectCoordinates uploads one image for coordinate detection. The optional
// location hint narrows the geocoding search.
func (c *Client) DetectCoordinates(ctx context.Context, filename string, media io.Reader, locationHint string) (*DetectionResult, error) {
	fields := map[string]string{}
	if locationHint != "" {
		fields["location_hint"] = locationHint
	}
	body, err := c.postMultipart(ctx, "/api/detect/coordinates", "image", filename, media, fields)
	if err != nil {
		return nil, err
	}
	var out DetectionResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode detection result: %w", err)
	}
	return &out, nil
}

// AnalyzeVideo uploads a video for frame-sampled detection.
func (c *Client) AnalyzeVideo(ctx context.Context, filename string, media io.Reader, p VideoParams) (*VideoAnalysis, error) {
	body, err := c.postMultipart(ctx, "/api/analyze/video", "video", filename, media, videoFields(p))
	if err != nil {
		return nil, err
	}
	var out VideoAnalysis
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode video analysis: %w", err)
	}
	return &out, nil
}

// EstimateProcessingTime asks for a cost estimate before running a full
// video analysis.
func (c *Client) EstimateProcessingTime(ctx context.Context, filename string, media io.Reader, p VideoParams) (*ProcessingEstimate, error) {
	body, err := c.postMultipart(ctx, "/api/analyze/video/estimate", "video", filename, media, videoFields(p))
	if err != nil {
		return nil, err
	}
	var out ProcessingEstimate
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode processing estimate: %w", err)
	}
	return &out, nil
}

func videoFields(p VideoParams) map[string]string {
	fields := map[string]string{}
	if p.FrameInterval > 0 {
		fields["frame_interval"] = strconv.Itoa(p.FrameInterval)
	}
	if p.MaxFrames > 0 {
		fields["max_frames"] = strconv.Itoa(p.MaxFrames)
	}
	return fields
}

func (c *Client) postMultipart(ctx context.Context, path, fileField, filename string, media io.Reader, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, media); err != nil {
		return nil, fmt.Errorf("failed to copy media into request: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}
