// Package detect defines the object detector capability and an HTTP client
// for an inference sidecar that implements it.
package detect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnknownClassID is returned by DescribeClass for ids outside the label
// list.
var ErrUnknownClassID = errors.New("unknown class id")

// Detection is one object found in a frame.
type Detection struct {
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
}

// Frame is one captured image, already run through the model by the sidecar.
// Callers treat it as opaque and hand it back to Detect.
type Frame struct {
	ID         string      `json:"frame_id"`
	Detections []Detection `json:"detections"`
}

// Detector captures frames and reports the classes seen in them.
type Detector interface {
	CaptureFrame(ctx context.Context) (Frame, error)
	Detect(ctx context.Context, f Frame) ([]int, error)
	DescribeClass(id int) (string, error)
}

// Remote is a Detector backed by an inference sidecar. Class ids index into
// the label list the model was trained with, background slot included.
type Remote struct {
	base      string
	client    *http.Client
	threshold float64
	labels    []string
}

// NewRemote returns a Remote for the sidecar at base. Detections below
// threshold are discarded.
func NewRemote(base string, client *http.Client, threshold float64, labels []string) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	l := make([]string, len(labels))
	copy(l, labels)
	return &Remote{
		base:      strings.TrimRight(base, "/"),
		client:    client,
		threshold: threshold,
		labels:    l,
	}
}

// CaptureFrame asks the sidecar for the latest frame and its detections.
func (r *Remote) CaptureFrame(ctx context.Context) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/frame", nil)
	if err != nil {
		return Frame{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return Frame{}, fmt.Errorf("capture frame: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return Frame{}, fmt.Errorf("capture frame: HTTP %d", resp.StatusCode)
	}
	var f Frame
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// Detect returns the class ids of detections at or above the threshold.
func (r *Remote) Detect(ctx context.Context, f Frame) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(f.Detections))
	for _, d := range f.Detections {
		if d.Confidence >= r.threshold {
			ids = append(ids, d.ClassID)
		}
	}
	return ids, nil
}

// DescribeClass returns the label for id.
func (r *Remote) DescribeClass(id int) (string, error) {
	if id < 0 || id >= len(r.labels) {
		return "", fmt.Errorf("%w: %d", ErrUnknownClassID, id)
	}
	return r.labels[id], nil
}
