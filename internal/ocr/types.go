package ocr

import (
	"path/filepath"
	"strings"
)

// AnnotateRequest is the body of a Vision images:annotate call.
type AnnotateRequest struct {
	Requests []ImageRequest `json:"requests"`
}

// ImageRequest asks for features on one base64-encoded image.
type ImageRequest struct {
	Image    Image     `json:"image"`
	Features []Feature `json:"features"`
}

// Image carries the encoded image bytes.
type Image struct {
	Content string `json:"content"`
}

// Feature selects a detection type, e.g. TEXT_DETECTION.
type Feature struct {
	Type string `json:"type"`
}

// AnnotateResponse is the top-level response from images:annotate.
type AnnotateResponse struct {
	Responses []ImageResponse `json:"responses"`
	Error     *Status         `json:"error,omitempty"`
}

// ImageResponse holds the annotations for one image.
type ImageResponse struct {
	TextAnnotations []TextAnnotation `json:"textAnnotations"`
	Error           *Status          `json:"error,omitempty"`
}

// TextAnnotation is one detected text block. The first annotation holds the
// full text of the image.
type TextAnnotation struct {
	Locale      string `json:"locale"`
	Description string `json:"description"`
}

// Status is the error shape returned by the API.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ImageTypes names the accepted image formats for user-facing messages.
const ImageTypes = "PNG, JPG, JPEG, GIF, WEBP, or BMP"

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true,
}

// IsImage reports whether name has an extension Vision accepts.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}
