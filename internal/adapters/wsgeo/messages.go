package wsgeo

// Page to server.
const (
	typeHello         = "hello"
	typeMapReady      = "map_ready"
	typeDetect        = "detect"
	typeMapClick      = "map_click"
	typePosition      = "position"
	typePositionError = "position_error"
)

// Server to page.
const (
	typePositionRequest = "position_request"
	typeSelection       = "selection"
	typePermission      = "permission"
	typeToast           = "toast"
	typeError           = "error"
)

// inboundMessage is the union of every message the page sends.
type inboundMessage struct {
	Type      string   `json:"type"`
	ID        string   `json:"id,omitempty"`
	Supported *bool    `json:"supported,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Accuracy  float64  `json:"accuracy,omitempty"`
	// Timestamp is milliseconds since the Unix epoch, as browsers report it.
	Timestamp int64  `json:"timestamp,omitempty"`
	Code      int    `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

type wireOptions struct {
	EnableHighAccuracy bool  `json:"enableHighAccuracy"`
	TimeoutMS          int64 `json:"timeout"`
	MaximumAgeMS       int64 `json:"maximumAge"`
}

type positionRequest struct {
	Type    string      `json:"type"`
	ID      string      `json:"id"`
	Options wireOptions `json:"options"`
}

type selectionMessage struct {
	Type string  `json:"type"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type permissionMessage struct {
	Type      string `json:"type"`
	State     string `json:"state"`
	CanDetect bool   `json:"can_detect"`
}

type toastMessage struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
