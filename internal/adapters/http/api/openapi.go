package api

import (
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	service "github.com/okian/kiosk/internal/app"
)

// selectPath carries the path parameter of POST /api/select/{index}.
type selectPath struct {
	Index int `path:"index" minimum:"0"`
}

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               any
	failure                            any
	contentType                        string
	errors                             []int
}

var operations = []operation{
	{method: http.MethodGet, path: "/healthz", summary: "Health check",
		description: "Reports catalog and coordinator health. 503 until the catalog is installed.",
		resp:        HealthResponse{}, failure: HealthResponse{}, errors: []int{http.StatusServiceUnavailable}},
	{method: http.MethodGet, path: "/stats", summary: "Coordinator statistics",
		resp: map[string]any{}},
	{method: http.MethodGet, path: "/api/state", summary: "Current view",
		description: "Returns the last committed playback view.",
		resp:        service.View{}},
	{method: http.MethodGet, path: "/api/catalog", summary: "Event catalog",
		description: "Returns the ordered events with visuals and ruler positions.",
		resp:        CatalogResponse{}},
	{method: http.MethodPost, path: "/api/intents", summary: "Apply an intent",
		description: "Applies a visitor intent and returns the resulting view.",
		req:         IntentRequest{}, resp: service.View{},
		errors: []int{http.StatusBadRequest, http.StatusConflict, http.StatusServiceUnavailable}},
	{method: http.MethodPost, path: "/api/select/{index}", summary: "Select an event",
		req: selectPath{}, resp: service.View{},
		errors: []int{http.StatusBadRequest, http.StatusConflict, http.StatusServiceUnavailable}},
	{method: http.MethodPost, path: "/api/prev", summary: "Previous event",
		resp: service.View{}, errors: []int{http.StatusConflict, http.StatusServiceUnavailable}},
	{method: http.MethodPost, path: "/api/next", summary: "Next event",
		resp: service.View{}, errors: []int{http.StatusConflict, http.StatusServiceUnavailable}},
	{method: http.MethodPost, path: "/api/detail", summary: "Open the detail overlay",
		resp: service.View{}, errors: []int{http.StatusConflict, http.StatusServiceUnavailable}},
	{method: http.MethodDelete, path: "/api/detail", summary: "Close the detail overlay",
		resp: service.View{}, errors: []int{http.StatusConflict, http.StatusServiceUnavailable}},
	{method: http.MethodPost, path: "/api/keys", summary: "Keyboard input",
		description: "Maps ArrowLeft, ArrowRight and Escape onto navigation intents.",
		req:         KeyRequest{}, resp: service.View{},
		errors: []int{http.StatusBadRequest, http.StatusConflict, http.StatusServiceUnavailable}},
	{method: http.MethodPost, path: "/api/activity", summary: "Report visitor activity",
		description: "Restarts the idle countdown without changing the view.",
		req:         ActivityRequest{}, resp: service.View{},
		errors: []int{http.StatusBadRequest, http.StatusServiceUnavailable}},
	{method: http.MethodPut, path: "/api/autoplay", summary: "Change the autoplay period",
		req: AutoplayRequest{}, resp: service.View{},
		errors: []int{http.StatusBadRequest, http.StatusServiceUnavailable}},
	{method: http.MethodGet, path: "/api/stream", summary: "View event stream",
		description: "Server-Sent Events: one state event per committed view, pings every 30s.",
		contentType: "text/event-stream"},
	{method: http.MethodGet, path: "/ws", summary: "WebSocket bridge",
		description: "Pushes views; accepts intent, key and input messages.",
		contentType: "text/plain"},
}

// Document describes the HTTP surface as an OpenAPI 3 document.
func Document() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Kiosk Playback API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Drives the timeline kiosk display: state, intents and live updates.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		if op.description != "" {
			oc.SetDescription(op.description)
		}
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		switch {
		case op.contentType == "text/event-stream":
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType(op.contentType))
		case op.contentType != "":
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols), openapi.WithContentType(op.contentType))
		default:
			oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(http.StatusOK))
		}
		failure := op.failure
		if failure == nil {
			failure = ErrorResponse{}
		}
		for _, status := range op.errors {
			oc.AddRespStructure(failure, openapi.WithHTTPStatus(status))
		}
		_ = r.AddOperation(oc)
	}
	return r.Spec
}
