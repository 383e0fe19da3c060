// Package swagger serves the OpenAPI document and an embedded Swagger UI.
package swagger

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

// Routes.
const (
	SpecPath = "/openapi.json"
	UIPath   = "/docs"
)

// Error constants.
var (
	ErrEncode = errors.New("openapi document encode failed")
)

// Title is shown in the Swagger UI tab.
const Title = "Kiosk Playback API"

// Register attaches the document and the UI to r:
//
//	GET /openapi.json -> doc, encoded once
//	GET /docs         -> Swagger UI loading /openapi.json
func Register(r chi.Router, doc any) {
	if r == nil {
		panic("router is nil")
	}
	r.Get(SpecPath, Handler(doc))
	r.Mount(UIPath, v5emb.New(Title, SpecPath, UIPath))
}

// Handler serves doc as indented JSON. Encoding happens once, up front.
func Handler(doc any) http.HandlerFunc {
	data, err := json.MarshalIndent(doc, "", "  ")
	return func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			http.Error(w, ErrEncode.Error()+": "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
