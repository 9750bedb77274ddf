package handlers

import (
	"net/http"

	"github.com/akinalp/opsportal/pkg"
)

// Health: GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	pkg.JSON(w, http.StatusOK, map[string]string{"status": "UP"})
}
