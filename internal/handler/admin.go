package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avoronov/ticket-directory/internal/collection"
)

// AdminHandler exposes the operational console surface.  Routes using
// it must sit behind the ADMIN role middleware.
type AdminHandler struct {
	Store *collection.Store
}

func NewAdminHandler(s *collection.Store) *AdminHandler {
	return &AdminHandler{Store: s}
}

// ClearAll wipes the whole collection regardless of ownership.
func (h *AdminHandler) ClearAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	if err := h.Store.ClearAll(ctx); err != nil {
		log.Printf("clear-all: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clear-all failed"})
	}
	log.Printf("collection cleared by admin")
	return c.JSON(http.StatusOK, Answer{Text: "collection cleared", System: true})
}
