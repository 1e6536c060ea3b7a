package server

import (
	"net/http"

	"github.com/openytelse/regelport/internal/ident"
	"github.com/gin-gonic/gin"
)

// GetSubsumsjon returns the stored result for a finished behov.
func (s *Server) GetSubsumsjon(c *gin.Context) {
	behovID := c.Param("behovId")

	subsumsjon, err := s.subsumsjoner.GetByBehovID(c.Request.Context(), behovID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, subsumsjon)
}

// GetSubsumsjonByResult looks a subsumsjon up by one of its sub-result ids.
// Malformed ids are rejected before the store is asked.
func (s *Server) GetSubsumsjonByResult(c *gin.Context) {
	raw := c.Param("subsumsjonsId")

	id, err := ident.Parse(raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	subsumsjon, err := s.subsumsjoner.GetByResultID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, subsumsjon)
}
