package server

import (
	"fmt"
	"net/http"

	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/gin-gonic/gin"
)

type vurderingRequest struct {
	BeregningsDato  behovdomain.Dato `json:"beregningsdato"`
	SubsumsjonsIDer []string         `json:"subsumsjonIder"`
}

type vurderingResponse struct {
	NyVurdering bool `json:"nyVurdering"`
}

// VurderMinsteinntekt re-runs the given prior results under a new as-of
// date and reports whether the minimum-income outcome changed for any of
// them.
func (s *Server) VurderMinsteinntekt(c *gin.Context) {
	var req vurderingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error()))
		return
	}

	if req.BeregningsDato.IsZero() {
		AbortWithError(c, fmt.Errorf("%w: beregningsdato required", ErrInvalidRequest))
		return
	}
	if len(req.SubsumsjonsIDer) == 0 {
		AbortWithError(c, fmt.Errorf("%w: subsumsjonIder required", ErrInvalidRequest))
		return
	}

	nyVurdering, err := s.lovverkSvc.KreverNyBehandling(c.Request.Context(), req.SubsumsjonsIDer, req.BeregningsDato)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, vurderingResponse{NyVurdering: nyVurdering})
}
