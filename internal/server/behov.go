package server

import (
	"fmt"
	"net/http"

	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/gin-gonic/gin"
)

type opprettBehovRequest struct {
	RegelKontekst  *behovdomain.RegelKontekst `json:"regelKontekst"`
	AktørID        string                     `json:"aktørId"`
	VedtakID       *int64                     `json:"vedtakId"`
	BeregningsDato behovdomain.Dato           `json:"beregningsDato"`
	behovdomain.Fakta
}

// behov builds the domain request. Callers either name the kontekst
// explicitly or send the legacy vedtakId, which maps to a VEDTAK kontekst.
func (r opprettBehovRequest) behov() (behovdomain.Behov, error) {
	kontekst := behovdomain.RegelKontekst{}
	switch {
	case r.RegelKontekst != nil:
		parsed, err := behovdomain.ParseKontekstType(string(r.RegelKontekst.Type))
		if err != nil {
			return behovdomain.Behov{}, err
		}
		kontekst = behovdomain.RegelKontekst{ID: r.RegelKontekst.ID, Type: parsed}
	case r.VedtakID != nil:
		kontekst = behovdomain.RegelKontekst{
			ID:   fmt.Sprintf("%d", *r.VedtakID),
			Type: behovdomain.KontekstVedtak,
		}
	default:
		return behovdomain.Behov{}, fmt.Errorf("%w: regelKontekst or vedtakId required", ErrInvalidRequest)
	}

	if kontekst.ID == "" {
		return behovdomain.Behov{}, fmt.Errorf("%w: regelKontekst.id required", ErrInvalidRequest)
	}
	if r.AktørID == "" {
		return behovdomain.Behov{}, fmt.Errorf("%w: aktørId required", ErrInvalidRequest)
	}
	if r.BeregningsDato.IsZero() {
		return behovdomain.Behov{}, fmt.Errorf("%w: beregningsDato required", ErrInvalidRequest)
	}

	return behovdomain.Behov{
		RegelKontekst:  kontekst,
		AktørID:        r.AktørID,
		BeregningsDato: r.BeregningsDato,
		Fakta:          r.Fakta,
	}, nil
}

type behovStatusResponse struct {
	Status behovdomain.Status `json:"status"`
}

// OpprettBehov accepts a calculation request and answers 202 with the
// status location. Re-posting the same kontekst yields a fresh behov under
// the same behandling.
func (s *Server) OpprettBehov(c *gin.Context) {
	var req opprettBehovRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error()))
		return
	}

	behov, err := req.behov()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	intern, err := s.behovSvc.Opprett(c.Request.Context(), behov)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/behov/%s/status", intern.BehovID))
	c.JSON(http.StatusAccepted, behovStatusResponse{Status: behovdomain.StatusPending})
}

// BehovStatus reports PENDING, or redirects to the finished subsumsjon.
func (s *Server) BehovStatus(c *gin.Context) {
	behovID := c.Param("behovId")

	status, err := s.behovSvc.Status(c.Request.Context(), behovID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if status.Status == behovdomain.StatusDone {
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/subsumsjon/%s", behovID))
		return
	}

	c.JSON(http.StatusOK, behovStatusResponse{Status: status.Status})
}
